package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/pkarvinen/dacsync/internal/errors"
)

const defaultAppleMusicAPIURL = "https://api.music.apple.com/v1"

// AuthStatus is the authorization state of the catalog client.
type AuthStatus int

const (
	AuthPending AuthStatus = iota
	AuthGranted
	AuthDenied
)

// Sample rate estimates by audio variant. The catalog does not expose exact
// rates; these are the ceilings of the variant tiers and good enough as
// arbitration candidates.
var variantRates = map[string]int{
	"hi-res-lossless": 192000,
	"lossless":        48000,
}

// AppleMusicClient looks up catalog songs with a developer token. A missing
// token means authorization is denied from the start and the client never
// issues requests.
type AppleMusicClient struct {
	httpClient *http.Client
	apiURL     string
	token      string
	storefront string

	mu     sync.Mutex
	status AuthStatus
}

// NewAppleMusicClient creates a catalog client for the given storefront.
func NewAppleMusicClient(token, storefront string) *AppleMusicClient {
	status := AuthPending
	if token == "" {
		status = AuthDenied
	}
	return &AppleMusicClient{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		apiURL:     defaultAppleMusicAPIURL,
		token:      token,
		storefront: storefront,
		status:     status,
	}
}

// Authorized reports whether the client may issue catalog requests.
// Pending counts as authorized until the API says otherwise.
func (c *AppleMusicClient) Authorized() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status != AuthDenied
}

// Status returns the current authorization status.
func (c *AppleMusicClient) Status() AuthStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

func (c *AppleMusicClient) setStatus(status AuthStatus) {
	c.mu.Lock()
	c.status = status
	c.mu.Unlock()
}

// SongRate looks up a catalog song and estimates its sample rate from the
// audio variant attributes. A zero rate with nil error means the song
// carries no usable variant information.
func (c *AppleMusicClient) SongRate(ctx context.Context, id string) (int, error) {
	if !c.Authorized() {
		return 0, errors.Newf("catalog authorization denied").
			Category(errors.CategoryAuthorization).
			Component("catalog").
			Build()
	}

	reqURL := fmt.Sprintf("%s/catalog/%s/songs/%s", c.apiURL, c.storefront, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return 0, errors.Newf("failed to create catalog request: %w", err).
			Category(errors.CategoryLookup).
			Component("catalog").
			Build()
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, errors.Newf("catalog request failed: %w", err).
			Category(errors.CategoryLookup).
			Component("catalog").
			Context("id", id).
			Build()
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		c.setStatus(AuthGranted)
	case http.StatusUnauthorized, http.StatusForbidden:
		c.setStatus(AuthDenied)
		return 0, errors.Newf("catalog authorization rejected (%d)", resp.StatusCode).
			Category(errors.CategoryAuthorization).
			Component("catalog").
			Build()
	default:
		return 0, errors.Newf("catalog returned %d", resp.StatusCode).
			Category(errors.CategoryLookup).
			Component("catalog").
			Context("id", id).
			Build()
	}

	var songResp songResponse
	if err := json.NewDecoder(resp.Body).Decode(&songResp); err != nil {
		return 0, errors.Newf("failed to decode catalog response: %w", err).
			Category(errors.CategoryLookup).
			Component("catalog").
			Build()
	}
	if len(songResp.Data) == 0 {
		return 0, nil
	}

	return estimateRate(songResp.Data[0].Attributes.AudioVariants), nil
}

// estimateRate picks the highest rate estimate among the song's audio
// variants.
func estimateRate(variants []string) int {
	best := 0
	for _, v := range variants {
		if rate, ok := variantRates[v]; ok && rate > best {
			best = rate
		}
	}
	return best
}

// Apple Music API response types

type songResponse struct {
	Data []struct {
		Attributes struct {
			Name          string   `json:"name"`
			ArtistName    string   `json:"artistName"`
			AudioVariants []string `json:"audioVariants"`
		} `json:"attributes"`
	} `json:"data"`
}
