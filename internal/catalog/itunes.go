package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkarvinen/dacsync/internal/errors"
)

const defaultSearchAPIURL = "https://itunes.apple.com/search"

// SearchClient recovers catalog identifiers by free-text (name, artist)
// queries against the unauthenticated search API.
type SearchClient struct {
	httpClient *http.Client
	apiURL     string
}

// NewSearchClient creates a search client.
func NewSearchClient() *SearchClient {
	return &SearchClient{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		apiURL:     defaultSearchAPIURL,
	}
}

// FindTrackID searches for a track and returns its catalog identifier, or
// empty when nothing matched.
func (c *SearchClient) FindTrackID(ctx context.Context, name, artist string) (string, error) {
	term := buildTerm(name, artist)
	if term == "" {
		return "", nil
	}

	params := url.Values{}
	params.Set("term", term)
	params.Set("media", "music")
	params.Set("entity", "song")
	params.Set("limit", "5")

	reqURL := fmt.Sprintf("%s?%s", c.apiURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return "", errors.Newf("failed to create search request: %w", err).
			Category(errors.CategoryLookup).
			Component("catalog").
			Build()
	}
	req.Header.Set("User-Agent", "dacsync/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", errors.Newf("search request failed: %w", err).
			Category(errors.CategoryLookup).
			Component("catalog").
			Context("term", term).
			Build()
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", errors.Newf("search returned %d", resp.StatusCode).
			Category(errors.CategoryLookup).
			Component("catalog").
			Context("term", term).
			Build()
	}

	var searchResp searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
		return "", errors.Newf("failed to decode search response: %w", err).
			Category(errors.CategoryLookup).
			Component("catalog").
			Build()
	}

	// The first match with a track identifier wins.
	for _, item := range searchResp.Results {
		if item.TrackID > 0 {
			return strconv.FormatInt(item.TrackID, 10), nil
		}
	}
	return "", nil
}

func buildTerm(name, artist string) string {
	var parts []string
	if name != "" {
		parts = append(parts, name)
	}
	if artist != "" {
		parts = append(parts, artist)
	}
	return strings.Join(parts, " ")
}

// iTunes Search API response types

type searchResponse struct {
	ResultCount int          `json:"resultCount"`
	Results     []resultItem `json:"results"`
}

type resultItem struct {
	TrackID    int64  `json:"trackId"`
	TrackName  string `json:"trackName"`
	ArtistName string `json:"artistName"`
}
