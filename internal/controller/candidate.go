package controller

import (
	"time"

	"github.com/google/uuid"
)

// Source tags a detected sample rate with the detector that produced it.
// The tags appear verbatim in logs.
type Source string

const (
	SourceLogStream   Source = "Log Stream"
	SourceDirectQuery Source = "Direct Query"
	SourceCatalog     Source = "Catalog"
	SourceCache       Source = "Cache"
)

// Candidate is a detected sample rate proposal from one source.
type Candidate struct {
	Rate   int
	Source Source
	At     time.Time
}

// Messages posted into the controller loop. Timer callbacks and detection
// goroutines never mutate controller state directly; they post a message
// and the loop applies it, discarding anything stale.

type message interface{ controllerMessage() }

// candidateMsg carries an async detection result back into the loop.
type candidateMsg struct {
	sessionID uuid.UUID
	cand      Candidate
}

// debounceMsg fires when the log stream debounce window has been quiet.
type debounceMsg struct {
	sessionID uuid.UUID
	gen       uint64
}

// resumeMsg fires when the post-switch settle delay has elapsed.
type resumeMsg struct {
	sessionID uuid.UUID
	gen       uint64
}

func (candidateMsg) controllerMessage() {}
func (debounceMsg) controllerMessage()  {}
func (resumeMsg) controllerMessage()    {}
