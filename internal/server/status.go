package server

import (
	"sync"

	"catalogcsv/internal"
)

// StatusBoard holds the most recent progress event and whether a run is in flight.
type StatusBoard struct {
	mu     sync.Mutex
	latest *internal.ProgressEvent
	busy   bool
}

func NewStatusBoard() *StatusBoard {
	return &StatusBoard{}
}

func (b *StatusBoard) Set(event internal.ProgressEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.latest = &event
}

// Latest reports false until the first event of a run has been published.
func (b *StatusBoard) Latest() (internal.ProgressEvent, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.latest == nil {
		return internal.ProgressEvent{}, false
	}
	return *b.latest, true
}

// TryStart claims the board for a new run and clears the previous status.
func (b *StatusBoard) TryStart() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.busy {
		return false
	}
	b.busy = true
	b.latest = nil
	return true
}

func (b *StatusBoard) Done() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.busy = false
}

func (b *StatusBoard) Busy() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.busy
}
