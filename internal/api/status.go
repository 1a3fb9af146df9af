package api

import (
	"context"
	"sync"
	"time"

	"github.com/JakeFAU/misheard-crawler/internal/progress"
)

// RunStatus is the JSON view of the current crawl run.
type RunStatus struct {
	RunID           string         `json:"run_id,omitempty"`
	State           string         `json:"state"`
	StartedAt       *time.Time     `json:"started_at,omitempty"`
	FinishedAt      *time.Time     `json:"finished_at,omitempty"`
	CurrentLetter   string         `json:"current_letter,omitempty"`
	IndexPages      int            `json:"index_pages"`
	SongPages       int            `json:"song_pages"`
	RecordsAccepted int            `json:"records_accepted"`
	Failures        map[string]int `json:"failures"`
}

// Run states reported by StatusSink.
const (
	StateIdle     = "idle"
	StateRunning  = "running"
	StateFinished = "finished"
)

// StatusSink is a progress.Sink that keeps the latest run counters in memory.
type StatusSink struct {
	mu     sync.RWMutex
	status RunStatus
}

// NewStatusSink returns an idle StatusSink.
func NewStatusSink() *StatusSink {
	return &StatusSink{status: RunStatus{State: StateIdle, Failures: map[string]int{}}}
}

// Consume folds a batch of events into the snapshot. A RUN_START resets it.
func (s *StatusSink) Consume(_ context.Context, batch []progress.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, evt := range batch {
		if evt.Stage == progress.StageRunStart {
			ts := evt.TS
			s.status = RunStatus{RunID: evt.RunID, State: StateRunning, StartedAt: &ts, Failures: map[string]int{}}
			continue
		}
		if evt.RunID != s.status.RunID {
			continue
		}
		if evt.Letter != "" {
			s.status.CurrentLetter = evt.Letter
		}
		switch evt.Stage {
		case progress.StageIndexFetched:
			s.status.IndexPages++
		case progress.StageSongFetched:
			s.status.SongPages++
		case progress.StageRecordPublished:
			s.status.RecordsAccepted++
		case progress.StageFailure:
			s.status.Failures[evt.Kind]++
		case progress.StageRunDone:
			ts := evt.TS
			s.status.State = StateFinished
			s.status.FinishedAt = &ts
		}
	}
	return nil
}

// Close implements progress.Sink.
func (s *StatusSink) Close(context.Context) error {
	return nil
}

// Snapshot returns a copy of the current status.
func (s *StatusSink) Snapshot() RunStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.status
	out.Failures = make(map[string]int, len(s.status.Failures))
	for k, v := range s.status.Failures {
		out.Failures[k] = v
	}
	return out
}
