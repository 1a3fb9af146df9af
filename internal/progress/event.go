package progress

import (
	"errors"
	"fmt"
	"time"
)

// Stage denotes the crawl milestone represented by an Event.
type Stage string

// Supported progress stages.
const (
	StageRunStart        Stage = "RUN_START"
	StageRunDone         Stage = "RUN_DONE"
	StageIndexFetched    Stage = "INDEX_FETCHED"
	StageSongFetched     Stage = "SONG_FETCHED"
	StageRecordPublished Stage = "RECORD_PUBLISHED"
	StageFailure         Stage = "FAILURE"
)

// StatusClass is a coarse HTTP response grouping.
type StatusClass string

// Supported HTTP status classes.
const (
	Status2xx   StatusClass = "2xx"
	Status3xx   StatusClass = "3xx"
	Status4xx   StatusClass = "4xx"
	Status5xx   StatusClass = "5xx"
	StatusOther StatusClass = "other"
)

// Event captures one step of a crawl run.
type Event struct {
	RunID string
	TS    time.Time
	Stage Stage
	// Letter is the index letter the work belongs to, empty for run events.
	Letter string
	URL    string
	Artist string
	Song   string
	// Kind names the failure kind for FAILURE events.
	Kind        string
	StatusClass StatusClass
	Bytes       int64
	Count       int
	Dur         time.Duration
	Note        string
}

// Validate performs coarse validation on Event payloads.
func (e Event) Validate() error {
	if e.RunID == "" {
		return errors.New("run id is required")
	}
	if e.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	switch e.Stage {
	case StageRunStart, StageRunDone:
	case StageIndexFetched, StageSongFetched:
		if e.URL == "" {
			return fmt.Errorf("%s requires url", e.Stage)
		}
	case StageRecordPublished:
		if e.Artist == "" {
			return errors.New("record published requires artist")
		}
	case StageFailure:
		if e.Kind == "" {
			return errors.New("failure requires kind")
		}
	default:
		return fmt.Errorf("unknown stage %q", e.Stage)
	}
	if e.Dur < 0 {
		return errors.New("duration must be >= 0")
	}
	return nil
}

// ClassifyStatus groups HTTP status codes.
func ClassifyStatus(code int) StatusClass {
	switch {
	case code >= 200 && code < 300:
		return Status2xx
	case code >= 300 && code < 400:
		return Status3xx
	case code >= 400 && code < 500:
		return Status4xx
	case code >= 500 && code < 600:
		return Status5xx
	default:
		return StatusOther
	}
}
