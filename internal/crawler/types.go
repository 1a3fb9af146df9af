package crawler

import (
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Record is one misheard lyric as accepted by the ingestion endpoint.
//
// Only the four required fields are ever populated by the crawler. The optional
// fields exist so callers can extend records later; they are omitted from the
// JSON body when unset.
type Record struct {
	SongTitle string `json:"song_title"`
	Artist    string `json:"artist"`
	Misheard  string `json:"misheard"`
	Original  string `json:"original"`

	Year *int `json:"year,omitempty"`
	// Genre is a free-form label.
	Genre string `json:"genre,omitempty"`
	// Tags is comma separated, matching how the ingestion service stores them.
	Tags            string `json:"tags,omitempty"`
	YouTubeLink     string `json:"youtube_link,omitempty"`
	SpotifyLink     string `json:"spotify_link,omitempty"`
	AmazonMusicLink string `json:"amazon_music_link,omitempty"`
	EmbedYouTube    string `json:"embed_youtube,omitempty"`
}

// Validate applies the ingestion service's required-field rule locally.
func (r Record) Validate() error {
	required := []struct {
		name  string
		value string
	}{
		{"original", r.Original},
		{"misheard", r.Misheard},
		{"artist", r.Artist},
		{"song_title", r.SongTitle},
	}
	for _, field := range required {
		if strings.TrimSpace(field.value) == "" {
			return fmt.Errorf("'%s' is required", field.name)
		}
	}
	return nil
}

// Receipt describes an accepted publish.
type Receipt struct {
	StatusCode int
	// ID is the identifier assigned downstream, when the response exposes one.
	ID string
}

// FetchRequest captures everything needed to fetch a URL.
type FetchRequest struct {
	URL     string
	Headers http.Header
}

// FetchResponse is the result returned by a Fetcher implementation.
type FetchResponse struct {
	URL          string
	StatusCode   int
	Headers      http.Header
	Body         []byte
	Duration     time.Duration
	UsedHeadless bool
}

// Summary tallies one crawl pass.
type Summary struct {
	RunID            string
	Letters          int
	IndexPages       int
	Candidates       int
	SongPages        int
	RecordsAccepted  int
	RecordsRejected  int
	Failures         map[FailureKind]int
	Duration         time.Duration
	InterruptedEarly bool
}
