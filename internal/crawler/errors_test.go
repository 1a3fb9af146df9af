package crawler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/misheard-crawler/internal/extract"
)

func TestKindOf(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want FailureKind
	}{
		{"status", fmt.Errorf("fetch song: %w", &StatusError{URL: "u", StatusCode: 404}), FailureHTTPStatus},
		{"rejected", &RejectedError{StatusCode: 400, Body: "bad"}, FailurePublishRejected},
		{"parse", fmt.Errorf("%w: index A: boom", extract.ErrParse), FailureParseMiss},
		{"no lyrics", ErrNoLyrics, FailureParseMiss},
		{"deadline", context.DeadlineExceeded, FailureTransport},
		{"other", errors.New("connection reset"), FailureTransport},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestErrorMessages(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "fetch http://x: unexpected status 503", (&StatusError{URL: "http://x", StatusCode: 503}).Error())
	assert.Equal(t, "publish rejected with status 400", (&RejectedError{StatusCode: 400}).Error())
	assert.Equal(t, "publish rejected with status 400: nope", (&RejectedError{StatusCode: 400, Body: "nope"}).Error())
}

func TestRecordJSONOmitsOptionalFields(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(Record{SongTitle: "s", Artist: "a", Misheard: "m", Original: "o"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"song_title":"s","artist":"a","misheard":"m","original":"o"}`, string(data))

	year := 1975
	data, err = json.Marshal(Record{SongTitle: "s", Artist: "a", Misheard: "m", Original: "o", Year: &year, Tags: "rock,opera"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"song_title":"s","artist":"a","misheard":"m","original":"o","year":1975,"tags":"rock,opera"}`, string(data))
}

func TestRecordValidate(t *testing.T) {
	t.Parallel()

	assert.NoError(t, Record{SongTitle: "s", Artist: "a", Misheard: "m", Original: "o"}.Validate())
	assert.EqualError(t, Record{}.Validate(), "'original' is required")
	assert.EqualError(t, Record{Original: "o", Misheard: "m", SongTitle: "s"}.Validate(), "'artist' is required")
	assert.EqualError(t, Record{Original: "o", Misheard: "m", Artist: " "}.Validate(), "'artist' is required")
}
