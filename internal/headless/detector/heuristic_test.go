package detector

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/misheard-crawler/internal/crawler"
)

func ok(body string) crawler.FetchResponse {
	return crawler.FetchResponse{StatusCode: http.StatusOK, Body: []byte(body)}
}

func TestShouldPromote(t *testing.T) {
	t.Parallel()

	lyricPage := `<html><body><h1>Purple Haze</h1><p>Artist: Jimi Hendrix</p>` +
		`<a href="/m1" title="kiss the sky">kiss this guy</a>` + strings.Repeat("<p>filler</p>", 200) + `</body></html>`

	tests := []struct {
		name string
		resp crawler.FetchResponse
		want bool
	}{
		{name: "empty body", resp: ok(""), want: true},
		{name: "next.js shell", resp: ok(`<div id="__next"></div><a href="/x">x</a>`), want: true},
		{name: "no anchors", resp: ok(`<html><body><p>loading</p></body></html>`), want: true},
		{name: "script heavy small page", resp: ok(`<html><script>var lyrics = load();</script><a href="/x">x</a></html>`), want: true},
		{name: "lyric page", resp: ok(lyricPage), want: false},
		{name: "not found", resp: crawler.FetchResponse{StatusCode: http.StatusNotFound, Body: []byte("gone")}, want: false},
	}
	h := NewHeuristic(1000)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, h.ShouldPromote(tt.resp))
		})
	}
}

func TestNewHeuristicDefault(t *testing.T) {
	t.Parallel()
	assert.Equal(t, defaultMinBodyBytes, NewHeuristic(0).MinBodyBytes)
}

func TestScanCountsScriptBytes(t *testing.T) {
	t.Parallel()

	stats := scan([]byte(`<a href="/1">1</a><script>abc</script><a href="/2">2</a>`))
	assert.Equal(t, 2, stats.anchors)
	assert.Equal(t, len(`<script>abc</script>`), stats.scriptBytes)
}

type stubFetcher struct {
	resp  crawler.FetchResponse
	err   error
	calls int
}

func (s *stubFetcher) Fetch(context.Context, crawler.FetchRequest) (crawler.FetchResponse, error) {
	s.calls++
	return s.resp, s.err
}

func TestPromotingFetcher(t *testing.T) {
	t.Parallel()

	rendered := crawler.FetchResponse{StatusCode: http.StatusOK, Body: []byte("rendered"), UsedHeadless: true}

	t.Run("promotes empty shell", func(t *testing.T) {
		t.Parallel()
		fast := &stubFetcher{resp: ok(`<div id="root"></div>`)}
		slow := &stubFetcher{resp: rendered}
		resp, err := NewPromotingFetcher(fast, slow, NewHeuristic(0), nil).Fetch(context.Background(), crawler.FetchRequest{URL: "u"})
		require.NoError(t, err)
		assert.True(t, resp.UsedHeadless)
		assert.Equal(t, 1, slow.calls)
	})

	t.Run("keeps fast response", func(t *testing.T) {
		t.Parallel()
		fast := &stubFetcher{resp: ok(`<a href="/m" title="o">m</a>` + strings.Repeat("x", 4096))}
		slow := &stubFetcher{resp: rendered}
		resp, err := NewPromotingFetcher(fast, slow, NewHeuristic(0), nil).Fetch(context.Background(), crawler.FetchRequest{URL: "u"})
		require.NoError(t, err)
		assert.False(t, resp.UsedHeadless)
		assert.Zero(t, slow.calls)
	})

	t.Run("returns fast errors", func(t *testing.T) {
		t.Parallel()
		fast := &stubFetcher{err: &crawler.StatusError{URL: "u", StatusCode: 500}}
		slow := &stubFetcher{resp: rendered}
		_, err := NewPromotingFetcher(fast, slow, NewHeuristic(0), nil).Fetch(context.Background(), crawler.FetchRequest{URL: "u"})
		assert.Equal(t, crawler.FailureHTTPStatus, crawler.KindOf(err))
		assert.Zero(t, slow.calls)
	})
}
