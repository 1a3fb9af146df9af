// Package detector decides when a page fetched over plain HTTP should be
// fetched again through the headless browser.
package detector

import (
	"bytes"
	"errors"
	"io"
	"net/http"

	"golang.org/x/net/html"

	"github.com/JakeFAU/misheard-crawler/internal/crawler"
)

const (
	defaultMinBodyBytes = 2048
	// scriptShareThreshold is the percentage of the body inside <script>
	// elements above which a small page is treated as client-rendered.
	scriptShareThreshold = 25
)

var spaMarkers = [][]byte{
	[]byte("__next"),
	[]byte(`id="root"`),
	[]byte(`id="app"`),
	[]byte("data-reactroot"),
}

// Heuristic flags responses that look like an empty client-rendered shell.
type Heuristic struct {
	MinBodyBytes int
}

// NewHeuristic creates a detector. A non-positive minBodyBytes uses 2048.
func NewHeuristic(minBodyBytes int) *Heuristic {
	if minBodyBytes <= 0 {
		minBodyBytes = defaultMinBodyBytes
	}
	return &Heuristic{MinBodyBytes: minBodyBytes}
}

// ShouldPromote reports whether resp should be fetched again headless. Only
// 200 responses are considered.
func (h *Heuristic) ShouldPromote(resp crawler.FetchResponse) bool {
	if resp.StatusCode != http.StatusOK {
		return false
	}
	body := resp.Body
	if len(body) == 0 {
		return true
	}
	for _, marker := range spaMarkers {
		if bytes.Contains(body, marker) {
			return true
		}
	}
	stats := scan(body)
	if stats.anchors == 0 {
		return true
	}
	return len(body) < h.MinBodyBytes && stats.scriptBytes*100/len(body) >= scriptShareThreshold
}

type pageStats struct {
	anchors     int
	scriptBytes int
}

// scan tokenizes body once, counting anchors and the bytes spent inside
// <script> elements (tags included).
func scan(body []byte) pageStats {
	var stats pageStats
	z := html.NewTokenizer(bytes.NewReader(body))
	inScript := false
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			if !errors.Is(z.Err(), io.EOF) {
				stats.scriptBytes += len(z.Raw())
			}
			return stats
		}
		raw := len(z.Raw())
		switch tt {
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			switch string(name) {
			case "a":
				stats.anchors++
			case "script":
				inScript = tt == html.StartTagToken
				stats.scriptBytes += raw
				continue
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			if string(name) == "script" {
				inScript = false
				stats.scriptBytes += raw
				continue
			}
		}
		if inScript {
			stats.scriptBytes += raw
		}
	}
}
