package extract

import (
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Sentinels used when a song page does not expose a title or artist.
const (
	UnknownSong   = "Unknown Song"
	UnknownArtist = "Unknown Artist"
)

var errIncompletePair = errors.New("anchor has empty text or title")

// Pair is one misheard rendering next to the lyric it mishears.
type Pair struct {
	Misheard string
	Original string
}

// Song is everything extracted from one song page.
type Song struct {
	Title  string
	Artist string
	Pairs  []Pair
	// Skipped counts title-bearing anchors that did not yield a pair.
	Skipped int
}

// ParseSong extracts the title, artist and lyric pairs from a song page.
// A page without lyric anchors yields a Song with no pairs, not an error.
func ParseSong(body string) (Song, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return Song{}, fmt.Errorf("%w: song page: %w", ErrParse, err)
	}
	song := Song{
		Title:  FirstOf(doc, TitleStrategies, UnknownSong),
		Artist: FirstOf(doc, ArtistStrategies, UnknownArtist),
	}
	doc.Find("a[title]").Each(func(_ int, sel *goquery.Selection) {
		pair, err := extractPair(sel)
		if err != nil {
			song.Skipped++
			return
		}
		song.Pairs = append(song.Pairs, pair)
	})
	return song, nil
}

// extractPair reads one anchor. Failures stay local to the anchor.
func extractPair(sel *goquery.Selection) (pair Pair, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("extract anchor: %v", r)
		}
	}()
	title, _ := sel.Attr("title")
	pair = Pair{
		Misheard: strings.TrimSpace(sel.Text()),
		Original: strings.TrimSpace(title),
	}
	if pair.Misheard == "" || pair.Original == "" {
		return Pair{}, errIncompletePair
	}
	return pair, nil
}
