// Package extract turns kissthisguy-style HTML pages into candidate song links
// and misheard lyric pairs. Every function here is pure: it only looks at the
// body it is given.
package extract

import (
	"errors"
	"fmt"
	"iter"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// SongMarker is the substring that identifies a song page href.
const SongMarker = "misheard"

// AllLetters is the full index alphabet.
const AllLetters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// ErrParse marks a body that could not be parsed as HTML.
var ErrParse = errors.New("parse html")

// CandidateLink is a URL believed to reference a song page.
type CandidateLink struct {
	Letter rune
	// Href is the raw attribute value as it appeared on the index page.
	Href string
	// URL is the base URL concatenated with Href, unmodified.
	URL string
}

// IndexURL renders the index page URL for a letter. The template carries a
// {letter} placeholder, e.g. "https://www.kissthisguy.com/{letter}-artists.htm".
func IndexURL(template string, letter rune) string {
	return strings.ReplaceAll(template, "{letter}", strings.ToUpper(string(letter)))
}

// ParseLetters validates a letter selection such as "ABC" or "a-f".
// An empty selection means the whole alphabet.
func ParseLetters(selection string) ([]rune, error) {
	selection = strings.ToUpper(strings.TrimSpace(selection))
	if selection == "" {
		selection = AllLetters
	}
	if len(selection) == 3 && selection[1] == '-' {
		from, to := rune(selection[0]), rune(selection[2])
		if !isIndexLetter(from) || !isIndexLetter(to) || from > to {
			return nil, fmt.Errorf("invalid letter range %q", selection)
		}
		letters := make([]rune, 0, to-from+1)
		for r := from; r <= to; r++ {
			letters = append(letters, r)
		}
		return letters, nil
	}
	letters := make([]rune, 0, len(selection))
	for _, r := range selection {
		if !isIndexLetter(r) {
			return nil, fmt.Errorf("invalid index letter %q", r)
		}
		letters = append(letters, r)
	}
	return letters, nil
}

func isIndexLetter(r rune) bool {
	return r >= 'A' && r <= 'Z'
}

// IsSongHref reports whether an index page href points at a song page.
func IsSongHref(href string) bool {
	return strings.Contains(strings.ToLower(href), SongMarker)
}

// ParseIndex extracts candidate song links from an artist index page. The
// returned sequence walks the parsed document on every range, in document
// order, so it can be consumed more than once.
func ParseIndex(letter rune, body, baseURL string) (iter.Seq[CandidateLink], error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: index %c: %w", ErrParse, letter, err)
	}
	return func(yield func(CandidateLink) bool) {
		doc.Find("a[href]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
			href, _ := sel.Attr("href")
			if !IsSongHref(href) {
				return true
			}
			return yield(CandidateLink{
				Letter: letter,
				Href:   href,
				URL:    baseURL + href,
			})
		})
	}, nil
}
