package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Strategy extracts one value from a parsed page. It reports false when the
// page does not carry the value; an empty string also counts as absent.
type Strategy func(doc *goquery.Document) (string, bool)

// TitleStrategies are tried in order to find the song title.
var TitleStrategies = []Strategy{FirstHeading, DocumentTitle}

// ArtistStrategies are tried in order to find the artist. The dedicated
// element comes first; whole-page text is noisier.
var ArtistStrategies = []Strategy{ArtistElement, ArtistPageText}

// FirstOf returns the first non-empty value produced by strategies, or fallback.
func FirstOf(doc *goquery.Document, strategies []Strategy, fallback string) string {
	for _, strategy := range strategies {
		if value, ok := strategy(doc); ok && value != "" {
			return value
		}
	}
	return fallback
}

// FirstHeading returns the text of the first <h1>.
func FirstHeading(doc *goquery.Document) (string, bool) {
	h1 := doc.Find("h1").First()
	if h1.Length() == 0 {
		return "", false
	}
	text := strings.TrimSpace(h1.Text())
	return text, text != ""
}

// DocumentTitle returns the text of the <title> element.
func DocumentTitle(doc *goquery.Document) (string, bool) {
	title := doc.Find("title").First()
	if title.Length() == 0 {
		return "", false
	}
	text := strings.TrimSpace(title.Text())
	return text, text != ""
}

const artistLabel = "Artist:"

var artistRE = regexp.MustCompile(`Artist:\s*(.+)`)

// ArtistElement looks for the first h1, h2 or p whose text contains
// "Artist:" and reads the name from that element only.
func ArtistElement(doc *goquery.Document) (string, bool) {
	var text string
	doc.Find("h1, h2, p").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		candidate := textWithBreaks(sel)
		if strings.Contains(candidate, artistLabel) {
			text = candidate
			return false
		}
		return true
	})
	if text == "" {
		return "", false
	}
	return matchArtist(text)
}

// ArtistPageText matches "Artist:" against the text of the whole document,
// head included. Source newlines are kept so the name ends at the first one.
func ArtistPageText(doc *goquery.Document) (string, bool) {
	return matchArtist(textWithBreaks(doc.Selection))
}

func matchArtist(text string) (string, bool) {
	match := artistRE.FindStringSubmatch(text)
	if len(match) < 2 {
		return "", false
	}
	line, _, _ := strings.Cut(match[1], "\n")
	name := strings.TrimSpace(line)
	return name, name != ""
}

// textWithBreaks renders the text of a selection with <br> as a newline.
func textWithBreaks(sel *goquery.Selection) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
		case html.ElementNode:
			if n.Data == "br" {
				b.WriteByte('\n')
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range sel.Nodes {
		walk(n)
	}
	return b.String()
}
