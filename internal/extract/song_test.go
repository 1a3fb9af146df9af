package extract

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustDoc(t *testing.T, body string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	require.NoError(t, err)
	return doc
}

func TestParseSongExtractsPairsInDocumentOrder(t *testing.T) {
	t.Parallel()

	body := `<html><head><title>Page title</title></head><body>
<h1>  Hey Jude </h1>
<p>Artist: The Beatles
Some other text</p>
<ul>
  <li><a href="/m/1" title="  Take a sad song and make it better ">  Take a sad sock and make it butter  </a></li>
  <li><a href="/m/2" title="Hey Jude, don't make it bad">Hey dude, don't make it bad</a></li>
  <li><a href="/home">Home</a></li>
</ul>
</body></html>`

	song, err := ParseSong(body)
	require.NoError(t, err)
	assert.Equal(t, "Hey Jude", song.Title)
	assert.Equal(t, "The Beatles", song.Artist)
	require.Equal(t, []Pair{
		{Misheard: "Take a sad sock and make it butter", Original: "Take a sad song and make it better"},
		{Misheard: "Hey dude, don't make it bad", Original: "Hey Jude, don't make it bad"},
	}, song.Pairs)
	assert.Zero(t, song.Skipped)
}

func TestParseSongWithoutLyricAnchors(t *testing.T) {
	t.Parallel()

	song, err := ParseSong(`<html><body><h1>Empty</h1><a href="/x">no title here</a></body></html>`)
	require.NoError(t, err)
	assert.Empty(t, song.Pairs)
	assert.Equal(t, "Empty", song.Title)
	assert.Equal(t, UnknownArtist, song.Artist)
}

func TestParseSongDropsIncompleteAnchors(t *testing.T) {
	t.Parallel()

	body := `<body>
<a title="">empty title</a>
<a title="Original line">   </a>
<a title="   ">blank title</a>
<a title="Kept original">kept misheard</a>
</body>`

	song, err := ParseSong(body)
	require.NoError(t, err)
	require.Equal(t, []Pair{{Misheard: "kept misheard", Original: "Kept original"}}, song.Pairs)
	assert.Equal(t, 3, song.Skipped)
}

func TestParseSongTitleFallbacks(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
		want string
	}{
		{"heading wins", `<html><head><title>Doc</title></head><body><h1>Heading</h1><h1>Second</h1></body></html>`, "Heading"},
		{"title element", `<html><head><title> Doc Title </title></head><body><h2>Not h1</h2></body></html>`, "Doc Title"},
		{"empty heading falls back", `<html><head><title>Doc</title></head><body><h1>  </h1></body></html>`, "Doc"},
		{"sentinel", `<html><body><p>nothing</p></body></html>`, UnknownSong},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			song, err := ParseSong(tc.body)
			require.NoError(t, err)
			assert.Equal(t, tc.want, song.Title)
		})
	}
}

func TestArtistStrategies(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "dedicated element stops at line break",
			body: "<body><p>Artist: The Beatles\nSome other text</p></body>",
			want: "The Beatles",
		},
		{
			name: "dedicated element with br",
			body: "<body><h2>Artist:   Pink Floyd<br>Album: The Wall</h2></body>",
			want: "Pink Floyd",
		},
		{
			name: "first matching element wins",
			body: "<body><p>intro</p><h2>Artist: First</h2><p>Artist: Second</p></body>",
			want: "First",
		},
		{
			name: "page text fallback",
			body: "<body><div class=\"meta\">Artist: Queen</div></body>",
			want: "Queen",
		},
		{
			name: "page text fallback stops at br",
			body: "<body><div>Artist: Queen<br>Released 1975</div></body>",
			want: "Queen",
		},
		{
			name: "page text fallback stops at source newline",
			body: "<body><div class=\"info\">\n  Artist: Queen\n  Album: A Night at the Opera\n</div></body>",
			want: "Queen",
		},
		{
			name: "page text fallback inside pre",
			body: "<body><pre>Artist: Queen\nOther</pre></body>",
			want: "Queen",
		},
		{
			name: "page text fallback reads head",
			body: "<html><head><title>Artist: Queen\n</title></head><body><div>lyrics</div></body></html>",
			want: "Queen",
		},
		{
			name: "neither",
			body: "<body><p>Performed by somebody</p></body>",
			want: UnknownArtist,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			doc := mustDoc(t, tc.body)
			assert.Equal(t, tc.want, FirstOf(doc, ArtistStrategies, UnknownArtist))
		})
	}
}

func TestArtistElementIgnoresPageText(t *testing.T) {
	t.Parallel()

	doc := mustDoc(t, "<body><div>Artist: Queen</div></body>")
	_, ok := ArtistElement(doc)
	assert.False(t, ok)

	name, ok := ArtistPageText(doc)
	require.True(t, ok)
	assert.Equal(t, "Queen", name)
}

func TestFirstOfSkipsEmptyValues(t *testing.T) {
	t.Parallel()

	doc := mustDoc(t, "<body></body>")
	empty := func(*goquery.Document) (string, bool) { return "", true }
	found := func(*goquery.Document) (string, bool) { return "found", true }
	assert.Equal(t, "found", FirstOf(doc, []Strategy{empty, found}, "fallback"))
	assert.Equal(t, "fallback", FirstOf(doc, []Strategy{empty}, "fallback"))
	assert.Equal(t, "fallback", FirstOf(doc, nil, "fallback"))
}
