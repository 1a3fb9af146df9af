package extract

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBase = "https://www.kissthisguy.com/"

func TestParseIndexPromotesMarkedLinks(t *testing.T) {
	t.Parallel()

	body := `<html><body>
<a href="/misheard-song1.htm">Song 1</a>
<a href="/other.htm">Other</a>
<a name="anchor-without-href">nope</a>
</body></html>`

	seq, err := ParseIndex('A', body, "https://example.com")
	require.NoError(t, err)

	got := slices.Collect(seq)
	require.Equal(t, []CandidateLink{{
		Letter: 'A',
		Href:   "/misheard-song1.htm",
		URL:    "https://example.com/misheard-song1.htm",
	}}, got)
}

func TestParseIndexCaseInsensitiveAndVerbatim(t *testing.T) {
	t.Parallel()

	body := `<body>
<a href="Queen-MISHEARD-lyrics.htm">1</a>
<a href="https://www.kissthisguy.com/misheard-abs.htm">2</a>
<a href="Queen-MISHEARD-lyrics.htm">dup</a>
</body>`

	seq, err := ParseIndex('Q', body, testBase)
	require.NoError(t, err)

	var urls []string
	for link := range seq {
		urls = append(urls, link.URL)
	}
	assert.Equal(t, []string{
		testBase + "Queen-MISHEARD-lyrics.htm",
		testBase + "https://www.kissthisguy.com/misheard-abs.htm",
		testBase + "Queen-MISHEARD-lyrics.htm",
	}, urls)
}

func TestParseIndexSequenceIsRestartable(t *testing.T) {
	t.Parallel()

	seq, err := ParseIndex('B', `<a href="misheard-1">1</a><a href="misheard-2">2</a>`, testBase)
	require.NoError(t, err)

	first := slices.Collect(seq)
	second := slices.Collect(seq)
	require.Len(t, first, 2)
	assert.Equal(t, first, second)

	for link := range seq {
		assert.Equal(t, "misheard-1", link.Href)
		break
	}
}

func TestIndexURL(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "https://www.kissthisguy.com/A-artists.htm",
		IndexURL("https://www.kissthisguy.com/{letter}-artists.htm", 'a'))
}

func TestParseLetters(t *testing.T) {
	t.Parallel()

	all, err := ParseLetters("")
	require.NoError(t, err)
	assert.Len(t, all, 26)
	assert.Equal(t, 'A', all[0])
	assert.Equal(t, 'Z', all[25])

	rng, err := ParseLetters("c-e")
	require.NoError(t, err)
	assert.Equal(t, []rune{'C', 'D', 'E'}, rng)

	list, err := ParseLetters("QX")
	require.NoError(t, err)
	assert.Equal(t, []rune{'Q', 'X'}, list)

	for _, bad := range []string{"A1", "Z-A", "#"} {
		_, err := ParseLetters(bad)
		assert.Error(t, err, bad)
	}
}

func TestIsSongHref(t *testing.T) {
	t.Parallel()

	assert.True(t, IsSongHref("/MisHeard-x.htm"))
	assert.False(t, IsSongHref("/lyrics.htm"))
	assert.False(t, IsSongHref(""))
}
