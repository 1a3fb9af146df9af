package crawler

import (
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/JakeFAU/misheard-crawler/internal/hash/sha256"
)

const archiveHashLen = 12

var invalidFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// ArchivePath returns the object path a song page is archived under:
// <prefix>/<run-id>/<letter>/<name>.html.
func ArchivePath(prefix, runID string, letter rune, pageURL string) string {
	name := safeBasename(pageURL) + ".html"
	parts := []string{runID, string(letter), name}
	if p := strings.Trim(prefix, "/"); p != "" {
		parts = append([]string{p}, parts...)
	}
	return path.Join(parts...)
}

// safeBasename turns the last path segment of a URL into a filename. A short
// hash of the full URL keeps distinct URLs with the same segment apart.
func safeBasename(raw string) string {
	segment := ""
	if u, err := url.Parse(raw); err == nil {
		segment = path.Base(strings.Trim(u.Path, "/"))
	}
	segment = strings.TrimSuffix(segment, path.Ext(segment))
	segment = strings.Trim(invalidFilenameChars.ReplaceAllString(segment, "_"), "_.")
	if segment == "" {
		segment = "page"
	}
	return fmt.Sprintf("%s_%s", segment, sha256.Short(raw, archiveHashLen))
}
