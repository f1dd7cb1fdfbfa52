// Package slug builds URL slugs and catalog website links from movie titles.
package slug

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/mozillazg/go-unidecode"
)

var (
	nonSlugChars = regexp.MustCompile(`[^\w\s-]`)
	whitespace   = regexp.MustCompile(`\s+`)
)

// Make lower-cases the title, strips everything except word characters,
// whitespace and hyphens, and joins words with "-". Non-latin titles are
// transliterated first so they keep a readable slug.
func Make(title string) string {
	s := strings.ToLower(unidecode.Unidecode(title))
	s = nonSlugChars.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	return whitespace.ReplaceAllString(s, "-")
}

// MovieURL returns the catalog website page for a movie. An empty slug
// leaves just the id.
func MovieURL(websiteURL string, id int64, title string) string {
	base := strings.TrimRight(websiteURL, "/")
	if base == "" {
		base = "https://www.themoviedb.org"
	}
	segment := fmt.Sprintf("%d", id)
	if s := Make(title); s != "" {
		segment += "-" + url.PathEscape(s)
	}
	return base + "/movie/" + segment + "?language=en-GB"
}
