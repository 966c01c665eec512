package line

import (
	"strings"

	"golang.org/x/text/width"
)

// BaseName derives the output file base from a query keyword: trims
// whitespace, folds full-width punctuation to ASCII, and strips the trailing
// "路" suffix ("B1路" becomes "B1").
func BaseName(keyword string) string {
	s := strings.TrimSpace(keyword)
	s = width.Narrow.String(s)
	return strings.TrimSuffix(s, "路")
}
