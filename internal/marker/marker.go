// Package marker rewrites sentinel.Start/sentinel.End pairs embedded in
// rendered HTML (C7): stray markers that straddle a tag boundary are
// dropped, and surviving markers become <span class="vandalism-ID">
// wrappers, adapted from original_source/src/page.rs's
// remove_merge_markers_from_html.
package marker

import (
	"regexp"

	"github.com/Sumatoshi-tech/wikiguard/internal/sentinel"
)

// strayEndInsideTag matches a marker whose start sits in text but whose
// end lands inside a tag's attributes; the wrapping isn't renderable,
// so both marker occurrences are dropped, keeping only the tag.
var strayEndInsideTag = regexp.MustCompile(
	sentinel.Start + `[0-9]+` + sentinel.Start + `([^` + sentinel.End + `]*?)<([^>]*?)` +
		sentinel.End + `[0-9]+` + sentinel.End + `([^>]*?)>`,
)

// strayStartInsideTag matches the mirror image: the start marker lands
// inside a tag, the end marker sits in the following text.
var strayStartInsideTag = regexp.MustCompile(
	`<([^>]*?)` + sentinel.Start + `[0-9]+` + sentinel.Start + `([^>]*?)>([^` + sentinel.End + `]*?)` +
		sentinel.End + `[0-9]+` + sentinel.End,
)

// strayBothInsideTag matches a marker whose start and end both land
// inside (different) tags.
var strayBothInsideTag = regexp.MustCompile(
	`<([^>]*?)` + sentinel.Start + `[0-9]+` + sentinel.Start + `([^>]*?)>([^` + sentinel.Start + sentinel.End + `]*?)<([^>]*?)` +
		sentinel.End + `[0-9]+` + sentinel.End + `([^>]*?)>`,
)

var (
	validStart = regexp.MustCompile(sentinel.Start + `([0-9]+)` + sentinel.Start)
	validEnd   = regexp.MustCompile(sentinel.End + `[0-9]+` + sentinel.End)
)

// RemoveStray strips marker pairs that straddle an HTML tag boundary,
// since wrapping a <span> around part of a tag would produce invalid
// markup. Markers fully outside or fully inside tag text are untouched.
func RemoveStray(html string) string {
	html = strayEndInsideTag.ReplaceAllString(html, "$1<$2$3>")
	html = strayStartInsideTag.ReplaceAllString(html, "<$1$2>$3")
	html = strayBothInsideTag.ReplaceAllString(html, "<$1$2>$3<$4$5>")

	return html
}

// Render converts every surviving sentinel.Start/sentinel.End pair into
// a <span class="vandalism-ID" style="color:red">...</span> wrapper,
// visually marking restored content in the final page.
func Render(html string) string {
	html = validEnd.ReplaceAllString(html, "</span>")
	html = validStart.ReplaceAllString(html, `<span class="vandalism-$1" style="color:red">`)

	return html
}

// Finish applies RemoveStray followed by Render, the full pipeline
// between a raw merged page body and the HTML served to readers.
func Finish(html string) string {
	return Render(RemoveStray(html))
}
