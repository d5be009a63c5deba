package content

import (
	"html"
	"strings"
)

// RenderHTML turns chapter text into an HTML fragment for display. The text is
// escaped before line breaks become <br/>, so generated markup is shown literally
// rather than interpreted.
func RenderHTML(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.ReplaceAll(html.EscapeString(text), "\n", "<br/>")
}
