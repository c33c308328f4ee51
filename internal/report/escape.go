package report

import "strings"

var (
	attrEscaper = strings.NewReplacer(
		"&", "&amp;",
		`"`, "&quot;",
		"<", "&lt;",
	)
	textEscaper = strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
	)
)

// EscapeAttr escapes a value for use inside a double-quoted XML attribute.
// `&`, `"` and `<` are replaced, the minimum XML allows in a quoted
// attribute. Replacement is a single pass, so the ampersand of a produced
// entity is never escaped again.
func EscapeAttr(s string) string {
	return attrEscaper.Replace(s)
}

// EscapeText escapes a value for use as XML element body text.
// `&`, `<` and `>` are replaced; quotes are left alone.
func EscapeText(s string) string {
	return textEscaper.Replace(s)
}
