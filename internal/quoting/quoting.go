// Package quoting provides shared identifier quoting utilities.
package quoting

import "strings"

// Quote wraps an identifier in the given quote style. An empty style returns
// the identifier bare; other styles escape embedded quote characters by
// doubling them.
func Quote(style, s string) string {
	switch style {
	case `"`:
		return DoubleQuote(s)
	case "`":
		return Backtick(s)
	case "":
		return s
	default:
		return style + strings.ReplaceAll(s, style, style+style) + style
	}
}

// DoubleQuote quotes a SQL identifier using double quotes (PostgreSQL, SQLite, ANSI SQL).
// Internal double quotes are escaped by doubling them.
func DoubleQuote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// Backtick quotes a SQL identifier using backticks (MySQL).
// Internal backticks are escaped by doubling them.
func Backtick(s string) string {
	return "`" + strings.ReplaceAll(s, "`", "``") + "`"
}

// EscapeString escapes a string literal for SQL by doubling single quotes
// and escaping backslashes (for MySQL compatibility).
func EscapeString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, "'", "''")
}
