// Package shellescape provides safe construction of shell command strings
// embedded in single-quote contexts, ported from the daemon's Rust
// predecessor (audb's tools::shell_escape).
package shellescape

import "strings"

// SingleQuote escapes s for use inside a single-quoted shell argument.
// In a single-quote context, only the quote character itself needs
// escaping: close the quote, emit an escaped quote, and reopen it.
//
//	SingleQuote(`a'b`) == `a'\''b`
func SingleQuote(s string) string {
	return strings.ReplaceAll(s, "'", `'\''`)
}

// Quoted wraps s in single quotes after escaping its contents, producing a
// string that can be spliced directly into a shell command.
func Quoted(s string) string {
	return "'" + SingleQuote(s) + "'"
}
