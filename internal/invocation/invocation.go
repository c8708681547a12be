// Package invocation derives the inner command from how the binary was
// invoked. The program token of the raw command line names the command;
// everything after it is forwarded as an opaque string.
package invocation

import "strings"

// Invocation is the raw command line of a process together with the parts
// derived from it.
type Invocation struct {
	Raw     string // command line as handed to the process
	Program string // invoked path, blanks and quotes removed
	Name    string // file name of Program without its extension
	Args    string // text after the program token, verbatim
}

// Split derives the command name and trailing arguments from a raw command
// line. The program token ends at the first space outside double quotes and
// that single space is consumed; the rest is returned untouched.
func Split(raw string) Invocation {
	token, args := cutProgram(raw)

	program := unquote(strings.Trim(token, " "))
	return Invocation{
		Raw:     raw,
		Program: program,
		Name:    trimExtension(fileName(program)),
		Args:    args,
	}
}

func cutProgram(raw string) (token, args string) {
	quoted := false
	for i := 0; i < len(raw); i++ {
		switch raw[i] {
		case ' ':
			if !quoted {
				return raw[:i], raw[i+1:]
			}
		case '"':
			quoted = !quoted
		}
	}
	return raw, ""
}

func unquote(s string) string {
	if strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`) {
		if len(s) < 2 {
			return ""
		}
		return s[1 : len(s)-1]
	}
	return s
}

// fileName returns the component after the last path separator or drive
// colon. A separator in the final position does not start a new component.
func fileName(path string) string {
	start := 0
	for i := 0; i < len(path)-1; i++ {
		if isSeparator(path[i]) && path[i+1] != '\\' && path[i+1] != '/' {
			start = i + 1
		}
	}
	return path[start:]
}

func isSeparator(c byte) bool {
	return c == '\\' || c == '/' || c == ':'
}

// trimExtension removes the text from the last dot, unless a space or
// backslash follows that dot.
func trimExtension(name string) string {
	dot := -1
	for i := 0; i < len(name); i++ {
		switch name[i] {
		case '\\', ' ':
			dot = -1
		case '.':
			dot = i
		}
	}
	if dot < 0 {
		return name
	}
	return name[:dot]
}

// Command joins the command name and the trailing arguments with a single
// space. The space is emitted even when there are no arguments.
func (inv Invocation) Command() string {
	return inv.Name + " " + inv.Args
}
