//go:build !windows

package invocation

import (
	"fmt"
	"os"
	"strings"

	"mvdan.cc/sh/v3/shell"
	"mvdan.cc/sh/v3/syntax"
)

// Raw rebuilds a command line from os.Args. The program token is wrapped in
// double quotes when it contains a space; the arguments are shell-quoted so
// that Fields recovers them unchanged.
func Raw() string {
	return Join(os.Args)
}

// Join builds a command line from an argument vector.
func Join(argv []string) string {
	if len(argv) == 0 {
		return ""
	}

	parts := make([]string, 0, len(argv))
	program := argv[0]
	if strings.ContainsAny(program, " \t") {
		program = `"` + program + `"`
	}
	parts = append(parts, program)

	for _, arg := range argv[1:] {
		quoted, err := syntax.Quote(arg, syntax.LangBash)
		if err != nil {
			quoted = arg
		}
		parts = append(parts, quoted)
	}
	return strings.Join(parts, " ")
}

// Fields splits a command line into arguments with POSIX shell rules.
// Variables expand to nothing; Join never leaves one unquoted.
func Fields(raw string) ([]string, error) {
	args, err := shell.Fields(raw, func(string) string { return "" })
	if err != nil {
		return nil, fmt.Errorf("split command line: %w", err)
	}
	return args, nil
}
