// Command wslrun runs Linux commands in WSL under their own names.
// Link the binary as "ls.exe", "grep.exe", ... with "wslrun --link <name>";
// invoking a link forwards its command line to the default distribution and
// exits with the command's exit code.
package main

import (
	"os"

	"wslrun/internal/shim"
)

func main() {
	os.Exit(shim.Run())
}
