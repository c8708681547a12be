package shim

import (
	"errors"
	"fmt"
	"io"

	"wslrun/internal/failure"
	"wslrun/internal/invocation"
	"wslrun/internal/linkset"
	"wslrun/pkg/protocol"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

// LinkFlag is the only administrative flag.
const LinkFlag = "--link"

var helpLines = []string{
	CanonicalName + " is small WSL process launcher.",
	"usage: " + CanonicalName + " " + LinkFlag + " <name>",
}

var errUsage = errors.New("usage")

func init() {
	// wslrun is a console tool; never hold the window open when started
	// from Explorer.
	cobra.MousetrapHelpText = ""
}

func printHelp(w io.Writer) {
	for _, line := range helpLines {
		fmt.Fprintln(w, line)
	}
}

// runAdmin handles an invocation under CanonicalName. The command line is
// split into arguments again; only "wslrun --link <name>" is accepted.
func runAdmin(stdout io.Writer, commandLine string, linker *linkset.Linker, logger *log.Logger) int {
	args, err := invocation.Fields(commandLine)
	if err != nil {
		logger.Debug("split command line", "err", err)
		printHelp(stdout)
		return protocol.ExitFailure
	}
	if len(args) > 0 {
		args = args[1:]
	}
	// cobra resolves its hidden completion commands before validating
	// arguments, so the shape is checked first.
	if err := linkArgs(nil, args); err != nil {
		logger.Debug("admin command", "args", args, "err", err)
		printHelp(stdout)
		return protocol.ExitFailure
	}

	code := protocol.ExitFailure
	cmd := newAdminCommand(stdout, linker, logger, &code)
	cmd.SetArgs(append([]string{}, args...))
	if err := cmd.Execute(); err != nil {
		logger.Debug("admin command", "args", args, "err", err)
		printHelp(stdout)
		return protocol.ExitFailure
	}
	return code
}

func newAdminCommand(stdout io.Writer, linker *linkset.Linker, logger *log.Logger, code *int) *cobra.Command {
	cmd := &cobra.Command{
		Use:                CanonicalName + " " + LinkFlag + " <name>",
		Short:              helpLines[0],
		DisableFlagParsing: true,
		SilenceErrors:      true,
		SilenceUsage:       true,
		Args:               linkArgs,
		Run: func(cmd *cobra.Command, args []string) {
			*code = createLink(cmd.OutOrStdout(), linker, logger, args[1])
		},
	}
	cmd.CompletionOptions.DisableDefaultCmd = true
	cmd.SetOut(stdout)
	cmd.SetErr(io.Discard)
	cmd.SetHelpFunc(func(c *cobra.Command, _ []string) {
		printHelp(c.OutOrStdout())
	})
	return cmd
}

// linkArgs accepts exactly LinkFlag followed by one name.
func linkArgs(_ *cobra.Command, args []string) error {
	if len(args) != 2 || args[0] != LinkFlag {
		return errUsage
	}
	return nil
}

// createLink returns 0 when the link was created and also when the OS
// refused to create it; only a rejected name exits with failure.
func createLink(stdout io.Writer, linker *linkset.Linker, logger *log.Logger, name string) int {
	_, err := linker.Create(name)
	if err == nil {
		return protocol.ExitSuccess
	}

	report(stdout, logger, err)
	if failure.KindOf(err) == failure.KindLinkRejected {
		return protocol.ExitFailure
	}
	return protocol.ExitSuccess
}
