package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "daybook",
		Short: "Personal task calendar backend",
		Long: `daybook keeps dated tasks in per-day order and projects them into
month and week views alongside public holidays.

Configuration is read from DAYBOOK_* environment variables; flags override them.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCommand(), newWeekCommand())
	return root
}
