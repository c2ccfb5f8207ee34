// Command klock runs the coordination server, or evaluates a single
// intent manifest from stdin for one-shot conflict checking.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const versionString = "0.1.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "klock",
		Short:   "Klock — coordination protocol for multi-agent systems",
		Version: versionString,
	}
	root.AddCommand(newServeCmd())
	root.AddCommand(newCheckCmd())
	root.AddCommand(newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("klock %s\n", versionString)
			fmt.Println("Go coordination kernel for multi-agent systems")
			return nil
		},
	}
}
