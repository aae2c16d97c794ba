// Command supportctl runs support detection offline and performs small admin chores.
package main

import (
	"io"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "supportctl",
		Short:         "Offline tools for the support tracker",
		SilenceUsage:  true,
	}
	root.SetOut(out)
	root.SetErr(errOut)
	root.AddCommand(newDetectCmd(), newTokenCmd(), newFetchCmd())
	return root
}
