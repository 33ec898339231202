package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tanq16/qurandl/internal/output"
	"github.com/tanq16/qurandl/internal/utils"
)

func newCleanCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "clean [path]",
		Short: "Remove leftover temporary files of interrupted downloads",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := e.layout.Root
			if len(args) > 0 {
				root = args[0]
			}
			removed, err := utils.Clean(root)
			if err != nil {
				return fmt.Errorf("error cleaning up temporary files: %v", err)
			}
			output.PrintSuccess(fmt.Sprintf("Removed %d temporary director%s under %s", removed, plural(removed, "y", "ies"), root))
			return nil
		},
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
