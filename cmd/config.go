package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tanq16/qurandl/internal/output"
	"gopkg.in/yaml.v3"
)

func newConfigCmd(e *env) *cobra.Command {
	var pathOnly bool

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if pathOnly {
				fmt.Println(e.cfg.Path())
				return nil
			}
			data, err := yaml.Marshal(e.cfg.Redacted())
			if err != nil {
				return fmt.Errorf("error encoding config: %v", err)
			}
			output.PrintHeader("# " + e.cfg.Path())
			output.PrintDetail("# downloads root: " + e.layout.Root)
			fmt.Print(string(data))
			return nil
		},
	}

	cmd.Flags().BoolVar(&pathOnly, "path", false, "Print only the config file path")
	return cmd
}
