package cmd

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/tanq16/qurandl/internal/content"
	"github.com/tanq16/qurandl/internal/output"
	"github.com/tanq16/qurandl/internal/utils"
)

func newSyncCmd(e *env) *cobra.Command {
	var repo, branch string
	var depth int

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Clone or update the git repository of content resources",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := content.SyncOptions{
				Repo:   e.cfg.Content.Repo,
				Dir:    e.layout.SyncDir(),
				Branch: e.cfg.Content.Branch,
				Depth:  e.cfg.Content.Depth,
				Token:  e.cfg.Content.Token,
				SSHKey: e.cfg.Content.SSHKey,
			}
			if repo != "" {
				opts.Repo = repo
			}
			if branch != "" {
				opts.Branch = branch
			}
			if cmd.Flags().Changed("depth") {
				opts.Depth = depth
			}

			manager := output.NewManager(os.Stdout)
			row := manager.Register("content sync")
			opts.Progress = func(line string) {
				manager.AddStreamLine(row, line)
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			manager.StartDisplay()
			manager.Start(row, "Syncing "+opts.Repo)
			result, err := content.Sync(ctx, opts)
			if err != nil {
				manager.ReportError(row, err)
				manager.StopDisplay()
				return err
			}
			switch {
			case result.Cloned:
				manager.Complete(row, fmt.Sprintf("Cloned %s into %s", opts.Repo, result.Dir))
			case result.UpToDate:
				manager.Complete(row, "Content already up to date")
			default:
				manager.Complete(row, "Content updated")
			}
			manager.StopDisplay()
			output.PrintDetail(fmt.Sprintf("HEAD %s, %s on disk", result.Head, utils.FormatBytes(uint64(result.Size))))
			return nil
		},
	}

	cmd.Flags().StringVar(&repo, "repo", "", "Repository URL (overrides content.repo)")
	cmd.Flags().StringVar(&branch, "branch", "", "Branch to track (overrides content.branch)")
	cmd.Flags().IntVar(&depth, "depth", 0, "Clone depth, 0 for full history (overrides content.depth)")
	return cmd
}
