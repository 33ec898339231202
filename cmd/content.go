package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tanq16/qurandl/internal/catalog"
	"github.com/tanq16/qurandl/internal/config"
)

func parseContentKind(s string) (catalog.ContentKind, error) {
	switch strings.ToLower(s) {
	case "tafsir", "tafasir":
		return catalog.Tafsir, nil
	case "translation", "translations", "tr":
		return catalog.Translation, nil
	}
	return "", fmt.Errorf("unknown content kind %q, expected tafsir or translation", s)
}

// contentNames falls back to the reader's configured resource.
func contentNames(kind catalog.ContentKind, names []string, cfg *config.Config) []string {
	if len(names) > 0 {
		return names
	}
	if kind == catalog.Tafsir {
		return []string{cfg.Reader.Tafsir}
	}
	return []string{cfg.Reader.Translation}
}

func enqueueContent(q enqueuer, cat *catalog.Catalog, kind catalog.ContentKind, names []string) error {
	for _, name := range names {
		idx, err := cat.ResourceIndex(kind, name)
		if err != nil {
			return err
		}
		if err := q.EnqueueContent(kind, idx); err != nil {
			return err
		}
	}
	return nil
}

func newContentCmd(e *env) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "content [tafsir|translation] [NAME]...",
		Short: "Download tafsir or translation databases",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := parseContentKind(args[0])
			if err != nil {
				return err
			}
			names := contentNames(kind, args[1:], e.cfg)
			if all {
				names = nil
				for _, res := range e.catalog.Resources(kind) {
					names = append(names, res.Name)
				}
			}
			return runQueue(e, func(q enqueuer) error {
				return enqueueContent(q, e.catalog, kind, names)
			})
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Download every resource of this kind")
	return cmd
}
