package cmd

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/tanq16/qurandl/internal/catalog"
	"github.com/tanq16/qurandl/internal/config"
	"github.com/tanq16/qurandl/internal/dirs"
	"github.com/tanq16/qurandl/internal/output"
	"github.com/tanq16/qurandl/internal/utils"
)

var QurandlVersion = "dev"

// env holds the root flags and what setup builds from them. It is created
// once per invocation and handed to every subcommand.
type env struct {
	configPath   string
	downloadsDir string
	debug        bool
	logFile      string
	headers      []string

	cfg      *config.Config
	catalog  *catalog.Catalog
	layout   dirs.Layout
	closeLog func()
}

func (e *env) setup() error {
	closeLog, err := utils.InitLogger(e.debug, e.logFile)
	if err != nil {
		return err
	}
	e.closeLog = closeLog

	cfg, err := config.Load(e.configPath)
	if err != nil {
		return err
	}
	// flag headers apply to this run only and are not written back
	for k, v := range utils.ParseHeaderArgs(e.headers) {
		cfg.Downloader.Headers[k] = v
	}
	if cfg.Downloader.UserAgent == "randomize" {
		cfg.Downloader.UserAgent = utils.GetRandomUserAgent()
	}
	root, err := cfg.ResolveDownloadsDir(e.downloadsDir)
	if err != nil {
		return fmt.Errorf("error resolving downloads directory: %v", err)
	}
	cat, err := catalog.Load(cfg.CatalogFile)
	if err != nil {
		return err
	}
	layout := dirs.Layout{Root: root}
	if err := layout.CreateSkeleton(cat.Reciters); err != nil {
		return err
	}
	log.Debug().Str("op", "cmd/root").Str("config", cfg.Path()).Str("downloads", root).Msg("environment ready")
	e.cfg = cfg
	e.catalog = cat
	e.layout = layout
	return nil
}

func newRootCmd() *cobra.Command {
	e := &env{}
	rootCmd := &cobra.Command{
		Use:           "qurandl",
		Short:         "qurandl downloads Quran recitations, tafasir and translations",
		Version:       QurandlVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return e.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if e.closeLog != nil {
				e.closeLog()
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&e.configPath, "config", "c", "", "Config file path (defaults to the user config dir)")
	rootCmd.PersistentFlags().StringVarP(&e.downloadsDir, "downloads", "d", "", "Downloads root (overrides downloads_dir)")
	rootCmd.PersistentFlags().BoolVar(&e.debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&e.logFile, "log-file", "", "Also append logs to this file")
	rootCmd.PersistentFlags().StringArrayVarP(&e.headers, "header", "H", []string{}, "Extra request header (like 'Authorization: Basic dXNlcjpwYXNz'); can be specified multiple times")

	rootCmd.AddCommand(newRecitationCmd(e))
	rootCmd.AddCommand(newContentCmd(e))
	rootCmd.AddCommand(newBatchCmd(e))
	rootCmd.AddCommand(newRecitersCmd(e))
	rootCmd.AddCommand(newMissingCmd(e))
	rootCmd.AddCommand(newSyncCmd(e))
	rootCmd.AddCommand(newCleanCmd(e))
	rootCmd.AddCommand(newConfigCmd(e))
	return rootCmd
}

func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		output.PrintError(err.Error())
		os.Exit(1)
	}
}
