package main

import (
	"fmt"

	"boxfm/internal/archive"
	"boxfm/internal/browse"
	"boxfm/internal/config"
	"boxfm/internal/fileops"
	"boxfm/internal/logging"
	"boxfm/internal/search"
	"boxfm/internal/trash"
	"boxfm/pkg/pathguard"

	"github.com/spf13/cobra"
)

// app wires the guard and the managers behind the CLI commands.
type app struct {
	cfg     *config.Config
	logger  *logging.AppLogger
	guard   *pathguard.Guard
	files   *fileops.Manager
	trash   *trash.Manager
	search  *search.Engine
	archive *archive.Handler
	lister  *browse.Lister
}

func newApp(logger *logging.AppLogger) (*app, error) {
	if config.IsFirstRun() {
		cfg := config.DefaultConfig()
		if err := cfg.Save(); err != nil {
			return nil, fmt.Errorf("writing initial config: %w", err)
		}
		logger.Info("Wrote initial configuration")
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	guard := pathguard.Default()

	trashMgr, err := trash.NewManager(cfg.TrashDir, guard, logger)
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:     cfg,
		logger:  logger,
		guard:   guard,
		files:   fileops.NewManager(guard, logger, trashMgr),
		trash:   trashMgr,
		search:  search.NewEngine(guard, logger),
		archive: archive.NewHandler(guard, logger),
		lister:  browse.NewLister(guard, logger),
	}, nil
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "boxfm",
		Short: "Guarded file manager for receiver storage",
		Long: `boxfm manages files on set-top-box style storage. Every path in every
command is validated before use: symlink chains are audited, system
directories are off limits, and permissions are checked up front.`,
		SilenceUsage: true,
	}

	root.AddCommand(
		a.lsCmd(),
		a.cpCmd(),
		a.mvCmd(),
		a.renameCmd(),
		a.rmCmd(),
		a.mkdirCmd(),
		a.infoCmd(),
		a.checkCmd(),
		a.searchCmd(),
		a.trashCmd(),
		a.archiveCmd(),
		a.dfCmd(),
	)
	return root
}
