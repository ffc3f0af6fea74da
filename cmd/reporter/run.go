package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mohammad-safakhou/reporter/config"
	"github.com/mohammad-safakhou/reporter/internal/console"
	"github.com/mohammad-safakhou/reporter/internal/logging"
	"github.com/mohammad-safakhou/reporter/internal/state"
)

func runCMD(cfgPath *string) *cobra.Command {
	var resume, fresh bool
	var run = &cobra.Command{
		Use:   "run [query]",
		Short: "Plan, research and write a report for a query",
		RunE: func(cmd *cobra.Command, args []string) error {
			if resume && fresh {
				return errors.New("--resume and --fresh are mutually exclusive")
			}
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			logger, err := logging.New(cfg.General)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			ui := console.Stdio()
			query := strings.TrimSpace(strings.Join(args, " "))
			if query == "" {
				query = strings.TrimSpace(cfg.General.Query)
			}
			if query == "" {
				if query, err = ui.Ask(ctx, "What should the report be about?"); err != nil {
					return err
				}
			}

			a, err := newApp(ctx, cfg, logger, ui)
			if err != nil {
				return err
			}
			defer a.Close()

			choice := askUser
			switch {
			case resume:
				choice = alwaysResume
			case fresh:
				choice = alwaysFresh
			}
			rs, err := a.prepareRun(ctx, query, choice)
			if err != nil {
				return err
			}

			rs, err = a.orch.Run(ctx, rs)
			if err != nil {
				logger.Error("run failed", zap.Error(err))
				return err
			}

			res, err := a.writer.Write(state.SanitizeTitle(rs.Title), rs.Output())
			if err != nil {
				return fmt.Errorf("write report: %w", err)
			}
			ui.Notice("Report written to %s", res.Markdown)
			if res.HTML != "" {
				ui.Notice("HTML version at %s", res.HTML)
			}
			return nil
		},
	}
	run.Flags().BoolVar(&resume, "resume", false, "resume a matching checkpoint without asking")
	run.Flags().BoolVar(&fresh, "fresh", false, "discard a matching checkpoint without asking")
	return run
}
