package main

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/mohammad-safakhou/reporter/config"
	"github.com/mohammad-safakhou/reporter/internal/checkpoint"
	"github.com/mohammad-safakhou/reporter/internal/orchestrator"
	"github.com/mohammad-safakhou/reporter/internal/state"
)

func recoveryCMD(cfgPath *string) *cobra.Command {
	var recovery = &cobra.Command{
		Use:   "recovery",
		Short: "Inspect and remove run checkpoints",
	}
	recovery.AddCommand(recoveryListCMD(cfgPath), recoveryCleanCMD(cfgPath))
	return recovery
}

func recoveryListCMD(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List checkpointed runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			store, closeStore, err := openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer func() { _ = closeStore() }()

			found, skipped, err := orchestrator.ListCheckpoints(cmd.Context(), store, cfg.Paths.RecoveryDir)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(found) == 0 {
				fmt.Fprintln(out, "No checkpoints found.")
			} else {
				w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, color.New(color.Bold).Sprint("TITLE\tTASKS\tRESUMABLE\tQUERY"))
				for _, c := range found {
					fmt.Fprintf(w, "%s\t%d/%d\t%t\t%s\n", c.Run.Title, c.Completed(), len(c.Run.Tasks), c.Run.LoadRecovery, c.Run.Query)
				}
				_ = w.Flush()
			}
			for p, err := range skipped {
				color.New(color.FgYellow).Fprintf(cmd.ErrOrStderr(), "skipped %s: %v\n", p, err)
			}
			return nil
		},
	}
}

func recoveryCleanCMD(cfgPath *string) *cobra.Command {
	var all bool
	var clean = &cobra.Command{
		Use:   "clean [title...]",
		Short: "Remove checkpointed runs by title, or every run with --all",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !all && len(args) == 0 {
				return errors.New("name at least one title or pass --all")
			}
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			store, closeStore, err := openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer func() { _ = closeStore() }()

			var paths []string
			if all {
				if paths, err = store.Find(cmd.Context(), cfg.Paths.RecoveryDir); err != nil {
					return err
				}
			} else {
				for _, title := range args {
					dir := checkpoint.RunDir(cfg.Paths.RecoveryDir, state.SanitizeTitle(title))
					paths = append(paths, checkpoint.RunPath(dir))
				}
			}
			for _, p := range paths {
				if err := orchestrator.Discard(cmd.Context(), store, &orchestrator.Checkpoint{Path: p}); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", p)
			}
			return nil
		},
	}
	clean.Flags().BoolVar(&all, "all", false, "remove every checkpointed run")
	return clean
}

