package main

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/aretw0/bugjar/internal/cli"
	"github.com/aretw0/bugjar/internal/config"
	"github.com/aretw0/bugjar/pkg/adapters/redis"
	"github.com/aretw0/bugjar/pkg/domain"
	"github.com/aretw0/bugjar/pkg/ports"
	"github.com/spf13/cobra"
)

var breakpointsCmd = &cobra.Command{
	Use:     "breakpoints",
	Aliases: []string{"bp"},
	Short:   "Inspect the persisted breakpoint store",
}

// openStore opens the configured repository without dialing a debuggee.
func openStore(cmd *cobra.Command) (ports.BreakpointRepository, string, func() error, error) {
	cfg, _, err := setup(cmd)
	if err != nil {
		return nil, "", nil, err
	}

	var closers []func() error
	closeAll := func() error {
		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			errs = append(errs, closers[i]())
		}
		return errors.Join(errs...)
	}

	r := cfg.Transport.Redis
	var repo ports.BreakpointRepository
	var closeRepo func() error
	if cfg.Store.Kind == config.StoreRedis {
		client := redis.NewClient(r.Address, r.Password, r.DB)
		closers = append(closers, client.Close)
		repo, closeRepo, err = cli.NewRepository(cfg, client)
	} else {
		repo, closeRepo, err = cli.NewRepository(cfg, nil)
	}
	if err != nil {
		_ = closeAll()
		return nil, "", nil, err
	}
	closers = append(closers, closeRepo)
	return repo, cfg.Session, closeAll, nil
}

var breakpointsListCmd = &cobra.Command{
	Use:   "ls",
	Short: "List the sessions with saved breakpoints",
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, _, closeStore, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer closeStore()

		ids, err := repo.List(cmd.Context())
		if err != nil {
			return err
		}
		for _, id := range ids {
			fmt.Fprintln(cmd.OutOrStdout(), id)
		}
		return nil
	},
}

var breakpointsShowCmd = &cobra.Command{
	Use:   "show [SESSION]",
	Short: "Print the saved breakpoints of a session",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, id, closeStore, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer closeStore()
		if len(args) == 1 {
			id = args[0]
		}

		snap, err := repo.Load(cmd.Context(), id)
		if err != nil {
			return fmt.Errorf("session %q: %w", id, err)
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "LOCATION\tSTATE\tIGNORE")
		for i := range snap.Breakpoints {
			bp := &snap.Breakpoints[i]
			fmt.Fprintf(tw, "%s\t%s\t%d\n", bp.Location(), domain.DeriveState(bp), bp.IgnoreCount)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Updated %s\n", snap.UpdatedAt.Format("2006-01-02 15:04:05 MST"))
		return nil
	},
}

var breakpointsRemoveCmd = &cobra.Command{
	Use:   "rm [SESSION]",
	Short: "Delete the saved breakpoints of a session",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, id, closeStore, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer closeStore()
		if len(args) == 1 {
			id = args[0]
		}
		if err := repo.Delete(cmd.Context(), id); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed breakpoints of session %q\n", id)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(breakpointsCmd)
	breakpointsCmd.AddCommand(breakpointsListCmd, breakpointsShowCmd, breakpointsRemoveCmd)
}
