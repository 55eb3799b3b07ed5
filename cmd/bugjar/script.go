package main

import (
	"context"
	"fmt"

	"github.com/aretw0/bugjar/internal/cli"
	"github.com/aretw0/bugjar/pkg/scripting"
	"github.com/spf13/cobra"
)

var scriptCmd = &cobra.Command{
	Use:   "script FILE.lua",
	Short: "Drive the session from a Lua script",
	Long: `Attaches to the debuggee, runs the script and then keeps dispatching
notifications to its on_* handlers until interrupted. Pass --once to exit
as soon as the script body returns.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup(cmd)
		if err != nil {
			return err
		}
		once, _ := cmd.Flags().GetBool("once")

		sc := cli.NewSignalContext(context.Background())
		defer sc.Cancel()

		engine := scripting.New(nil, scripting.WithLogger(logger))
		defer engine.Close()

		app, err := cli.NewApp(sc, cfg, logger, cli.NewConsole(cmd.OutOrStdout()), engine)
		if err != nil {
			return err
		}
		defer app.Close()
		engine.Bind(app.Controller)

		if err := app.Controller.Start(sc); err != nil {
			return fmt.Errorf("start session: %w", err)
		}
		if err := engine.DoFile(sc, args[0]); err != nil {
			return err
		}
		if once {
			return nil
		}
		<-sc.Done()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(scriptCmd)
	scriptCmd.Flags().Bool("once", false, "Exit after the script body returns")
}
