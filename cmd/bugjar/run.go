package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aretw0/bugjar/internal/cli"
	"github.com/aretw0/bugjar/pkg/ports"
	"github.com/aretw0/bugjar/pkg/scripting"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run [-- COMMAND [ARGS...]]",
	Short: "Attach to the debuggee and open the interactive console",
	Long: `Connects to the configured debuggee, restores saved breakpoints and reads
console commands (break, step, next, run, ...) from standard input.
Type "help" at the prompt for the full list.

Anything after "--" is launched as the debuggee first; it finds the address
to listen on in $BUGJAR_ADDRESS.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup(cmd)
		if err != nil {
			return err
		}
		script, _ := cmd.Flags().GetString("script")
		if len(args) > 0 {
			cfg.Debuggee.Command = args[0]
			cfg.Debuggee.Args = args[1:]
		}

		sc := cli.NewSignalContext(context.Background())
		defer sc.Cancel()

		observers := []ports.Observer{cli.NewConsole(os.Stdout)}
		var engine *scripting.Engine
		if script != "" {
			engine = scripting.New(nil, scripting.WithLogger(logger))
			observers = append(observers, engine)
		}

		app, err := cli.NewApp(sc, cfg, logger, observers...)
		if err != nil {
			return err
		}
		defer app.Close()
		if engine != nil {
			engine.Bind(app.Controller)
			defer engine.Close()
		}

		if err := app.Controller.Start(sc); err != nil {
			return fmt.Errorf("start session: %w", err)
		}
		if engine != nil {
			if err := engine.DoFile(sc, script); err != nil {
				return err
			}
		}

		err = cli.NewStdioREPL(app.Controller).Run(sc)
		if sig := sc.Signal(); sig != nil {
			logger.Info("Interrupted", "signal", sig)
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().String("script", "", "Lua script whose on_* handlers react to session notifications")

	rootCmd.RunE = runCmd.RunE
	rootCmd.Flags().AddFlagSet(runCmd.Flags())
}
