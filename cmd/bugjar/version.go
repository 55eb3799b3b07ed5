package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/bugjar"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of bugjar",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("bugjar version %s\n", strings.TrimSpace(bugjar.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
