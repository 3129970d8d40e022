// Package main is the entry point for the guildmaster game server.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "guildmaster",
	Short: "Guildmaster game server",
	Long:  `Guildmaster runs the authoritative co-op simulation: movement, combat, enemy AI, map transitions, and the websocket gateway clients connect to.`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
