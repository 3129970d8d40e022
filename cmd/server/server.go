package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"guildmaster/server/internal/app"
)

var serverCfg = app.DefaultConfig()

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the game server",
	Long:  `Start the authoritative simulation loop and serve the websocket and HTTP endpoints.`,
	RunE:  runServer,
}

func init() {
	serverCmd.Flags().StringVar(&serverCfg.Addr, "addr", serverCfg.Addr, "HTTP listen address")
	serverCmd.Flags().StringVar(&serverCfg.ClientDir, "client-dir", "", "directory of static client assets to serve at /")
	serverCmd.Flags().StringVar(&serverCfg.RedisAddr, "redis", "", "redis address for the journal; empty disables journaling")
	serverCmd.Flags().StringVar(&serverCfg.JournalNamespace, "journal-namespace", "", "redis key namespace for the journal")
	serverCmd.Flags().IntVar(&serverCfg.KeyframeInterval, "keyframe-interval", serverCfg.KeyframeInterval, "ticks between persisted keyframes")
	serverCmd.Flags().IntVar(&serverCfg.TickRate, "tick-rate", serverCfg.TickRate, "simulation ticks per second")
	serverCmd.Flags().StringVar(&serverCfg.LogJSONPath, "log-json", "", "path for the JSON event log; empty disables the sink")
	serverCmd.Flags().BoolVar(&serverCfg.Debug, "debug", false, "enable debug logging")
}

func runServer(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Println("Received shutdown signal, gracefully stopping...")
		cancel()
	}()

	return app.Run(ctx, serverCfg)
}
