package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/xhad/tradeqa/internal/types"
	"github.com/xhad/tradeqa/pkg/logger"
	"github.com/xhad/tradeqa/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve sessions over WebSocket",
	Long: `Serves one conversation per WebSocket connection on /ws and a health
check on /health. Expired web lookups are purged on the sweep schedule.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides server.addr)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := prepare(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	addr := a.cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}

	srv, err := server.NewWSServer(a.newSession, server.ServerConfig{
		Addr:          addr,
		SweepSchedule: a.cfg.Server.SweepSchedule,
		Purgers:       []server.Purger{a.enricher, a.analyzer},
	})
	if err != nil {
		return err
	}
	// Connections carry their own notifier; anything raised outside a
	// request goes to the log rather than a terminal nobody watches.
	log := logger.New("serve")
	a.notifier.Attach(types.NotifierFunc(func(message string) {
		log.Warn(message)
	}))

	return srv.ListenAndServe(ctx)
}
