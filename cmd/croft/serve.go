package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jbweber/homelab/croft/internal/api"
	"github.com/jbweber/homelab/croft/internal/config"
	"github.com/jbweber/homelab/croft/internal/server"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the inventory server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd)
		},
	}
}

func runServe(cmd *cobra.Command) error {
	cfg := config.Load()

	log, err := cfg.Logger()
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	st, err := cfg.OpenStore()
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			log.Warn("failed to close store", zap.Error(err))
		}
	}()

	srv := server.New(cfg.AuthSecret, st, log)
	if err := srv.Listen(cfg.ListenAddr()); err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Info("signal received", zap.String("signal", sig.String()))
		srv.Shutdown(server.ShutdownMessage)
	}()

	// Operator console on stdin shares the server's inventory facade.
	console := server.NewConsole(os.Stdin, os.Stdout, srv.Inventory(), func() {
		srv.Shutdown(server.ShutdownMessage)
	}, log)
	go func() {
		if err := console.Run(cmd.Context()); err != nil {
			log.Warn("console stopped", zap.Error(err))
		}
	}()

	if cfg.HTTPAddr != "" {
		r := chi.NewRouter()
		r.Use(middleware.Logger)
		r.Use(middleware.Recoverer)
		api.NewAPI(srv.Inventory(), log).RegisterRoutes(r)

		go func() {
			log.Info("http inventory api listening", zap.String("addr", cfg.HTTPAddr))
			if err := http.ListenAndServe(cfg.HTTPAddr, r); err != nil {
				log.Error("http server failed", zap.Error(err))
			}
		}()
	}

	return srv.Serve(cmd.Context())
}
