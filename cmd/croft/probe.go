package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jbweber/homelab/croft/internal/config"
	"github.com/jbweber/homelab/croft/internal/probe"
)

func newProbeCommand() *cobra.Command {
	var (
		addr      string
		machineID string
		skipAuth  bool
	)

	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Run a scripted client session against the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if addr == "" {
				addr = fmt.Sprintf("127.0.0.1:%d", cfg.ListenPort)
			}
			return probe.Run(cmd.Context(), probe.Options{
				Addr:      addr,
				Secret:    cfg.AuthSecret,
				MachineID: machineID,
				SkipAuth:  skipAuth,
				Out:       os.Stdout,
			})
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "server address (default 127.0.0.1:<listen port>)")
	cmd.Flags().StringVar(&machineID, "id", "", "machine id to announce (default random)")
	cmd.Flags().BoolVar(&skipAuth, "skip-auth", false, "skip AUTH to exercise failure responses")

	return cmd
}
