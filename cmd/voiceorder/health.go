package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/voiceorder/internal/grpcclient"
	"github.com/GriffinCanCode/voiceorder/internal/server"
)

func newHealthCmd(root *rootOptions) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Probe a running server's gRPC health service",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr == "" {
				addr = root.cfg.GRPCAddr
			}
			c, err := grpcclient.New(addr)
			if err != nil {
				return err
			}
			defer c.Close()

			overall, err := c.Check(cmd.Context(), "")
			if err != nil {
				return err
			}
			session, err := c.Check(cmd.Context(), server.HealthService)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "server: %s\nsession: %s\n", overall, session)
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "gRPC address (GRPC_ADDR)")
	return cmd
}
