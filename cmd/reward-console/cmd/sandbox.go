package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"reward-core/internal/sandbox"
	"reward-core/pkg/config"
)

var sandboxCmd = &cobra.Command{
	Use:   "sandbox",
	Short: "Serve an in-memory admin API for local testing",
	Long: `Serves every admin reward endpoint from memory with seeded projects.
Transactions advance one state per status poll.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")
		if addr == "" {
			addr = config.Global.Sandbox.Addr
		}
		seed := sandbox.DefaultSeed()
		fmt.Fprintf(cmd.OutOrStdout(), "Sandbox listening on %s (login: %s / %s)\n", addr, seed.AdminEmail, seed.AdminPassword)

		store := sandbox.NewStore(seed)
		srv := sandbox.NewServer(addr, sandbox.NewRouter(sandbox.NewHandler(store)))
		return srv.Run(cmd.Context())
	},
}

func init() {
	sandboxCmd.Flags().String("addr", "", "listen address (default sandbox.addr)")
	rootCmd.AddCommand(sandboxCmd)
}
