package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"reward-core/internal/app"
	"reward-core/pkg/config"
	"reward-core/pkg/logger"
)

var cfgFile string

// rootCmd 代表基础命令，没有子命令时直接调用
var rootCmd = &cobra.Command{
	Use:   "reward-console",
	Short: "Global Classrooms reward distribution console",
	Long: `Admin console for distributing G$ rewards to the schools of completed projects.

Workflow: projects -> wallets -> preview -> distribute -> monitor -> audit.
Run "reward-console sandbox" to serve an in-memory backend for local use.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		config.Global = *cfg
		return logger.Init(cfg.App.Env, cfg.App.LogLevel)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Sync()
	},
}

// Execute 将所有子命令添加到根命令并设置标志
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./config.yaml or $HOME/.reward-console/config.yaml)")
}

// newApp wires the console from config.Global. Callers must Close it.
func newApp(cmd *cobra.Command) (*app.App, error) {
	cfg := config.Global
	return app.New(cmd.Context(), &cfg, app.Options{
		OnUnauthorized: func() {
			fmt.Fprintln(cmd.ErrOrStderr(), "Session expired. Run `reward-console login` to sign in again.")
		},
	})
}
