// Command entitlementctl runs maintenance tasks against the entitlement
// store: drift detection and repair, per-student inspection and schema
// migrations.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/zeebo/errs"

	"github.com/yigit/musicschool/internal/bootstrap"
	"github.com/yigit/musicschool/internal/config"
)

var (
	rootCmd = &cobra.Command{
		Use:           "entitlementctl",
		Short:         "Entitlement store maintenance",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	configPath string
)

func main() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config",
		config.GetEnv("CONFIG_PATH", bootstrap.DefaultConfigPath), "path to the yaml config file")

	rootCmd.AddCommand(driftCmd)
	rootCmd.AddCommand(repairCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(migrateCmd)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// withDependencies loads the config, opens the infrastructure and builds the
// services for the duration of fn.
func withDependencies(cmd *cobra.Command, fn func(ctx context.Context, deps *bootstrap.Dependencies) error) (err error) {
	ctx := cmd.Context()

	cfg, lgr, err := bootstrap.LoadConfigAndSetupLogger(configPath)
	if err != nil {
		return err
	}

	infra, err := bootstrap.SetupInfrastructure(ctx, cfg, lgr)
	if err != nil {
		return err
	}
	defer func() {
		err = errs.Combine(err, infra.Close())
	}()

	deps, err := bootstrap.BuildDependencies(cfg, infra, lgr)
	if err != nil {
		return err
	}
	return fn(ctx, deps)
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
