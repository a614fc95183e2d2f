// File: cmd/divergence.go
package cmd

import (
	"fmt"
	"runtime"

	json "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"github.com/xkilldash9x/farbler/internal/divergence"
	"github.com/xkilldash9x/farbler/internal/farbling"
	"github.com/xkilldash9x/farbler/internal/observability"
)

func newDivergenceCmd() *cobra.Command {
	var (
		level   string
		samples int
		workers int
		cores   int
	)

	cmd := &cobra.Command{
		Use:   "divergence",
		Short: "Measure how often unrelated browsing contexts receive the same farbled values",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := getConfigFromContext(cmd.Context())
			if err != nil {
				return err
			}
			parsed, err := farbling.ParseLevel(level)
			if err != nil {
				return fmt.Errorf("--level: %w", err)
			}

			dcfg := cfg.Divergence()
			if cmd.Flags().Changed("samples") {
				dcfg.Samples = samples
			}
			if cmd.Flags().Changed("concurrency") {
				dcfg.Concurrency = workers
			}
			if cores <= 0 {
				cores = runtime.NumCPU()
			}

			runner, err := divergence.NewRunner(dcfg, cores, observability.GetLogger())
			if err != nil {
				return err
			}
			report, err := runner.Run(cmd.Context(), parsed)
			if err != nil {
				return err
			}

			out, err := json.MarshalIndent(report, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to serialize report to JSON: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return err
		},
	}

	cmd.Flags().StringVarP(&level, "level", "l", farbling.Balanced.String(), "farbling level to sample")
	cmd.Flags().IntVarP(&samples, "samples", "n", 0, "number of context pairs (default from config)")
	cmd.Flags().IntVar(&workers, "concurrency", 0, "parallel workers (default from config)")
	cmd.Flags().IntVar(&cores, "cores", 0, "real logical core count (default: this machine)")
	return cmd
}
