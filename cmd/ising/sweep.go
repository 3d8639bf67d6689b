package main

import (
	"math/big"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/GoSim-25-26J-441/ising-core/internal/metrics"
	"github.com/GoSim-25-26J-441/ising-core/internal/output"
	"github.com/GoSim-25-26J-441/ising-core/internal/sweep"
	"github.com/GoSim-25-26J-441/ising-core/pkg/logger"
)

func newSweepCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Run the temperature sweep and write one CSV trace per temperature",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSweep(cmd, opts)
		},
	}
	addSweepFlags(cmd, opts)
	return cmd
}

func runSweep(cmd *cobra.Command, opts *options) error {
	cfg, err := opts.load(cmd)
	if err != nil {
		return err
	}

	sink, err := output.NewCSVSink(cfg.Output.Dir, cfg.Output.Prefix)
	if err != nil {
		return err
	}
	runner := sweep.NewRunner(cfg, sink)

	ts, err := runner.Temperatures()
	if err != nil {
		return err
	}
	totalFlips := new(big.Int).Mul(
		new(big.Int).SetUint64(cfg.Simulation.Steps),
		big.NewInt(int64(len(ts))))
	logger.Info("sweep planned",
		"temperatures", len(ts),
		"total_flips", humanize.BigComma(totalFlips),
		"dir", cfg.Output.Dir,
		"prefix", cfg.Output.Prefix)

	report, err := runner.Run(cmd.Context())
	if err != nil {
		if report != nil {
			logger.Error("sweep aborted", "completed", report.Completed, "of", len(report.Temperatures), "error", err)
		}
		return err
	}

	summary := metrics.ConvertToRunMetrics(runner.Collector())
	logger.Info("sweep summary",
		"artifacts", report.Completed,
		"dir", cfg.Output.Dir,
		"attempted", summary.AttemptedFlips,
		"accepted", summary.AcceptedFlips,
		"acceptance_ratio", summary.AcceptanceRatio,
		"duration", report.Duration)
	return nil
}
