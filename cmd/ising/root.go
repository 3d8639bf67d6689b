package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/GoSim-25-26J-441/ising-core/pkg/config"
	"github.com/GoSim-25-26J-441/ising-core/pkg/logger"
)

// options holds flag values shared by every command
type options struct {
	configPath string
	logLevel   string
	logFormat  string
	seed       int64
	sampling   string

	outputDir string
	prefix    string
	workers   int
	start     float64
	end       float64
	step      float64
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:   "ising",
		Short: "Metropolis Monte Carlo simulation of the 2D Ising model",
		Long: `ising runs Metropolis simulations of the 2D Ising model on a periodic
square lattice and writes one energy trace per temperature.

Without a subcommand it runs the configured temperature sweep
(by default 501 temperatures from 2.5 to 4.0 on a 1000x1000 lattice).`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSweep(cmd, opts)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&opts.configPath, "config", "c", "", "YAML config file (built-in defaults when empty)")
	pf.StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	pf.StringVar(&opts.logFormat, "log-format", "", "log format (text, json)")
	pf.Int64Var(&opts.seed, "seed", 0, "base random seed, 0 seeds from the wall clock")
	pf.StringVar(&opts.sampling, "sampling", "", "sampling mode (interval, accepted)")
	addSweepFlags(root, opts)

	root.AddCommand(newSweepCmd(opts), newRunCmd(opts), newServeCmd(opts))
	return root
}

func addSweepFlags(cmd *cobra.Command, opts *options) {
	f := cmd.Flags()
	f.StringVarP(&opts.outputDir, "output-dir", "o", "", "directory for trace files")
	f.StringVar(&opts.prefix, "prefix", "", "trace file name prefix")
	f.IntVar(&opts.workers, "workers", 0, "temperatures simulated concurrently")
	f.Float64Var(&opts.start, "start", 0, "first temperature")
	f.Float64Var(&opts.end, "end", 0, "last temperature")
	f.Float64Var(&opts.step, "step", 0, "temperature increment")
}

// load reads the config, applies flag overrides, validates the result and
// installs the logger on stderr.
func (o *options) load(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.Default()
	if o.configPath != "" {
		loaded, err := config.LoadConfig(o.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.LogLevel = o.logLevel
	}
	if flags.Changed("log-format") {
		cfg.LogFormat = o.logFormat
	}
	if flags.Changed("seed") {
		cfg.Simulation.Seed = o.seed
	}
	if flags.Changed("sampling") {
		cfg.Simulation.Sampling = o.sampling
	}
	if flags.Lookup("output-dir") != nil {
		if flags.Changed("output-dir") {
			cfg.Output.Dir = o.outputDir
		}
		if flags.Changed("prefix") {
			cfg.Output.Prefix = o.prefix
		}
		if flags.Changed("workers") {
			cfg.Sweep.Workers = o.workers
		}
		if flags.Changed("start") {
			cfg.Sweep.Start = o.start
		}
		if flags.Changed("end") {
			cfg.Sweep.End = o.end
		}
		if flags.Changed("step") {
			cfg.Sweep.Step = o.step
		}
	}

	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	logger.SetDefault(logger.NewFormat(cfg.LogFormat, cfg.LogLevel, cmd.ErrOrStderr()))
	return cfg, nil
}
