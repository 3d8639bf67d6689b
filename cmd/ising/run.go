package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/GoSim-25-26J-441/ising-core/internal/ising"
	"github.com/GoSim-25-26J-441/ising-core/internal/output"
	"github.com/GoSim-25-26J-441/ising-core/pkg/logger"
	"github.com/GoSim-25-26J-441/ising-core/pkg/utils"
)

func newRunCmd(opts *options) *cobra.Command {
	var (
		temperature  float64
		printLattice bool
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Simulate one temperature and print its trace to stdout",
		Long: `run simulates a single temperature and prints the energy trace to
stdout, one integer per line. Logs and the optional final lattice go to
stderr.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load(cmd)
			if err != nil {
				return err
			}
			t := cfg.Sweep.Start
			if cmd.Flags().Changed("temperature") {
				t = temperature
			}

			src := utils.NewRandSource(cfg.Simulation.Seed)
			sim, err := ising.NewSimulator(cfg.Params(t), src)
			if err != nil {
				return fmt.Errorf("temperature %v: %w", t, err)
			}
			log := logger.ForTemperature(t).With("seed", src.Seed())
			sim.SetLogger(log)

			res, err := sim.Run(cmd.Context())
			if err != nil {
				return err
			}
			if err := (output.ConsoleSink{W: cmd.OutOrStdout()}).WriteTrace(t, res.Trace); err != nil {
				return err
			}
			if printLattice {
				if err := res.Lattice.Print(cmd.ErrOrStderr()); err != nil {
					return err
				}
			}
			log.Info("run finished",
				"accepted", res.Accepted,
				"acceptance_ratio", res.AcceptanceRatio(),
				"energy", res.Energy,
				"duration", res.Duration)
			return nil
		},
	}
	cmd.Flags().Float64VarP(&temperature, "temperature", "t", 0, "temperature (defaults to the sweep start)")
	cmd.Flags().BoolVar(&printLattice, "print-lattice", false, "print the final lattice to stderr")
	return cmd
}
