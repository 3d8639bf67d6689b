package config

// Config represents the simulation and sweep configuration
type Config struct {
	LogLevel   string     `yaml:"log_level"`
	LogFormat  string     `yaml:"log_format"`
	Simulation Simulation `yaml:"simulation"`
	Sweep      Sweep      `yaml:"sweep"`
	Output     Output     `yaml:"output"`
	Server     *Server    `yaml:"server,omitempty"`
}

// Simulation holds the per-run parameters shared by every temperature
type Simulation struct {
	LatticeSize    int    `yaml:"lattice_size"`
	Steps          uint64 `yaml:"steps"`
	Field          int    `yaml:"field"`    // H
	Coupling       int    `yaml:"coupling"` // J
	SampleInterval uint64 `yaml:"sample_interval"`
	Sampling       string `yaml:"sampling"` // interval or accepted
	Seed           int64  `yaml:"seed"`     // 0 seeds from the wall clock
}

// Sweep describes the temperature grid
type Sweep struct {
	Start   float64 `yaml:"start"`
	End     float64 `yaml:"end"`
	Step    float64 `yaml:"step"`
	Workers int     `yaml:"workers"`
}

// Output describes where traces are written
type Output struct {
	Dir    string `yaml:"dir"`
	Prefix string `yaml:"prefix"`
}

// Server configures the daemon started by `ising serve`
type Server struct {
	HTTPAddr    string `yaml:"http_addr"`
	GRPCAddr    string `yaml:"grpc_addr"`
	ArchivePath string `yaml:"archive_path,omitempty"` // SQLite file, empty disables the archive
}

// Defaults matching the original hard-coded sweep
const (
	DefaultLatticeSize    = 1000
	DefaultSteps          = 100_000_000
	DefaultField          = 0
	DefaultCoupling       = 1
	DefaultSampleInterval = 1000
	DefaultSweepStart     = 2.5
	DefaultSweepEnd       = 4.0
	DefaultSweepStep      = 0.003
	DefaultOutputPrefix   = "E_"
	DefaultHTTPAddr       = ":8080"
	DefaultGRPCAddr       = ":50051"
)

// Default returns the configuration used when no file is given
func Default() *Config {
	return &Config{
		LogLevel:  "info",
		LogFormat: "text",
		Simulation: Simulation{
			LatticeSize:    DefaultLatticeSize,
			Steps:          DefaultSteps,
			Field:          DefaultField,
			Coupling:       DefaultCoupling,
			SampleInterval: DefaultSampleInterval,
			Sampling:       "interval",
		},
		Sweep: Sweep{
			Start:   DefaultSweepStart,
			End:     DefaultSweepEnd,
			Step:    DefaultSweepStep,
			Workers: 1,
		},
		Output: Output{
			Dir:    ".",
			Prefix: DefaultOutputPrefix,
		},
	}
}

// ServerOrDefault returns the server section, filling defaults when absent
func (c *Config) ServerOrDefault() Server {
	s := Server{HTTPAddr: DefaultHTTPAddr, GRPCAddr: DefaultGRPCAddr}
	if c.Server != nil {
		if c.Server.HTTPAddr != "" {
			s.HTTPAddr = c.Server.HTTPAddr
		}
		if c.Server.GRPCAddr != "" {
			s.GRPCAddr = c.Server.GRPCAddr
		}
		s.ArchivePath = c.Server.ArchivePath
	}
	return s
}
