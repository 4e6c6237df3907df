package bench

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/jeongseonghan/eqbench/internal/modem"
)

// Method identifies an equalization technique under test.
type Method string

const (
	MethodLinear        Method = "linear"
	MethodDFE           Method = "dfe"
	MethodMLSEIdeal     Method = "mlse-ideal"
	MethodMLSEImperfect Method = "mlse-imperfect"

	// MethodCoded labels results from the optional Reed-Solomon coded mode,
	// which runs on top of the DFE.
	MethodCoded Method = "dfe-coded"
)

// CodedConfig enables the optional coded-transmission measurement.
type CodedConfig struct {
	Enabled      bool `yaml:"enabled"`
	Frames       int  `yaml:"frames"`
	PayloadBytes int  `yaml:"payloadBytes"`
	DataShards   int  `yaml:"dataShards"`
	ParityShards int  `yaml:"parityShards"`
}

// Config holds every experiment parameter. All values are fixed at setup;
// nothing is reloaded mid-run.
type Config struct {
	ModOrder    int       `yaml:"modOrder"`
	ChannelTaps []float64 `yaml:"channelTaps"`
	EbNoDB      []float64 `yaml:"ebNoDB"`

	BlockSize int `yaml:"blockSize"` // symbols per block
	TrainLen  int `yaml:"trainLen"`  // known symbols per block for adaptive equalizers

	ForwardTaps  int     `yaml:"forwardTaps"`
	FeedbackTaps int     `yaml:"feedbackTaps"`
	RefTap       int     `yaml:"refTap"`
	Forgetting   float64 `yaml:"forgetting"`
	StepSize     float64 `yaml:"stepSize"`

	TracebackLen int `yaml:"tracebackLen"`
	EstExcess    int `yaml:"estExcess"` // deliberate estimate-length excess, imperfect MLSE
	PrefixLen    int `yaml:"prefixLen"` // known PN prefix length per block

	MaxErrors int   `yaml:"maxErrors"` // per Eb/No point
	MaxBits   int   `yaml:"maxBits"`   // per Eb/No point
	Seed      int64 `yaml:"seed"`

	Methods []Method    `yaml:"methods"`
	Coded   CodedConfig `yaml:"coded"`
}

// Default returns the reference scenario: BPSK over the classic severely
// dispersive five-tap channel.
func Default() *Config {
	return &Config{
		ModOrder:     2,
		ChannelTaps:  []float64{0.227, 0.460, 0.688, 0.460, 0.227},
		EbNoDB:       []float64{2, 4, 6, 8, 10, 12},
		BlockSize:    2048,
		TrainLen:     1024,
		ForwardTaps:  15,
		FeedbackTaps: 5,
		RefTap:       12,
		Forgetting:   0.99,
		StepSize:     0.01,
		TracebackLen: 30,
		EstExcess:    1,
		PrefixLen:    64,
		MaxErrors:    200,
		MaxBits:      1_000_000,
		Seed:         1,
		Methods:      []Method{MethodLinear, MethodDFE, MethodMLSEIdeal, MethodMLSEImperfect},
		Coded: CodedConfig{
			Frames:       20,
			PayloadBytes: 128,
			DataShards:   8,
			ParityShards: 4,
		},
	}
}

// Load reads a YAML config over the defaults.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate fails fast on invalid parameter combinations. Nothing runs on an
// invalid configuration.
func (c *Config) Validate() error {
	if _, err := modem.NewScheme(c.ModOrder); err != nil {
		return err
	}
	if len(c.ChannelTaps) == 0 {
		return fmt.Errorf("config: channel taps are empty")
	}
	if len(c.EbNoDB) == 0 {
		return fmt.Errorf("config: no Eb/No values")
	}
	if c.BlockSize < 1 {
		return fmt.Errorf("config: block size %d, need >= 1", c.BlockSize)
	}
	if c.TrainLen < 0 || c.TrainLen > c.BlockSize {
		return fmt.Errorf("config: training length %d outside [0, %d]", c.TrainLen, c.BlockSize)
	}
	if c.ForwardTaps < 1 {
		return fmt.Errorf("config: forward tap count %d, need >= 1", c.ForwardTaps)
	}
	if c.RefTap < 0 || c.RefTap >= c.ForwardTaps {
		return fmt.Errorf("config: reference tap %d outside [0, %d)", c.RefTap, c.ForwardTaps)
	}
	if c.Forgetting <= 0 || c.Forgetting > 1 {
		return fmt.Errorf("config: forgetting factor %v outside (0, 1]", c.Forgetting)
	}
	if c.StepSize <= 0 {
		return fmt.Errorf("config: step size %v, need > 0", c.StepSize)
	}
	if c.EstExcess < 0 {
		return fmt.Errorf("config: estimate excess %d, need >= 0", c.EstExcess)
	}

	assumedLen := len(c.ChannelTaps) + c.EstExcess
	if c.TracebackLen < assumedLen-1 {
		return fmt.Errorf("config: traceback length %d shorter than assumed channel memory %d",
			c.TracebackLen, assumedLen-1)
	}
	if c.PrefixLen < assumedLen {
		return fmt.Errorf("config: prefix length %d shorter than assumed channel length %d",
			c.PrefixLen, assumedLen)
	}
	if c.MaxErrors < 1 {
		return fmt.Errorf("config: max errors %d, need >= 1", c.MaxErrors)
	}
	if c.MaxBits < c.BlockSize {
		return fmt.Errorf("config: max bits %d below one block of %d", c.MaxBits, c.BlockSize)
	}

	if len(c.Methods) == 0 && !c.Coded.Enabled {
		return fmt.Errorf("config: nothing to run")
	}
	needsFeedback := c.Coded.Enabled
	for _, m := range c.Methods {
		switch m {
		case MethodLinear, MethodMLSEIdeal, MethodMLSEImperfect:
		case MethodDFE:
			needsFeedback = true
		default:
			return fmt.Errorf("config: unknown method %q", m)
		}
	}
	if needsFeedback && c.FeedbackTaps < 1 {
		return fmt.Errorf("config: dfe requires >= 1 feedback tap, got %d", c.FeedbackTaps)
	}

	if c.Coded.Enabled {
		if c.Coded.Frames < 1 || c.Coded.PayloadBytes < 1 {
			return fmt.Errorf("config: coded mode needs frames and payload bytes >= 1")
		}
		if c.Coded.DataShards < 1 || c.Coded.ParityShards < 1 {
			return fmt.Errorf("config: coded shard geometry %d+%d invalid",
				c.Coded.DataShards, c.Coded.ParityShards)
		}
	}
	return nil
}
