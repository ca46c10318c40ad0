package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/danielpatrickdp/argument-decoder/internal/admm"
	"github.com/danielpatrickdp/argument-decoder/internal/cube"
	"github.com/danielpatrickdp/argument-decoder/internal/decoder"
	"github.com/danielpatrickdp/argument-decoder/internal/relations"
	"github.com/danielpatrickdp/argument-decoder/internal/scoring"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. ARGDEC_DECODER_MODE.
const EnvPrefix = "ARGDEC"

// #region types
type DecoderConfig struct {
	Mode       string `mapstructure:"mode"`
	Workers    int    `mapstructure:"workers"`
	BeamWidth  int    `mapstructure:"beam_width"`
	Confidence bool   `mapstructure:"confidence"`
}

type ADMMConfig struct {
	Rho           float64 `mapstructure:"rho"`
	MaxIterations int     `mapstructure:"max_iterations"`
	Tolerance     float64 `mapstructure:"tolerance"`
	MemoTolerance float64 `mapstructure:"memo_tolerance"`
}

// ModelConfig names the weight and alphabet files. A second model turns on
// interpolation with weight Alpha.
type ModelConfig struct {
	Weights        string  `mapstructure:"weights"`
	Alphabet       string  `mapstructure:"alphabet"`
	SecondWeights  string  `mapstructure:"second_weights"`
	SecondAlphabet string  `mapstructure:"second_alphabet"`
	Alpha          float64 `mapstructure:"alpha"`
}

type TrainingConfig struct {
	CostMultiple float64 `mapstructure:"cost_multiple"`
	Cost         string  `mapstructure:"cost"`
}

type RelationsConfig struct {
	Path string `mapstructure:"path"`
}

type StoreConfig struct {
	Path string `mapstructure:"path"`
}

type ServerConfig struct {
	GRPCAddr      string        `mapstructure:"grpc_addr"`
	MetricsAddr   string        `mapstructure:"metrics_addr"`
	CacheTTL      time.Duration `mapstructure:"cache_ttl"`
	CacheCapacity uint64        `mapstructure:"cache_capacity"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	Style string `mapstructure:"style"`
}

// Config is the full process configuration.
type Config struct {
	Decoder   DecoderConfig   `mapstructure:"decoder"`
	ADMM      ADMMConfig      `mapstructure:"admm"`
	Model     ModelConfig     `mapstructure:"model"`
	Training  TrainingConfig  `mapstructure:"training"`
	Relations RelationsConfig `mapstructure:"relations"`
	Store     StoreConfig     `mapstructure:"store"`
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
}

// #endregion types

// #region defaults
// Defaults returns the built-in configuration.
func Defaults() Config {
	dec := decoder.DefaultConfig()
	ad := admm.DefaultConfig()
	return Config{
		Decoder: DecoderConfig{
			Mode:      string(dec.Mode),
			Workers:   dec.Workers,
			BeamWidth: cube.DefaultConfig().BeamWidth,
		},
		ADMM: ADMMConfig{
			Rho:           ad.Rho,
			MaxIterations: ad.MaxIterations,
			Tolerance:     ad.Tolerance,
			MemoTolerance: ad.MemoTolerance,
		},
		Training: TrainingConfig{Cost: "hamming"},
		Store:    StoreConfig{Path: "argdec.db"},
		Server: ServerConfig{
			GRPCAddr:      "localhost:50071",
			MetricsAddr:   "localhost:9471",
			CacheTTL:      5 * time.Minute,
			CacheCapacity: 10000,
		},
		Log: LogConfig{Level: "info", Style: "json"},
	}
}

// New returns a viper instance preloaded with the defaults and wired to the
// ARGDEC_ environment.
func New() *viper.Viper {
	v := viper.New()
	d := Defaults()
	v.SetDefault("decoder.mode", d.Decoder.Mode)
	v.SetDefault("decoder.workers", d.Decoder.Workers)
	v.SetDefault("decoder.beam_width", d.Decoder.BeamWidth)
	v.SetDefault("decoder.confidence", d.Decoder.Confidence)
	v.SetDefault("admm.rho", d.ADMM.Rho)
	v.SetDefault("admm.max_iterations", d.ADMM.MaxIterations)
	v.SetDefault("admm.tolerance", d.ADMM.Tolerance)
	v.SetDefault("admm.memo_tolerance", d.ADMM.MemoTolerance)
	v.SetDefault("model.weights", d.Model.Weights)
	v.SetDefault("model.alphabet", d.Model.Alphabet)
	v.SetDefault("model.second_weights", d.Model.SecondWeights)
	v.SetDefault("model.second_alphabet", d.Model.SecondAlphabet)
	v.SetDefault("model.alpha", d.Model.Alpha)
	v.SetDefault("training.cost_multiple", d.Training.CostMultiple)
	v.SetDefault("training.cost", d.Training.Cost)
	v.SetDefault("relations.path", d.Relations.Path)
	v.SetDefault("store.path", d.Store.Path)
	v.SetDefault("server.grpc_addr", d.Server.GRPCAddr)
	v.SetDefault("server.metrics_addr", d.Server.MetricsAddr)
	v.SetDefault("server.cache_ttl", d.Server.CacheTTL)
	v.SetDefault("server.cache_capacity", d.Server.CacheCapacity)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.style", d.Log.Style)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// #endregion defaults

// #region load
// Load reads the optional config file into v, then decodes and validates
// the merged file, environment and bound-flag settings.
func Load(v *viper.Viper, path string) (Config, error) {
	var cfg Config
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks ranges and enumerations.
func (c Config) Validate() error {
	var errs []error
	if _, err := decoder.ParseMode(c.Decoder.Mode); err != nil {
		errs = append(errs, err)
	}
	if c.Decoder.Workers <= 0 {
		errs = append(errs, fmt.Errorf("decoder.workers must be positive, got %d", c.Decoder.Workers))
	}
	if c.Decoder.BeamWidth <= 0 {
		errs = append(errs, fmt.Errorf("decoder.beam_width must be positive, got %d", c.Decoder.BeamWidth))
	}
	if c.ADMM.Rho <= 0 {
		errs = append(errs, fmt.Errorf("admm.rho must be positive, got %v", c.ADMM.Rho))
	}
	if c.ADMM.MaxIterations <= 0 {
		errs = append(errs, fmt.Errorf("admm.max_iterations must be positive, got %d", c.ADMM.MaxIterations))
	}
	if c.ADMM.Tolerance <= 0 {
		errs = append(errs, fmt.Errorf("admm.tolerance must be positive, got %v", c.ADMM.Tolerance))
	}
	if c.Model.Alpha < 0 || c.Model.Alpha > 1 {
		errs = append(errs, fmt.Errorf("model.alpha must lie in [0,1], got %v", c.Model.Alpha))
	}
	if c.Model.SecondWeights != "" && c.Model.Weights == "" {
		errs = append(errs, errors.New("model.second_weights requires model.weights"))
	}
	if c.Training.CostMultiple < 0 {
		errs = append(errs, fmt.Errorf("training.cost_multiple must be non-negative, got %v", c.Training.CostMultiple))
	}
	if _, err := scoring.CostByName(c.Training.Cost); err != nil {
		errs = append(errs, err)
	}
	switch c.Log.Style {
	case "json", "console", "terminal":
	default:
		errs = append(errs, fmt.Errorf("log.style must be json, console or terminal, got %q", c.Log.Style))
	}
	return errors.Join(errs...)
}

// #endregion load

// #region convert
// Decoding converts to the decoder's configuration.
func (c Config) Decoding() (decoder.Config, error) {
	mode, err := decoder.ParseMode(c.Decoder.Mode)
	if err != nil {
		return decoder.Config{}, err
	}
	cost, err := scoring.CostByName(c.Training.Cost)
	if err != nil {
		return decoder.Config{}, err
	}
	return decoder.Config{
		Mode:         mode,
		Workers:      c.Decoder.Workers,
		Confidence:   c.Decoder.Confidence,
		CostMultiple: c.Training.CostMultiple,
		Cost:         cost,
		Cube:         cube.Config{BeamWidth: c.Decoder.BeamWidth},
		ADMM: admm.Config{
			Rho:           c.ADMM.Rho,
			MaxIterations: c.ADMM.MaxIterations,
			Tolerance:     c.ADMM.Tolerance,
			MemoTolerance: c.ADMM.MemoTolerance,
		},
	}, nil
}

// #endregion convert

// #region artifacts
// LoadScorer loads the configured model, or the interpolated pair when a
// second model is named. It returns a nil Scorer when no weights are
// configured, in which case every instance must carry its own scores.
func (c Config) LoadScorer() (scoring.Scorer, error) {
	if c.Model.Weights == "" {
		return nil, nil
	}
	first, err := scoring.LoadModel(c.Model.Weights, c.Model.Alphabet)
	if err != nil {
		return nil, err
	}
	if c.Model.SecondWeights == "" {
		return first, nil
	}
	second, err := scoring.LoadModel(c.Model.SecondWeights, c.Model.SecondAlphabet)
	if err != nil {
		return nil, err
	}
	return scoring.Interpolate(first, second, c.Model.Alpha)
}

// LoadRelations loads the relation table, or returns nil when none is configured.
func (c Config) LoadRelations() (*relations.Table, error) {
	if c.Relations.Path == "" {
		return nil, nil
	}
	return relations.Load(c.Relations.Path)
}

// #endregion artifacts
