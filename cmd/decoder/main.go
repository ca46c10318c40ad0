// Command decoder assigns frame-element fillers to scored role candidates.
//
// Usage:
//
//	decoder decode [input.jsonl]   # decode JSON-lines instances to decision lines
//	decoder serve                  # run the gRPC decode service and /metrics
package main

import (
	"fmt"
	"os"

	"github.com/danielpatrickdp/argument-decoder/internal/config"
	"github.com/danielpatrickdp/argument-decoder/internal/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

var version = "dev"

var (
	cfgFile string
	v       = config.New()
)

// #region root
var rootCmd = &cobra.Command{
	Use:           "decoder",
	Short:         "Frame-element argument decoder",
	Long:          `Decode the best non-overlapping assignment of spans to the roles of a frame, by beam search or by AD3 dual decomposition.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (yaml, json or toml)")
	pf.String("log-level", "info", "log level (debug, info, warn, error)")
	pf.String("log-style", "json", "log style (json, console, terminal)")
	pf.String("mode", "admm", "decoder mode (cube or admm)")
	pf.Int("workers", 4, "instances decoded in parallel")
	pf.Int("beam-width", 100, "cube pruning beam width")
	pf.Bool("confidence", false, "append the average filler score to each line")
	pf.Float64("rho", 1, "ADMM step size")
	pf.Int("max-iterations", 1000, "ADMM iteration cap")
	pf.Float64("tolerance", 1e-6, "ADMM convergence tolerance")
	pf.String("weights", "", "model weight file")
	pf.String("alphabet", "", "feature alphabet file")
	pf.String("second-weights", "", "second model weight file for interpolation")
	pf.String("second-alphabet", "", "second model alphabet file")
	pf.Float64("alpha", 0, "interpolation weight of the second model")
	pf.Float64("cost-multiple", 0, "cost augmentation multiple against gold (0 disables)")
	pf.String("cost", "hamming", "cost function (hamming or token)")
	pf.String("relations", "", "frame relations YAML file")
	pf.String("store", "argdec.db", "SQLite run store (empty disables recording)")

	mustBindPFlag("log.level", pf.Lookup("log-level"))
	mustBindPFlag("log.style", pf.Lookup("log-style"))
	mustBindPFlag("decoder.mode", pf.Lookup("mode"))
	mustBindPFlag("decoder.workers", pf.Lookup("workers"))
	mustBindPFlag("decoder.beam_width", pf.Lookup("beam-width"))
	mustBindPFlag("decoder.confidence", pf.Lookup("confidence"))
	mustBindPFlag("admm.rho", pf.Lookup("rho"))
	mustBindPFlag("admm.max_iterations", pf.Lookup("max-iterations"))
	mustBindPFlag("admm.tolerance", pf.Lookup("tolerance"))
	mustBindPFlag("model.weights", pf.Lookup("weights"))
	mustBindPFlag("model.alphabet", pf.Lookup("alphabet"))
	mustBindPFlag("model.second_weights", pf.Lookup("second-weights"))
	mustBindPFlag("model.second_alphabet", pf.Lookup("second-alphabet"))
	mustBindPFlag("model.alpha", pf.Lookup("alpha"))
	mustBindPFlag("training.cost_multiple", pf.Lookup("cost-multiple"))
	mustBindPFlag("training.cost", pf.Lookup("cost"))
	mustBindPFlag("relations.path", pf.Lookup("relations"))
	mustBindPFlag("store.path", pf.Lookup("store"))
}

func mustBindPFlag(key string, flag *pflag.Flag) {
	if err := v.BindPFlag(key, flag); err != nil {
		panic(err)
	}
}

// setup loads the merged configuration and builds the process logger.
func setup() (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(v, cfgFile)
	if err != nil {
		return cfg, nil, err
	}
	logger, err := logging.NewLogger(cfg.Log.Level, cfg.Log.Style)
	if err != nil {
		return cfg, nil, err
	}
	return cfg, logger, nil
}

// #endregion root

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
