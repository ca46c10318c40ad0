package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/danielpatrickdp/argument-decoder/internal/decoder"
	"github.com/danielpatrickdp/argument-decoder/internal/frame"
	"github.com/danielpatrickdp/argument-decoder/internal/logging"
	"github.com/danielpatrickdp/argument-decoder/internal/metrics"
	"github.com/danielpatrickdp/argument-decoder/internal/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var decodeCmd = &cobra.Command{
	Use:   "decode [input.jsonl]",
	Short: "Decode JSON-lines frame instances",
	Long: `Read one frame instance per line (stdin when no file or "-" is given), write one
decision line per decoded instance to stdout, and record the run in the store.
Failed instances are reported on stderr and do not stop the batch.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDecode,
}

func init() {
	rootCmd.AddCommand(decodeCmd)
}

// #region decode
func runDecode(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	source := "-"
	var in io.Reader = cmd.InOrStdin()
	if len(args) == 1 && args[0] != "-" {
		source = args[0]
		f, err := os.Open(source)
		if err != nil {
			return fmt.Errorf("open input: %w", err)
		}
		defer f.Close()
		in = f
	}
	parsed, err := frame.ReadRecords(in)
	if err != nil {
		return err
	}

	scorer, err := cfg.LoadScorer()
	if err != nil {
		return err
	}
	rel, err := cfg.LoadRelations()
	if err != nil {
		return err
	}
	dcfg, err := cfg.Decoding()
	if err != nil {
		return err
	}
	d, err := decoder.New(dcfg, scorer, rel, metrics.New(prometheus.NewRegistry()), logger.Named("decoder"))
	if err != nil {
		return err
	}
	defer d.Close()

	var st *store.Store
	var run store.Run
	if cfg.Store.Path != "" {
		st, err = store.NewStore(cfg.Store.Path)
		if err != nil {
			return err
		}
		defer st.Close()
		cfgJSON, err := json.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("marshal config: %w", err)
		}
		run, err = st.CreateRun(string(d.Mode()), source, string(cfgJSON))
		if err != nil {
			return err
		}
	}

	insts := make([]*frame.Instance, 0, len(parsed))
	for _, p := range parsed {
		if p.Err == nil {
			insts = append(insts, p.Instance)
		}
	}
	results, err := d.DecodeBatch(ctx, insts)
	if err != nil {
		return err
	}

	out := bufio.NewWriter(cmd.OutOrStdout())
	defer out.Flush()

	failures := 0
	next := 0
	for _, p := range parsed {
		inst := &frame.Instance{}
		res := decoder.Result{Index: p.Index, Err: p.Err}
		if p.Err == nil {
			inst = p.Instance
			res = results[next]
			res.Index = p.Index
			next++
		}
		if res.Err != nil {
			failures++
			logger.Warn("instance failed",
				zap.Int("index", p.Index),
				zap.Int("line", p.Line),
				zap.String("outcome", decoder.Outcome(res.Err)),
				zap.Error(res.Err),
			)
		} else if _, err := fmt.Fprintln(out, res.Line); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
		if st != nil {
			if err := recordDecision(st, run.RunID, inst, res); err != nil {
				logger.Warn("record decision", zap.Int("index", p.Index), zap.Error(err))
			}
		}
	}

	if st != nil {
		if err := st.FinishRun(run.RunID, len(parsed), failures); err != nil {
			return err
		}
	}
	logger.Info("decode finished",
		zap.String("run_id", run.RunID),
		zap.String("mode", string(d.Mode())),
		zap.Int("instances", len(parsed)),
		zap.Int("failures", failures),
	)
	return nil
}

func recordDecision(st *store.Store, runID string, inst *frame.Instance, res decoder.Result) error {
	entry, err := logging.EntryFromResult(runID, inst, res)
	if err != nil {
		return err
	}
	return logging.LogDecision(st.DB(), entry)
}

// #endregion decode
