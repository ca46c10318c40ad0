package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/danielpatrickdp/argument-decoder/internal/decoder"
	"github.com/danielpatrickdp/argument-decoder/internal/frame"
	"github.com/danielpatrickdp/argument-decoder/internal/metrics"
	"github.com/danielpatrickdp/argument-decoder/internal/service"
	"github.com/danielpatrickdp/argument-decoder/internal/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the gRPC decode service",
	Long:  `Serve decode requests over gRPC and Prometheus metrics over HTTP until interrupted.`,
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	f := serveCmd.Flags()
	f.String("grpc-addr", "localhost:50071", "gRPC listen address")
	f.String("metrics-addr", "localhost:9471", "metrics listen address (empty disables)")
	f.Duration("cache-ttl", 5*time.Minute, "decoded instance cache TTL")
	f.Uint64("cache-capacity", 10000, "decoded instance cache capacity (0 is unbounded)")
	mustBindPFlag("server.grpc_addr", f.Lookup("grpc-addr"))
	mustBindPFlag("server.metrics_addr", f.Lookup("metrics-addr"))
	mustBindPFlag("server.cache_ttl", f.Lookup("cache-ttl"))
	mustBindPFlag("server.cache_capacity", f.Lookup("cache-capacity"))
}

// #region serve
func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

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

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	d, err := decoder.New(dcfg, scorer, rel, m, logger.Named("decoder"))
	if err != nil {
		return err
	}
	defer d.Close()

	srvCfg := service.ServerConfig{
		CacheTTL:      cfg.Server.CacheTTL,
		CacheCapacity: cfg.Server.CacheCapacity,
	}
	var recorded, failed atomic.Int64
	if cfg.Store.Path != "" {
		st, err := store.NewStore(cfg.Store.Path)
		if err != nil {
			return err
		}
		defer st.Close()
		cfgJSON, err := json.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("marshal config: %w", err)
		}
		run, err := st.CreateRun(string(d.Mode()), "grpc://"+cfg.Server.GRPCAddr, string(cfgJSON))
		if err != nil {
			return err
		}
		var index atomic.Int64
		srvCfg.OnDecision = func(inst *frame.Instance, res decoder.Result) {
			res.Index = int(index.Add(1) - 1)
			recorded.Add(1)
			if res.Err != nil {
				failed.Add(1)
			}
			if err := recordDecision(st, run.RunID, inst, res); err != nil {
				logger.Warn("record decision", zap.Error(err))
			}
		}
		defer func() {
			if err := st.FinishRun(run.RunID, int(recorded.Load()), int(failed.Load())); err != nil {
				logger.Warn("finish run", zap.Error(err))
			}
		}()
		logger.Info("recording decisions", zap.String("store", cfg.Store.Path), zap.String("run_id", run.RunID))
	}

	srv := service.NewServer(d, srvCfg, m, logger.Named("service"))
	defer srv.Close()

	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Server.GRPCAddr, err)
	}
	gs := grpc.NewServer()
	service.Register(gs, srv)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("grpc listening", zap.String("addr", lis.Addr().String()), zap.String("mode", string(d.Mode())))
		return gs.Serve(lis)
	})

	var metricsSrv *http.Server
	if cfg.Server.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
		metricsSrv = &http.Server{Addr: cfg.Server.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		g.Go(func() error {
			logger.Info("metrics listening", zap.String("addr", cfg.Server.MetricsAddr))
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		gs.GracefulStop()
		if metricsSrv != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return metricsSrv.Shutdown(shutdownCtx)
		}
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	return nil
}

// #endregion serve
