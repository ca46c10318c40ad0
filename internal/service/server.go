package service

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/danielpatrickdp/argument-decoder/internal/decoder"
	"github.com/danielpatrickdp/argument-decoder/internal/frame"
	"github.com/danielpatrickdp/argument-decoder/internal/metrics"
	"github.com/jellydator/ttlcache/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// DefaultCacheTTL is how long a decoded instance stays cached.
const DefaultCacheTTL = 5 * time.Minute

// #region config
// ServerConfig controls the response cache and decision recording.
type ServerConfig struct {
	CacheTTL      time.Duration
	CacheCapacity uint64 // 0 means unbounded

	// OnDecision, when set, is called for every freshly decoded instance.
	OnDecision func(inst *frame.Instance, res decoder.Result)
}

// #endregion config

// #region server
// Server answers decode RPCs with a shared Decoder. Identical instances are
// served from a TTL cache and concurrent identical requests are collapsed.
type Server struct {
	decoder *decoder.Decoder
	config  ServerConfig
	cache   *ttlcache.Cache[uint64, RemoteResult]
	sfGroup singleflight.Group
	metrics *metrics.Metrics
	logger  *zap.Logger

	hits   atomic.Uint64
	misses atomic.Uint64
	sfHits atomic.Uint64
}

// CacheStats holds cache counters.
type CacheStats struct {
	Hits             uint64 `json:"hits"`
	Misses           uint64 `json:"misses"`
	SingleflightHits uint64 `json:"singleflight_hits"`
	Entries          int    `json:"entries"`
}

// NewServer creates a server and starts its cache janitor.
func NewServer(d *decoder.Decoder, config ServerConfig, m *metrics.Metrics, logger *zap.Logger) *Server {
	if config.CacheTTL <= 0 {
		config.CacheTTL = DefaultCacheTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	opts := []ttlcache.Option[uint64, RemoteResult]{
		ttlcache.WithTTL[uint64, RemoteResult](config.CacheTTL),
	}
	if config.CacheCapacity > 0 {
		opts = append(opts, ttlcache.WithCapacity[uint64, RemoteResult](config.CacheCapacity))
	}
	cache := ttlcache.New(opts...)
	go cache.Start()

	return &Server{
		decoder: d,
		config:  config,
		cache:   cache,
		metrics: m,
		logger:  logger,
	}
}

// Close stops the cache janitor. The decoder is owned by the caller.
func (s *Server) Close() {
	s.cache.Stop()
	s.logger.Info("decode service closed",
		zap.Uint64("cache_hits", s.hits.Load()),
		zap.Uint64("cache_misses", s.misses.Load()),
		zap.Uint64("singleflight_hits", s.sfHits.Load()),
	)
}

// Stats returns the cache counters.
func (s *Server) Stats() CacheStats {
	return CacheStats{
		Hits:             s.hits.Load(),
		Misses:           s.misses.Load(),
		SingleflightHits: s.sfHits.Load(),
		Entries:          s.cache.Len(),
	}
}

// #endregion server

// #region decode
// Decode implements DecoderServiceServer.
func (s *Server) Decode(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	records, err := decodeRequest(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	results := make([]RemoteResult, len(records))
	keys := make([]uint64, len(records))
	var missIdx []int
	var missInsts []*frame.Instance
	batchKey := xxhash.New()

	for i := range records {
		key, err := s.cacheKey(&records[i])
		if err != nil {
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}
		keys[i] = key
		if item := s.cache.Get(key); item != nil {
			s.hits.Add(1)
			s.metrics.ObserveCache(true)
			rr := item.Value()
			rr.Index = i
			rr.Cached = true
			results[i] = rr
			continue
		}
		s.misses.Add(1)
		s.metrics.ObserveCache(false)
		missIdx = append(missIdx, i)
		missInsts = append(missInsts, records[i].ToInstance())
		var buf [8]byte
		binary.BigEndian.PutUint64(buf[:], key)
		_, _ = batchKey.Write(buf[:])
	}

	if len(missInsts) > 0 {
		var sfKey [8]byte
		binary.BigEndian.PutUint64(sfKey[:], batchKey.Sum64())
		// the decode is shared with concurrent identical requests, so one
		// caller's cancellation must not reach the others
		sharedCtx := context.WithoutCancel(ctx)
		v, err, shared := s.sfGroup.Do(string(sfKey[:]), func() (any, error) {
			return s.decodeMisses(sharedCtx, missInsts)
		})
		if err != nil {
			if errors.Is(err, frame.ErrProjectionFailure) {
				return nil, status.Error(codes.Internal, err.Error())
			}
			return nil, status.Error(codes.Unavailable, err.Error())
		}
		if shared {
			s.sfHits.Add(1)
		}
		decoded := v.([]RemoteResult)
		for j, i := range missIdx {
			rr := decoded[j]
			if rr.Outcome != metrics.OutcomeCanceled {
				s.cache.Set(keys[i], rr, ttlcache.DefaultTTL)
			}
			rr.Index = i
			results[i] = rr
		}
	}

	s.logger.Debug("decode request served",
		zap.Int("instances", len(records)),
		zap.Int("decoded", len(missInsts)),
	)
	return toStruct(response{Mode: string(s.decoder.Mode()), Results: results})
}

func (s *Server) decodeMisses(ctx context.Context, insts []*frame.Instance) ([]RemoteResult, error) {
	batch, err := s.decoder.DecodeBatch(ctx, insts)
	if err != nil {
		return nil, err
	}
	out := make([]RemoteResult, len(batch))
	for j, res := range batch {
		rr := RemoteResult{
			Line:       res.Line,
			Score:      res.Score,
			Outcome:    decoder.Outcome(res.Err),
			Iterations: res.Iterations,
			Converged:  res.Converged,
		}
		if res.Err != nil {
			rr.Error = res.Err.Error()
		}
		out[j] = rr
		if s.config.OnDecision != nil {
			s.config.OnDecision(insts[j], res)
		}
	}
	return out, nil
}

// cacheKey hashes the decoder mode and the instance's wire form.
func (s *Server) cacheKey(rec *frame.Record) (uint64, error) {
	b, err := json.Marshal(rec)
	if err != nil {
		return 0, err
	}
	h := xxhash.New()
	_, _ = h.WriteString(string(s.decoder.Mode()))
	_, _ = h.WriteString("|")
	_, _ = h.Write(b)
	return h.Sum64(), nil
}

// #endregion decode
