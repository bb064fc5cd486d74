package scenecore

import (
	"log/slog"
	"runtime"

	"github.com/hupe1980/scenecore/internal/capture"
	"github.com/hupe1980/scenecore/internal/transform"
	"github.com/hupe1980/scenecore/resource"
)

type options struct {
	capacity         int
	tiered           TieredConfig
	offHeap          bool
	workers          int
	frameArenaSize   int
	codec            capture.Codec
	codecErr         error
	resources        *resource.Controller
	metricsCollector MetricsCollector
	logger           *Logger
}

// Option configures a World.
type Option func(*options)

// WithCapacity sets the number of entries in every component pool.
// Default: 64.
func WithCapacity(n int) Option {
	return func(o *options) {
		o.capacity = n
	}
}

// WithTieredConfig overrides the tier layout of the general allocator.
// Zero fields keep their defaults (1 KiB x 1024 small blocks, 10 KiB x 128
// medium blocks, 8 MiB large arena).
func WithTieredConfig(cfg TieredConfig) Option {
	return func(o *options) {
		o.tiered = cfg
	}
}

// WithOffHeap backs the allocator tiers and the frame arena with anonymous
// memory mappings instead of the Go heap.
func WithOffHeap() Option {
	return func(o *options) {
		o.offHeap = true
	}
}

// WithWorkers bounds the number of entities recalculated concurrently by
// Update. Default: GOMAXPROCS. 1 makes Update sequential.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

// WithFrameArenaSize sets the size of the arena used to build capture
// payloads. The default fits a full store of maximal entities.
func WithFrameArenaSize(n int) Option {
	return func(o *options) {
		o.frameArenaSize = n
	}
}

// WithCaptureCompression selects the capture codec: "none", "lz4" (default)
// or "zstd". Unknown names make New fail.
func WithCaptureCompression(name string) Option {
	return func(o *options) {
		o.codec, o.codecErr = capture.ParseCodec(name)
	}
}

// WithResourceController charges allocator memory against rc's budget,
// bounds concurrent captures by its background slots and throttles capture
// uploads by its IO limit.
//
// Example:
//
//	rc := resource.NewController(resource.Config{
//	    MemoryLimitBytes:     64 << 20,
//	    MaxBackgroundWorkers: 2,
//	    IOLimitBytesPerSec:   8 << 20,
//	})
//	w, _ := scenecore.New(scenecore.WithResourceController(rc))
func WithResourceController(rc *resource.Controller) Option {
	return func(o *options) {
		o.resources = rc
	}
}

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &scenecore.BasicMetricsCollector{}
//	w, _ := scenecore.New(scenecore.WithMetricsCollector(metrics))
//	// ... use w ...
//	stats := metrics.GetStats()
//	fmt.Printf("Updates: %d, Avg latency: %dns\n", stats.UpdateCount, stats.UpdateAvgNanos)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		workers:          runtime.GOMAXPROCS(0),
		codec:            capture.CodecLZ4,
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	if o.capacity <= 0 {
		o.capacity = DefaultCapacity
	}
	if o.workers <= 0 {
		o.workers = 1
	}
	if o.frameArenaSize <= 0 {
		o.frameArenaSize = o.capacity * capture.EntitySize(transform.MaxNodes, transform.MaxJoints)
	}
	return o
}
