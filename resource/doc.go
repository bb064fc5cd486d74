// Package resource governs the process-wide resources a scene runtime shares.
//
// A Controller manages three budgets:
//
//   - Memory: allocator buffers (arenas, block pools, the large tier) are
//     charged against a hard limit. AcquireMemory never blocks; it fails
//     with ErrMemoryLimitExceeded and the caller decides what to do.
//   - Background slots: bound how many frame captures run at once.
//   - IO: a token bucket throttling capture uploads so they cannot starve
//     the frame loop.
//
//	rc := resource.NewController(resource.Config{
//	    MemoryLimitBytes:     64 << 20,
//	    MaxBackgroundWorkers: 2,
//	    IOLimitBytesPerSec:   8 << 20,
//	})
//
//	w, err := scenecore.New(scenecore.WithResourceController(rc))
//
// All methods are safe for concurrent use, and all of them treat a nil
// *Controller as "no limits".
package resource
