package scenecore

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/scenecore/blobstore"
	"github.com/hupe1980/scenecore/internal/arena"
	"github.com/hupe1980/scenecore/internal/blockpool"
	"github.com/hupe1980/scenecore/internal/capture"
	"github.com/hupe1980/scenecore/internal/ecs"
	"github.com/hupe1980/scenecore/internal/tiered"
	"github.com/hupe1980/scenecore/resource"
	"github.com/hupe1980/scenecore/scene"
)

// World owns the component store, the general allocator and the capture
// pipeline.
//
// Mutating calls are serialized; Update fans recalculation out across
// entities. Alloc and Free may be called from any goroutine.
type World struct {
	mu     sync.Mutex
	store  *ecs.Store
	alloc  *tiered.Allocator
	closed atomic.Bool

	// captureMu guards the frame arena and writer. Taken before mu.
	captureMu  sync.Mutex
	frameArena *arena.Arena
	writer     *capture.Writer
	seq        uint64
	captures   atomic.Uint64

	opts    options
	logger  *Logger
	metrics MetricsCollector
}

// Stats is a snapshot of World state.
type Stats struct {
	Entities    int
	Store       StoreStats
	Tiers       TierStats
	FrameArena  ArenaStats
	MemoryUsage int64
	// MemoryLimit is the resource controller's budget, 0 if unlimited.
	MemoryLimit int64
	Captures    uint64
	// BackgroundActive counts held background slots of the resource
	// controller, captures included.
	BackgroundActive int64
}

// BlockPoolInfo describes one block pool tier.
type BlockPoolInfo struct {
	Name       string
	BlockSize  int
	BlockCount int
	Used       int
	Runs       []BlockRun
	UsedSet    *roaring.Bitmap
}

// New creates a World.
func New(optFns ...Option) (*World, error) {
	o := applyOptions(optFns)
	if o.codecErr != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, o.codecErr)
	}

	store, err := ecs.NewStore(ecs.Config{Capacity: o.capacity})
	if err != nil {
		return nil, translateError(err)
	}

	tcfg := o.tiered
	tcfg.OffHeap = tcfg.OffHeap || o.offHeap
	if tcfg.Acquirer == nil && o.resources != nil {
		tcfg.Acquirer = o.resources
	}
	alloc, err := tiered.New(tcfg)
	if err != nil {
		return nil, translateError(err)
	}

	var arenaOpts []arena.Option
	if o.offHeap {
		arenaOpts = append(arenaOpts, arena.WithOffHeap())
	}
	if o.resources != nil {
		arenaOpts = append(arenaOpts, arena.WithMemoryAcquirer(o.resources))
	}
	frameArena, err := arena.New(o.frameArenaSize, arenaOpts...)
	if err != nil {
		_ = alloc.Close()
		return nil, translateError(err)
	}

	return &World{
		store:      store,
		alloc:      alloc,
		frameArena: frameArena,
		writer:     capture.NewWriter(o.codec, frameArena, alloc),
		opts:       o,
		logger:     o.logger,
		metrics:    o.metricsCollector,
	}, nil
}

// Spawn instantiates sc. The scene is validated and its hierarchy built
// before any slot is taken; on failure nothing stays allocated.
// sc must not be mutated while the entity is alive.
func (w *World) Spawn(ctx context.Context, sc *scene.Scene, opts SpawnOptions) (Entity, error) {
	start := time.Now()

	e, err := w.spawn(sc, opts)
	err = translateError(err)

	nodes := 0
	if sc != nil {
		nodes = len(sc.Nodes)
	}
	w.metrics.RecordSpawn(time.Since(start), err)
	w.logger.LogSpawn(ctx, e, nodes, err)
	return e, err
}

func (w *World) spawn(sc *scene.Scene, opts SpawnOptions) (Entity, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed.Load() {
		return ecs.NewEntity(), ErrClosed
	}
	return w.store.Spawn(sc, opts)
}

// Despawn releases every component of e and resets it.
func (w *World) Despawn(ctx context.Context, e *Entity) error {
	start := time.Now()
	id := int32(-1)
	if e != nil {
		id = e.ID()
	}

	w.mu.Lock()
	var err error
	switch {
	case e == nil:
		err = fmt.Errorf("%w: nil entity", ErrInvalidArgument)
	case w.closed.Load():
		err = ErrClosed
	default:
		err = translateError(w.store.Destroy(e))
	}
	w.mu.Unlock()

	w.metrics.RecordDespawn(time.Since(start), err)
	w.logger.LogDespawn(ctx, id, err)
	return err
}

// Alive reports whether e refers to a live entity.
func (w *World) Alive(e Entity) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return !w.closed.Load() && w.store.Alive(e)
}

// Len returns the number of live entities.
func (w *World) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.store.Len()
}

// Entities returns the live entities in ascending id order.
func (w *World) Entities() []Entity {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.store.Entities()
}

// SetTransform sets the world transform seeded into e's roots on the next
// Update.
func (w *World) SetTransform(e Entity, m mgl32.Mat4) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed.Load() {
		return ErrClosed
	}
	return translateError(w.store.SetWorldTransform(e, m))
}

// Transform returns e's world transform.
func (w *World) Transform(e Entity) (mgl32.Mat4, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed.Load() {
		return mgl32.Mat4{}, ErrClosed
	}
	m, err := w.store.WorldTransform(e)
	return m, translateError(err)
}

// Update recomputes node transforms and joint matrices for every live
// entity. It stops at the first failing entity or when ctx is done.
func (w *World) Update(ctx context.Context) error {
	start := time.Now()

	w.mu.Lock()
	if w.closed.Load() {
		w.mu.Unlock()
		return ErrClosed
	}
	entities := w.store.Entities()
	err := translateError(w.recalculate(ctx, entities))
	w.mu.Unlock()

	d := time.Since(start)
	w.metrics.RecordUpdate(len(entities), d, err)
	w.logger.LogUpdate(ctx, len(entities), d, err)
	return err
}

// recalculate runs with mu held. Distinct entities never share slots, so
// their recalculations can run concurrently.
func (w *World) recalculate(ctx context.Context, entities []Entity) error {
	if w.opts.workers == 1 || len(entities) <= 1 {
		for _, e := range entities {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := w.store.Recalculate(e); err != nil {
				return fmt.Errorf("entity %d: %w", e.ID(), err)
			}
		}
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.opts.workers)
	for _, e := range entities {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := w.store.Recalculate(e); err != nil {
				return fmt.Errorf("entity %d: %w", e.ID(), err)
			}
			return nil
		})
	}
	return g.Wait()
}

// NodeTransforms returns e's node transforms. The pointer stays valid until
// e is despawned; read it only between Updates.
func (w *World) NodeTransforms(e Entity) (*NodeTransforms, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed.Load() {
		return nil, ErrClosed
	}
	nt, err := w.store.NodeTransforms(e)
	return nt, translateError(err)
}

// JointMatrices returns e's skinning matrices, or ErrNoComponent if the
// scene has no skin.
func (w *World) JointMatrices(e Entity) (*JointMatrices, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed.Load() {
		return nil, ErrClosed
	}
	jm, err := w.store.JointMatrices(e)
	return jm, translateError(err)
}

// Sample returns e's animation sample for the animation system to fill
// before Update, or ErrNoComponent if e was not spawned animated.
func (w *World) Sample(e Entity) (*Sample, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed.Load() {
		return nil, ErrClosed
	}
	s, err := w.store.Sample(e)
	return s, translateError(err)
}

// Hierarchy returns e's parent table.
func (w *World) Hierarchy(e Entity) (*Hierarchy, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed.Load() {
		return nil, ErrClosed
	}
	h, err := w.store.Hierarchy(e)
	return h, translateError(err)
}

// Alloc returns size zeroed bytes from the tiered allocator.
func (w *World) Alloc(size int) ([]byte, error) {
	class := w.alloc.ClassFor(size).String()

	var (
		b   []byte
		err error
	)
	if w.closed.Load() {
		err = ErrClosed
	} else {
		b, err = w.alloc.AllocSync(size)
		err = translateError(err)
	}

	w.metrics.RecordAlloc(class, size, err)
	w.logger.LogAlloc(context.Background(), "alloc", size, class, err)
	return b, err
}

// Free returns b to the tier chosen by size, which must be the size passed
// to Alloc.
func (w *World) Free(b []byte, size int) error {
	class := w.alloc.ClassFor(size).String()

	var err error
	if w.closed.Load() {
		err = ErrClosed
	} else {
		err = translateError(w.alloc.FreeSync(b, size))
	}

	w.metrics.RecordFree(class, size, err)
	w.logger.LogAlloc(context.Background(), "free", size, class, err)
	return err
}

// Capture writes the node transforms and joint matrices of every live
// entity to name in bs. It holds a background slot of the resource
// controller for its duration and throttles the upload by its IO limit.
// On failure the partial blob is discarded.
func (w *World) Capture(ctx context.Context, bs blobstore.Store, name string) (CaptureStats, error) {
	start := time.Now()

	st, err := w.capture(ctx, bs, name)
	err = translateError(err)

	written := 0
	if err == nil {
		written = st.Written()
		w.captures.Add(1)
	}
	w.metrics.RecordCapture(written, time.Since(start), err)
	w.logger.LogCapture(ctx, name, st, err)
	return st, err
}

func (w *World) capture(ctx context.Context, bs blobstore.Store, name string) (CaptureStats, error) {
	rc := w.opts.resources
	if err := rc.AcquireBackground(ctx); err != nil {
		return CaptureStats{}, err
	}
	defer rc.ReleaseBackground()

	w.captureMu.Lock()
	defer w.captureMu.Unlock()

	frame, err := w.snapshot()
	if err != nil {
		return CaptureStats{}, err
	}

	blob, err := bs.Create(ctx, name)
	if err != nil {
		return CaptureStats{}, fmt.Errorf("capture %s: %w", name, err)
	}

	st, err := w.writer.WriteFrame(resource.NewRateLimitedWriter(ctx, blob, rc), frame)
	if err != nil {
		_ = blobstore.Abort(blob)
		return st, fmt.Errorf("capture %s: %w", name, err)
	}
	if err := blob.Close(); err != nil {
		return st, fmt.Errorf("capture %s: %w", name, err)
	}
	return st, nil
}

// snapshot copies the current matrices so the upload runs without mu.
func (w *World) snapshot() (*capture.Frame, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed.Load() {
		return nil, ErrClosed
	}

	w.seq++
	f := &capture.Frame{
		Sequence: w.seq,
		Entities: make([]capture.EntityFrame, 0, w.store.Len()),
	}

	var err error
	w.store.Each(func(e Entity) bool {
		var ef capture.EntityFrame
		if ef, err = w.entityFrame(e); err != nil {
			return false
		}
		f.Entities = append(f.Entities, ef)
		return true
	})
	return f, err
}

func (w *World) entityFrame(e Entity) (capture.EntityFrame, error) {
	ef := capture.EntityFrame{ID: e.ID(), Gen: e.Static.Gen}

	h, err := w.store.Hierarchy(e)
	if err != nil {
		return ef, err
	}
	nt, err := w.store.NodeTransforms(e)
	if err != nil {
		return ef, err
	}
	ef.Nodes = slices.Clone(nt.M[:h.NodeCount])

	if e.Joints.Present() {
		jm, err := w.store.JointMatrices(e)
		if err != nil {
			return ef, err
		}
		ef.Joints = slices.Clone(jm.M[:jm.Count])
	}
	return ef, nil
}

// ReadCapture decodes the capture stored as name in bs, throttled by the
// resource controller's IO limit.
func (w *World) ReadCapture(ctx context.Context, bs blobstore.Store, name string) (*Frame, error) {
	blob, err := bs.Open(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("read capture %s: %w", name, err)
	}
	defer blob.Close()

	rc, err := blob.ReadRange(ctx, 0, blob.Size())
	if err != nil {
		return nil, fmt.Errorf("read capture %s: %w", name, err)
	}
	defer rc.Close()

	f, err := capture.Decode(resource.NewRateLimitedReader(ctx, rc, w.opts.resources), capture.WithMaxEntities(w.opts.capacity))
	if err != nil {
		return nil, fmt.Errorf("read capture %s: %w", name, err)
	}
	return f, nil
}

// Stats returns a snapshot of pool, tier and arena usage.
func (w *World) Stats() Stats {
	w.mu.Lock()
	st := Stats{
		Entities: w.store.Len(),
		Store:    w.store.Stats(),
	}
	w.mu.Unlock()

	w.captureMu.Lock()
	st.FrameArena = w.frameArena.Stats()
	w.captureMu.Unlock()

	st.Tiers = w.alloc.Stats()
	st.MemoryUsage = w.opts.resources.MemoryUsage()
	st.MemoryLimit = w.opts.resources.MemoryLimit()
	st.Captures = w.captures.Load()
	st.BackgroundActive = w.opts.resources.BackgroundActive()
	return st
}

// BlockPools describes the small and medium allocator tiers.
func (w *World) BlockPools() []BlockPoolInfo {
	var out []BlockPoolInfo
	w.alloc.Inspect(func(small, medium *blockpool.Pool) {
		out = []BlockPoolInfo{
			blockPoolInfo(tiered.Small.String(), small),
			blockPoolInfo(tiered.Medium.String(), medium),
		}
	})
	return out
}

func blockPoolInfo(name string, p *blockpool.Pool) BlockPoolInfo {
	return BlockPoolInfo{
		Name:       name,
		BlockSize:  p.BlockSize(),
		BlockCount: p.BlockCount(),
		Used:       p.Used(),
		Runs:       p.Runs(),
		UsedSet:    p.UsedSet(),
	}
}

// Close releases the allocator tiers and the frame arena. Entities and
// memory handed out by Alloc become invalid. Close is idempotent.
func (w *World) Close() error {
	if w == nil || w.closed.Swap(true) {
		return nil
	}

	w.captureMu.Lock()
	defer w.captureMu.Unlock()
	w.mu.Lock()
	defer w.mu.Unlock()

	return errors.Join(w.frameArena.Close(), w.alloc.Close())
}
