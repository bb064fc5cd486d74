package ecs

import (
	"errors"
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/hupe1980/scenecore/internal/transform"
	"github.com/hupe1980/scenecore/scene"
)

// DefaultCapacity is the default number of entries per pool.
const DefaultCapacity = 64

var (
	// ErrStaleHandle is returned for handles whose slot was released or reused.
	ErrStaleHandle = errors.New("ecs: stale handle")
	// ErrNoComponent is returned when an entity lacks the requested component.
	ErrNoComponent = errors.New("ecs: component not present")
)

// Config sizes the store.
type Config struct {
	// Capacity is the number of entries in every pool.
	Capacity int
}

// SpawnOptions controls which optional components an entity receives.
type SpawnOptions struct {
	// Animated allocates an animation sample slot.
	Animated bool
}

// Static is the per-entity data derived once at spawn.
type Static struct {
	Entity    Entity
	Scene     *scene.Scene
	Hierarchy transform.Hierarchy
	World     mgl32.Mat4
}

// Stats holds per-pool occupancy.
type Stats struct {
	Static    PoolStats
	Nodes     PoolStats
	Joints    PoolStats
	Animation PoolStats
}

// Store owns the component pools.
type Store struct {
	static *Pool[Static]
	nodes  *Pool[transform.NodeTransforms]
	joints *Pool[transform.JointMatrices]
	anim   *Pool[transform.Sample]
	live   *roaring.Bitmap
}

// NewStore creates the pools.
func NewStore(cfg Config) (*Store, error) {
	if cfg.Capacity == 0 {
		cfg.Capacity = DefaultCapacity
	}

	s := &Store{live: roaring.New()}

	var err error
	if s.static, err = NewPool[Static](StaticPool, cfg.Capacity); err != nil {
		return nil, err
	}
	if s.nodes, err = NewPool[transform.NodeTransforms](NodesPool, cfg.Capacity); err != nil {
		return nil, err
	}
	if s.joints, err = NewPool[transform.JointMatrices](JointsPool, cfg.Capacity); err != nil {
		return nil, err
	}
	if s.anim, err = NewPool[transform.Sample](AnimationPool, cfg.Capacity); err != nil {
		return nil, err
	}
	return s, nil
}

// Spawn creates an entity for sc. The scene must not be mutated while the
// entity is alive.
func (s *Store) Spawn(sc *scene.Scene, opts SpawnOptions) (Entity, error) {
	e := NewEntity()

	if err := sc.Validate(); err != nil {
		return e, err
	}
	h, err := transform.BuildHierarchy(sc)
	if err != nil {
		return e, err
	}

	rollback := func(err error) (Entity, error) {
		_ = s.release(e)
		return NewEntity(), err
	}

	var st *Static
	if e.Static, st, err = s.static.Acquire(); err != nil {
		return rollback(err)
	}
	if e.Nodes, _, err = s.nodes.Acquire(); err != nil {
		return rollback(err)
	}
	if sc.Skinned() {
		if e.Joints, _, err = s.joints.Acquire(); err != nil {
			return rollback(err)
		}
	}
	if opts.Animated {
		if e.Animation, _, err = s.anim.Acquire(); err != nil {
			return rollback(err)
		}
	}

	*st = Static{Entity: e, Scene: sc, Hierarchy: h, World: mgl32.Ident4()}
	s.live.Add(uint32(e.Static.Index)) //nolint:gosec // index >= 0 after Acquire

	return e, nil
}

// Release frees every component of e. e itself is left unchanged; see Destroy.
// e must match the entity recorded at spawn in every handle; a bundle mixing
// handles of different entities is rejected with ErrStaleHandle.
func (s *Store) Release(e Entity) error {
	st, err := s.staticOf(e)
	if err != nil {
		return err
	}
	return s.release(st.Entity)
}

func (s *Store) release(e Entity) error {
	var errs []error
	if e.Animation.Present() {
		errs = append(errs, s.anim.Release(e.Animation))
	}
	if e.Joints.Present() {
		errs = append(errs, s.joints.Release(e.Joints))
	}
	if e.Nodes.Present() {
		errs = append(errs, s.nodes.Release(e.Nodes))
	}
	if e.Static.Present() {
		if err := s.static.Release(e.Static); err != nil {
			errs = append(errs, err)
		} else {
			s.live.Remove(uint32(e.Static.Index)) //nolint:gosec // index >= 0
		}
	}
	return errors.Join(errs...)
}

// Destroy releases e and resets it so that it refers to nothing.
func (s *Store) Destroy(e *Entity) error {
	err := s.Release(*e)
	e.Reset()
	return err
}

// Alive reports whether e refers to a live entity.
func (s *Store) Alive(e Entity) bool {
	return s.static.Valid(e.Static)
}

func (s *Store) staticOf(e Entity) (*Static, error) {
	st, err := s.static.Get(e.Static)
	if err != nil {
		return nil, err
	}
	// A live static slot only ever belongs to the entity recorded in it.
	if st.Entity != e {
		return nil, fmt.Errorf("%w: %s does not match live %s", ErrStaleHandle, e, st.Entity)
	}
	return st, nil
}

// Recalculate recomputes the node transforms and, for skinned entities, the
// joint matrices of e.
func (s *Store) Recalculate(e Entity) error {
	st, err := s.staticOf(e)
	if err != nil {
		return err
	}
	nodes, err := s.nodes.Get(e.Nodes)
	if err != nil {
		return err
	}

	var sample *transform.Sample
	if e.Animation.Present() {
		if sample, err = s.anim.Get(e.Animation); err != nil {
			return err
		}
	}

	if err := transform.Recalculate(&st.Hierarchy, st.Scene, st.World, sample, nodes); err != nil {
		return err
	}

	if !e.Joints.Present() {
		return nil
	}
	joints, err := s.joints.Get(e.Joints)
	if err != nil {
		return err
	}
	return transform.ComputeJoints(st.Scene, st.World, nodes, joints)
}

// SetWorldTransform sets the transform seeded into e's roots.
func (s *Store) SetWorldTransform(e Entity, m mgl32.Mat4) error {
	st, err := s.staticOf(e)
	if err != nil {
		return err
	}
	st.World = m
	return nil
}

// WorldTransform returns e's world transform.
func (s *Store) WorldTransform(e Entity) (mgl32.Mat4, error) {
	st, err := s.staticOf(e)
	if err != nil {
		return mgl32.Mat4{}, err
	}
	return st.World, nil
}

// NodeTransforms returns e's node transform slot.
func (s *Store) NodeTransforms(e Entity) (*transform.NodeTransforms, error) {
	if _, err := s.staticOf(e); err != nil {
		return nil, err
	}
	return s.nodes.Get(e.Nodes)
}

// JointMatrices returns e's joint matrix slot, or ErrNoComponent for
// unskinned entities.
func (s *Store) JointMatrices(e Entity) (*transform.JointMatrices, error) {
	if _, err := s.staticOf(e); err != nil {
		return nil, err
	}
	return s.joints.Get(e.Joints)
}

// Sample returns e's animation sample slot, or ErrNoComponent if e was not
// spawned as animated.
func (s *Store) Sample(e Entity) (*transform.Sample, error) {
	if _, err := s.staticOf(e); err != nil {
		return nil, err
	}
	return s.anim.Get(e.Animation)
}

// Hierarchy returns e's parent table.
func (s *Store) Hierarchy(e Entity) (*transform.Hierarchy, error) {
	st, err := s.staticOf(e)
	if err != nil {
		return nil, err
	}
	return &st.Hierarchy, nil
}

// Scene returns the scene e was spawned from.
func (s *Store) Scene(e Entity) (*scene.Scene, error) {
	st, err := s.staticOf(e)
	if err != nil {
		return nil, err
	}
	return st.Scene, nil
}

// Each calls fn for every live entity in ascending static slot order until
// fn returns false. fn must not spawn or release entities.
func (s *Store) Each(fn func(Entity) bool) {
	it := s.live.Iterator()
	for it.HasNext() {
		if !fn(s.static.items[it.Next()].Entity) {
			return
		}
	}
}

// Entities returns the live entities in ascending static slot order.
func (s *Store) Entities() []Entity {
	out := make([]Entity, 0, s.live.GetCardinality())
	s.Each(func(e Entity) bool {
		out = append(out, e)
		return true
	})
	return out
}

// Len returns the number of live entities.
func (s *Store) Len() int {
	return int(s.live.GetCardinality()) //nolint:gosec // bounded by pool capacity
}

// Stats returns per-pool occupancy.
func (s *Store) Stats() Stats {
	return Stats{
		Static:    s.static.Stats(),
		Nodes:     s.nodes.Stats(),
		Joints:    s.joints.Stats(),
		Animation: s.anim.Stats(),
	}
}
