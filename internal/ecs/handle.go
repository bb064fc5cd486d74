package ecs

import "fmt"

// PoolID identifies a component pool.
type PoolID uint8

const (
	StaticPool PoolID = iota
	NodesPool
	JointsPool
	AnimationPool
)

func (id PoolID) String() string {
	switch id {
	case StaticPool:
		return "static"
	case NodesPool:
		return "nodes"
	case JointsPool:
		return "joints"
	case AnimationPool:
		return "animation"
	default:
		return fmt.Sprintf("pool(%d)", uint8(id))
	}
}

// Handle is a generation-checked reference to a pool slot.
// Index -1 means the component is absent.
type Handle struct {
	Pool  PoolID
	Index int32
	Gen   uint32
}

// absent returns the "no component" handle for pool.
func absent(pool PoolID) Handle {
	return Handle{Pool: pool, Index: -1}
}

// Present reports whether h refers to a slot at all.
func (h Handle) Present() bool { return h.Index >= 0 }

func (h Handle) String() string {
	if !h.Present() {
		return fmt.Sprintf("%s:-", h.Pool)
	}
	return fmt.Sprintf("%s:%d@%d", h.Pool, h.Index, h.Gen)
}

// Entity bundles the component handles of one spawned scene instance.
type Entity struct {
	Static    Handle
	Nodes     Handle
	Joints    Handle
	Animation Handle
}

// NewEntity returns an entity with every component absent.
func NewEntity() Entity {
	return Entity{
		Static:    absent(StaticPool),
		Nodes:     absent(NodesPool),
		Joints:    absent(JointsPool),
		Animation: absent(AnimationPool),
	}
}

// Reset marks every component absent without releasing anything.
func (e *Entity) Reset() {
	*e = NewEntity()
}

// ID returns the static slot index, which is unique among live entities.
func (e Entity) ID() int32 { return e.Static.Index }

func (e Entity) String() string {
	return fmt.Sprintf("Entity{%s %s %s %s}", e.Static, e.Nodes, e.Joints, e.Animation)
}
