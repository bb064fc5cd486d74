package scenecore

import (
	"github.com/hupe1980/scenecore/internal/arena"
	"github.com/hupe1980/scenecore/internal/blockpool"
	"github.com/hupe1980/scenecore/internal/capture"
	"github.com/hupe1980/scenecore/internal/ecs"
	"github.com/hupe1980/scenecore/internal/tiered"
	"github.com/hupe1980/scenecore/internal/transform"
)

// DefaultCapacity is the default number of entries per component pool.
const DefaultCapacity = ecs.DefaultCapacity

// MaxNodes is the maximum number of nodes in a spawned scene.
const MaxNodes = transform.MaxNodes

// MaxJoints is the maximum number of joints in a spawned scene's skin.
const MaxJoints = transform.MaxJoints

type (
	// Entity bundles the generation-checked component handles of one
	// spawned scene.
	Entity = ecs.Entity
	// Handle references one component slot.
	Handle = ecs.Handle
	// SpawnOptions selects optional components.
	SpawnOptions = ecs.SpawnOptions

	// NodeTransforms holds the world transform of every node of an entity.
	NodeTransforms = transform.NodeTransforms
	// JointMatrices holds the skinning matrices of an entity.
	JointMatrices = transform.JointMatrices
	// Sample is the animation input written before Update.
	Sample = transform.Sample
	// Hierarchy is an entity's parent table.
	Hierarchy = transform.Hierarchy

	// TieredConfig configures the general-purpose allocator.
	TieredConfig = tiered.Config
	// TierStats holds per-tier allocation counters.
	TierStats = tiered.Stats
	// StoreStats holds per-pool occupancy.
	StoreStats = ecs.Stats
	// PoolStats is the occupancy of one component pool.
	PoolStats = ecs.PoolStats
	// ArenaStats describes the capture frame arena.
	ArenaStats = arena.Stats
	// BlockRun is a run of blocks in the same state.
	BlockRun = blockpool.Run

	// CaptureStats describes one written capture.
	CaptureStats = capture.Stats
	// Frame is a decoded capture.
	Frame = capture.Frame
	// EntityFrame is one entity of a decoded capture.
	EntityFrame = capture.EntityFrame
)

// NewEntity returns an entity that refers to nothing.
func NewEntity() Entity {
	return ecs.NewEntity()
}
