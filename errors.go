package scenecore

import (
	"errors"
	"fmt"

	"github.com/hupe1980/scenecore/internal/arena"
	"github.com/hupe1980/scenecore/internal/blockpool"
	"github.com/hupe1980/scenecore/internal/ecs"
	"github.com/hupe1980/scenecore/internal/freelist"
	"github.com/hupe1980/scenecore/internal/slot"
	"github.com/hupe1980/scenecore/internal/tiered"
	"github.com/hupe1980/scenecore/internal/transform"
	"github.com/hupe1980/scenecore/resource"
	"github.com/hupe1980/scenecore/scene"
)

// Public error taxonomy. Every error returned by World matches at most one
// of these through errors.Is, and still matches the underlying package
// error.
var (
	// ErrCapacityExhausted means a fixed-capacity pool, arena or memory
	// budget has no room left. It indicates a sizing bug and is not retried.
	ErrCapacityExhausted = errors.New("capacity exhausted")

	// ErrDoubleFree means memory or a slot was released that is not allocated.
	ErrDoubleFree = errors.New("double free")

	// ErrOutOfRange means a pointer or index lies outside the managed buffer.
	ErrOutOfRange = errors.New("out of range")

	// ErrMalformedScene means the scene failed validation or hierarchy
	// construction (too many nodes, missing root, bad child, cycle).
	ErrMalformedScene = errors.New("malformed scene")

	// ErrStaleHandle means an entity handle refers to a released slot.
	ErrStaleHandle = errors.New("stale handle")

	// ErrNoComponent means the entity has no such component.
	ErrNoComponent = errors.New("component not present")

	// ErrInvalidArgument means a size or option is invalid.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrClosed is returned by every operation after Close.
	ErrClosed = errors.New("world closed")
)

var errorClasses = []struct {
	public   error
	internal []error
}{
	{ErrCapacityExhausted, []error{
		slot.ErrExhausted,
		arena.ErrArenaFull,
		arena.ErrArrayFull,
		blockpool.ErrFull,
		freelist.ErrFull,
		resource.ErrMemoryLimitExceeded,
	}},
	{ErrDoubleFree, []error{
		slot.ErrDoubleFree,
		blockpool.ErrDoubleFree,
		freelist.ErrDoubleFree,
	}},
	{ErrOutOfRange, []error{
		slot.ErrOutOfRange,
		blockpool.ErrOutOfRange,
		freelist.ErrOutOfRange,
	}},
	{ErrMalformedScene, []error{
		scene.ErrInvalidScene,
		transform.ErrTooManyNodes,
		transform.ErrTooManyJoints,
		transform.ErrMissingRoot,
		transform.ErrInvalidChild,
		transform.ErrCycle,
	}},
	{ErrStaleHandle, []error{ecs.ErrStaleHandle}},
	{ErrNoComponent, []error{ecs.ErrNoComponent}},
	{ErrInvalidArgument, []error{
		tiered.ErrInvalidSize,
		tiered.ErrInvalidConfig,
		blockpool.ErrInvalidConfig,
		freelist.ErrInvalidSize,
		arena.ErrInvalidSize,
		arena.ErrInvalidAlignment,
		slot.ErrInvalidCapacity,
	}},
	{ErrClosed, []error{
		arena.ErrClosed,
		blockpool.ErrClosed,
		freelist.ErrClosed,
	}},
}

func translateError(err error) error {
	if err == nil {
		return nil
	}
	for _, c := range errorClasses {
		if errors.Is(err, c.public) {
			return err
		}
		for _, target := range c.internal {
			if errors.Is(err, target) {
				return fmt.Errorf("%w: %w", c.public, err)
			}
		}
	}
	return err
}
