package testutil

import (
	"math/rand"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)), //nolint:gosec // deterministic test data
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Float32 returns, as a float32, a pseudo-random number in [0.0,1.0).
func (r *RNG) Float32() float32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float32()
}

// Perm returns a pseudo-random permutation of [0,n).
func (r *RNG) Perm(n int) []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Perm(n)
}

// Vec3 returns a vector with components in [minVal, maxVal).
func (r *RNG) Vec3(minVal, maxVal float32) mgl32.Vec3 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.vec3Locked(minVal, maxVal)
}

func (r *RNG) vec3Locked(minVal, maxVal float32) mgl32.Vec3 {
	span := maxVal - minVal
	return mgl32.Vec3{
		minVal + r.rand.Float32()*span,
		minVal + r.rand.Float32()*span,
		minVal + r.rand.Float32()*span,
	}
}

// Rotation returns a unit quaternion about a random axis.
func (r *RNG) Rotation() mgl32.Quat {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rotationLocked()
}

func (r *RNG) rotationLocked() mgl32.Quat {
	axis := r.vec3Locked(-1, 1)
	if axis.Len() < 1e-3 {
		axis = mgl32.Vec3{0, 1, 0}
	}
	angle := (r.rand.Float32()*2 - 1) * 3.14159
	return mgl32.QuatRotate(angle, axis.Normalize())
}
