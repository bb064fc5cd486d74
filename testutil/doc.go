// Package testutil provides testing utilities for scenecore.
//
// This package is intended for use in tests and benchmarks only.
// It provides seeded scene generators, a recursive reference
// implementation of transform propagation and skinning, and a blob store
// that injects faults.
//
// # Random Scenes
//
//	rng := testutil.NewRNG(seed)
//	sc := rng.Tree(32)             // one root, random parents and TRS
//	rng.BindSkin(sc, []int{1, 4})  // inverse bind matrices from the rest pose
//
// # Reference Propagation (Ground Truth)
//
//	want := testutil.ReferenceTransforms(sc, world)
//	diff := testutil.MaxAbsDiff(want, got.M[:len(sc.Nodes)])
//
// # Fault Injection
//
//	fs := testutil.NewFaultyStore(blobstore.NewMemoryStore())
//	fs.AddRule("frames/", testutil.Fault{FailAfterBytes: 16})
package testutil
