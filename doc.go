// Package scenecore is the memory and entity core of a scene runtime.
//
// A World combines fixed-capacity allocators with an entity-component store
// and the per-frame transform pass:
//
//   - Bitmap slot allocators behind every component pool
//   - Generation-checked entity handles that detect stale reuse
//   - Hierarchy construction with cycle detection and iterative traversal
//   - Transform propagation and joint skinning (mgl32 matrices)
//   - A tiered allocator: two fixed-block pools plus a first-fit large tier
//   - A linear frame arena for capture payloads
//   - Frame capture to local files, memory, S3 or MinIO (lz4 or zstd)
//
// Every pool is sized up front. Running out of capacity is reported as
// ErrCapacityExhausted and the operation is aborted; nothing grows or
// retries.
//
// # Quick Start
//
//	w, err := scenecore.New(
//	    scenecore.WithCapacity(128),
//	    scenecore.WithLogLevel(slog.LevelInfo),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer w.Close()
//
//	f, _ := os.Open("character.json")
//	sc, err := scene.Decode(f)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	e, err := w.Spawn(ctx, sc, scenecore.SpawnOptions{Animated: true})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Each frame, write the animation sample, update, then read the results:
//
//	sample, _ := w.Sample(e)
//	sample.SetRotation(3, mgl32.QuatRotate(angle, mgl32.Vec3{0, 1, 0}))
//
//	if err := w.Update(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
//	nodes, _ := w.NodeTransforms(e)
//	joints, _ := w.JointMatrices(e)
//
// # Errors
//
// Errors match one of ErrCapacityExhausted, ErrDoubleFree, ErrOutOfRange,
// ErrMalformedScene, ErrStaleHandle, ErrNoComponent, ErrInvalidArgument or
// ErrClosed through errors.Is, and keep the underlying package error in
// the chain.
//
// # Capture
//
// Capture encodes every live entity's matrices into a compact binary frame:
//
//	store := blobstore.NewLocalStore("./captures")
//	st, err := w.Capture(ctx, store, "frame-000001.scap")
//
// Use WithResourceController to bound concurrent captures and throttle their
// IO.
package scenecore
