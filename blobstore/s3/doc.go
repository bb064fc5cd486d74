// Package s3 provides an Amazon S3 implementation of blobstore.Store.
//
// # Usage
//
//	cfg, err := config.LoadDefaultConfig(ctx)
//	store := s3.NewStore(awss3.NewFromConfig(cfg), "my-bucket", "captures/")
//
//	w, _ := world.New(...)
//	err = w.Capture(ctx, store, "frame-000001.scap")
//
// # Features
//
//   - Range reads for partial fetches
//   - Streaming multipart uploads for Create
//   - CRC32C-checked single-request uploads for Put
//   - Automatic pagination for listing
package s3
