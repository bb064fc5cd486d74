// Package blobstore abstracts where frame captures are written and read.
//
// Captures are immutable: a blob is written once through Create (streamed)
// or Put (whole buffer) and read back through Open.
//
// # Built-in Implementations
//
//   - LocalStore: files under a root directory, read through mmap
//   - MemoryStore: in-process map, for tests and dry runs
//   - s3.Store: Amazon S3, streaming multipart uploads
//   - minio.Store: MinIO and other S3-compatible services
//
// All implementations are safe for concurrent use.
package blobstore
