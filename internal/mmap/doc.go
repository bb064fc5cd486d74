// Package mmap provides anonymous and read-only file memory mappings.
//
// # Anonymous Mappings
//
// MapAnon returns read-write memory that lives outside the Go heap. Block
// pools and arenas created with an off-heap option carve their fixed
// buffers out of such a mapping, so a large pool neither inflates GC scan
// work nor moves.
//
// # File Mappings
//
// Open maps a file read-only. The local blob store serves frame captures
// through it.
//
// # Platform Support
//
//   - Unix: mmap(2) / munmap(2), madvise(2) for access hints
//   - Windows: VirtualAlloc for anonymous memory, MapViewOfFile for files
//
// # Thread Safety
//
// Close is idempotent. Callers must not touch Bytes() after Close returns.
package mmap
