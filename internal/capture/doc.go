// Package capture serializes a frame of node transforms and joint matrices
// into a compact, compressed binary record.
//
// # Format
//
// All integers are little-endian.
//
//	Header (28 bytes)
//	  [0:4]   magic "SCAP"
//	  [4:6]   version (1)
//	  [6]     codec (0 none, 1 lz4, 2 zstd)
//	  [7]     flags (bit 0: payload stored uncompressed)
//	  [8:16]  frame sequence
//	  [16:20] entity count
//	  [20:24] raw payload length
//	  [24:28] stored payload length
//
//	Payload, one record per entity
//	  id int32, generation uint32, node count uint16, joint count uint16,
//	  node matrices, joint matrices (16 float32 each, column-major)
//
// The payload is built in a caller-supplied arena and compressed into a
// buffer borrowed from a BufferAllocator, so steady-state captures do not
// allocate from the Go heap. A payload that does not compress below 90% of
// its size is stored raw.
package capture
