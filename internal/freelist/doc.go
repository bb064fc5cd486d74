// Package freelist implements a first-fit allocator over a fixed buffer for
// variable-sized requests.
//
// Free space is a list of spans sorted by offset. Alloc takes the first span
// large enough for the request (rounded up to Alignment) and splits it; Free
// reinserts the span and merges it with free neighbours. An allocation table
// keyed by offset rejects double frees and foreign pointers.
//
// When a MemoryAcquirer is configured, every live allocation is charged
// against it for its rounded size.
package freelist
