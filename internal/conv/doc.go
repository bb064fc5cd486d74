// Package conv provides checked integer conversions.
//
// Used where an int crosses into a fixed-width field: handle indices,
// capture headers, arena offsets. Conversions that are bounded by a
// capacity constant use plain casts instead.
package conv
