// Package mem provides memory allocation utilities.
//
// # Aligned Allocation
//
// Provides 64-byte aligned heap allocation for buffers that are scanned in
// fixed vector strides.
package mem
