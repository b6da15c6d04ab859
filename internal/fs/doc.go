// Package fs provides filesystem abstractions for testability and fault injection.
//
// The package defines two key interfaces:
//
//   - [File]: Represents an open file with read/write/sync capabilities
//   - [FileSystem]: Abstracts filesystem operations (open, remove, rename, etc.)
//
// # Implementations
//
//   - [LocalFS]: Production implementation using standard os package
//   - [FaultyFS]: Test utility for fault injection (simulate I/O errors)
//
// # Usage
//
// Production code should use fs.Default (which is [LocalFS]):
//
//	file, err := fs.Default.Open(path)
//
// Tests can inject [FaultyFS] to simulate failures:
//
//	ffs := fs.NewFaultyFS(nil)
//	ffs.AddRule("corpus", fs.Fault{FailAfterReadBytes: 128})
//	// inject ffs into component under test
//
// # Design Notes
//
// This package intentionally does NOT include context.Context parameters.
// Local filesystem operations are non-interruptible at the syscall level.
// Remote reads go through blobstore, which has context support.
package fs
