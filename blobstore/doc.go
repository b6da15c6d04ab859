// Package blobstore provides read access to the blobs that datasets are
// fetched from.
//
// BlobStore is the interface for listing and opening immutable blobs (JSON
// documents, JSON Lines corpora, compressed archives of either).
// Implementations must be safe for concurrent use.
//
// # Built-in Implementations
//
//   - LocalStore: Local filesystem with mmap support
//   - MemoryStore: In-memory store for tests
//   - s3.Store: Amazon S3 with range reads and parallel downloads
//   - minio.Store: MinIO and other S3-compatible services
//
// # Custom Implementations
//
// Implement the BlobStore interface to support custom storage backends:
//
//	type BlobStore interface {
//	    Open(ctx, name) (Blob, error)
//	    List(ctx, prefix) ([]string, error)
//	}
//
// Stores that can write a whole blob faster than a single stream (for
// example with parallel ranged GETs) also implement Downloader.
package blobstore
