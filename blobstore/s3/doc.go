// Package s3 provides an S3 implementation of the blobstore.BlobStore interface.
//
// # Usage
//
//	store, err := s3.New(ctx, "my-bucket",
//	    s3.WithPrefix("datasets/"),
//	    s3.WithRegion("us-east-1"),
//	)
//
//	fetcher := dataset.NewFetcher(store)
//
// # Features
//
//   - Range reads for efficient partial fetches
//   - Parallel multi-part downloads of whole datasets (blobstore.Downloader)
//   - Automatic pagination for listing
//   - Configurable prefix for multi-tenant isolation
package s3
