// Package dataset fetches benchmark corpora into a local directory and
// verifies them by SHA-256 checksum before they are loaded.
//
// A Dataset names a blob in a blobstore.BlobStore and the local path it is
// materialized at. Fetcher.Ensure reuses a local file whose checksum matches
// and otherwise downloads, decodes and verifies the blob, moving it into
// place only once it is known to be correct:
//
//	store := blobstore.NewLocalStore("/mnt/corpora")
//	f := dataset.NewFetcher(store, "testdata")
//	file, err := f.Ensure(ctx, dataset.Dataset{
//	    Name:     "twitter",
//	    Path:     "twitter/twitter.json",
//	    Source:   "twitter.json.gz",
//	    Checksum: "c5b2...",
//	})
//
// Catalogs of datasets are kept in YAML files (LoadCatalog) or in a
// DynamoDB table (DynamoCatalog).
package dataset
