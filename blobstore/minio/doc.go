// Package minio provides a BlobStore implementation using the MinIO client.
//
// It works with MinIO and other S3-compatible storage systems such as Ceph,
// SeaweedFS and Garage, and is the air-gap friendly alternative to the s3
// package for fetching datasets.
//
// # Basic Usage
//
//	client, err := minio.New("localhost:9000", &minio.Options{
//	    Creds:  credentials.NewStaticV4("minioadmin", "minioadmin", ""),
//	    Secure: false,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	store := minioblob.NewStore(client, "corpora", "jsonexamples/")
//	fetcher := dataset.NewFetcher(store, "testdata")
package minio
