// Package jsonload loads raw JSON from disk into byte ranges prepared for a
// chunk-wise vectorized scanner.
//
// It does not parse or validate JSON. It only guarantees the memory layout a
// scanner that reads 64 bytes at a time needs.
//
// # Quick Start
//
// Single document:
//
//	l, _ := jsonload.New()
//	rec, err := l.LoadDocument(ctx, "twitter.json")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer rec.Release()
//	// rec.Bytes() is the file followed by MaxPad+1 readable zero bytes.
//
// JSON Lines corpus:
//
//	set, err := l.LoadCorpus(ctx, "tweets.jsonl.gz")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer set.Release()
//	for i, rec := range set.All() {
//	    fmt.Println(i, rec.Line(), rec.Offset(), rec.Len())
//	}
//
// A query engine implements Scanner and is handed every record in order:
//
//	results, err := set.Scan(ctx, engine, "$.user.id")
//
// # Memory Layout
//
// A single document is memory-mapped read-only. The mapping carries an
// explicit margin of MaxPad+1 zero bytes past end of file, so reading up to
// MaxPad bytes past any position inside the document never faults.
//
// A corpus is copied into one 64-byte aligned buffer. Every kept line is
// followed by 1 to 64 PadByte fillers so that each record starts on a 64-byte
// boundary and its length is a multiple of 64:
//
//	offset 0   {"a":1}ddddddddd...ddd   (64 bytes)
//	offset 64  {"b":22}dddddddd...ddd   (64 bytes)
//
// Lines of MinRecordSize bytes or fewer are skipped as noise; their line
// numbers are available through RecordSet.Skipped.
//
// # Ownership
//
// All records of a RecordSet view one shared buffer. The last record is its
// designated owner. The buffer is reference counted: it is freed exactly once,
// after every record has been released, whatever the release order.
// Releasing a record twice is a no-op, and a released record no longer
// exposes any bytes.
//
// # Compression
//
// Corpora compressed with gzip, zstd or LZ4 (frame format) are detected by
// their magic bytes and decoded on the fly.
package jsonload
