package main

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_Document(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"a":[1,2,3]}`), 0o644))

	var out bytes.Buffer
	require.NoError(t, run([]string{"--log-level", "error", path}, &out))
	assert.Contains(t, out.String(), "content bytes: 13")
	assert.Contains(t, out.String(), "padded bytes:  78")
}

func TestReleaseInto(t *testing.T) {
	failed := errors.New("unmap failed")

	var err error
	releaseInto(&err, func() error { return failed })
	assert.ErrorIs(t, err, failed)

	earlier := errors.New("print failed")
	err = earlier
	releaseInto(&err, func() error { return failed })
	assert.Equal(t, earlier, err)

	err = nil
	releaseInto(&err, func() error { return nil })
	assert.NoError(t, err)
}

func TestRun_Corpus(t *testing.T) {
	path := filepath.Join(t.TempDir(), "small.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("{\"a\":1}\n\n{\"b\":22}\n"), 0o644))

	var out bytes.Buffer
	require.NoError(t, run([]string{"--corpus", "--off-heap", "--log-level", "error", path}, &out))
	assert.Contains(t, out.String(), "records:       2")
	assert.Contains(t, out.String(), "skipped lines: 1")
	assert.Contains(t, out.String(), "buffer bytes:  128")
	assert.Contains(t, out.String(), "owner line:    3")
}

func TestRun_Dataset(t *testing.T) {
	content := []byte("{\"id\":\"first\"}\n{\"id\":\"second\"}\n")
	sum := sha256.Sum256(content)

	storeDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(storeDir, "ids.jsonl"), content, 0o644))

	root := t.TempDir()
	catalog := filepath.Join(t.TempDir(), "datasets.yaml")
	require.NoError(t, os.WriteFile(catalog, []byte(`
root: `+root+`
datasets:
  - name: ids
    path: ids/ids.jsonl
    source: ids.jsonl
    checksum: `+hex.EncodeToString(sum[:])+`
    corpus: true
`), 0o644))

	var out bytes.Buffer
	require.NoError(t, run([]string{"--catalog", catalog, "--dataset", "ids", "--store-dir", storeDir, "--log-level", "error"}, &out))
	assert.Contains(t, out.String(), "records:       2")
	assert.FileExists(t, filepath.Join(root, "ids", "ids.jsonl"))
}

func TestRun_Usage(t *testing.T) {
	var out bytes.Buffer
	assert.Error(t, run(nil, &out))
	assert.Error(t, run([]string{"--dataset", "x"}, &out))
	assert.Error(t, run([]string{"--log-level", "loud", "x.json"}, &out))
	assert.Error(t, run([]string{"--help"}, &out))
	assert.Error(t, run([]string{"--min-record", "10", "--max-line", "5", "x.json"}, &out))
}
