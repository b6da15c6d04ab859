package fs

import (
	"fmt"
	"os"
	"strings"
	"sync"
)

// Fault defines specific failure behavior.
type Fault struct {
	FailOnOpen         bool
	FailOnStat         bool
	FailAfterBytes     int64 // Fail writes after this many bytes written TO THIS FILE. -1 to disable.
	FailAfterReadBytes int64 // Fail reads after this many bytes read FROM THIS FILE. -1 to disable.
	FailOnSync         bool
	FailOnClose        bool
	Err                error
}

// FaultyFS is a FileSystem wrapper that can inject errors.
type FaultyFS struct {
	FS      FileSystem
	mu      sync.Mutex
	rules   map[string]Fault // Filename pattern -> Fault
	Default Fault            // Fallback

	// Err is used when a matching Fault carries no error of its own.
	Err     error
	written int64
	read    int64
}

// NewFaultyFS creates a new FaultyFS wrapping the provided FS (or Default if nil).
func NewFaultyFS(fs FileSystem) *FaultyFS {
	if fs == nil {
		fs = Default
	}
	return &FaultyFS{
		FS:    fs,
		rules: make(map[string]Fault),
		Default: Fault{
			FailAfterBytes:     -1,
			FailAfterReadBytes: -1,
		},
		Err: fmt.Errorf("injected fault error"),
	}
}

// GetWritten returns the total bytes written so far.
func (f *FaultyFS) GetWritten() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.written
}

// GetRead returns the total bytes read so far.
func (f *FaultyFS) GetRead() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.read
}

// AddRule adds a fault injection rule for a specific file pattern.
// Unset byte limits in fault should be -1; zero means "fail immediately".
func (f *FaultyFS) AddRule(pattern string, fault Fault) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rules[pattern] = fault
}

func (f *FaultyFS) faultFor(name string) Fault {
	f.mu.Lock()
	defer f.mu.Unlock()
	fault := f.Default
	for pattern, rule := range f.rules {
		if strings.Contains(name, pattern) {
			fault = rule
		}
	}
	if fault.Err == nil {
		fault.Err = f.Err
	}
	return fault
}

func (f *FaultyFS) Open(name string) (File, error) {
	return f.OpenFile(name, os.O_RDONLY, 0)
}

func (f *FaultyFS) OpenFile(name string, flag int, perm os.FileMode) (File, error) {
	fault := f.faultFor(name)
	if fault.FailOnOpen {
		return nil, fault.Err
	}

	file, err := f.FS.OpenFile(name, flag, perm)
	if err != nil {
		return nil, err
	}
	return &faultyFile{File: file, fs: f, fault: fault}, nil
}

func (f *FaultyFS) Remove(name string) error {
	return f.FS.Remove(name)
}

func (f *FaultyFS) Rename(oldpath, newpath string) error {
	return f.FS.Rename(oldpath, newpath)
}

func (f *FaultyFS) Stat(name string) (os.FileInfo, error) {
	if fault := f.faultFor(name); fault.FailOnStat {
		return nil, fault.Err
	}
	return f.FS.Stat(name)
}

func (f *FaultyFS) MkdirAll(path string, perm os.FileMode) error {
	return f.FS.MkdirAll(path, perm)
}

type faultyFile struct {
	File
	fs      *FaultyFS
	fault   Fault
	written int64
	read    int64
}

func (ff *faultyFile) Read(p []byte) (n int, err error) {
	if ff.fault.FailAfterReadBytes >= 0 && ff.read+int64(len(p)) > ff.fault.FailAfterReadBytes {
		// Deliver what the budget still allows before failing.
		allowed := ff.fault.FailAfterReadBytes - ff.read
		if allowed <= 0 {
			return 0, ff.fault.Err
		}
		p = p[:allowed]
	}

	n, err = ff.File.Read(p)
	ff.read += int64(n)
	ff.fs.mu.Lock()
	ff.fs.read += int64(n)
	ff.fs.mu.Unlock()
	return n, err
}

func (ff *faultyFile) Write(p []byte) (n int, err error) {
	if ff.fault.FailAfterBytes >= 0 && ff.written+int64(len(p)) > ff.fault.FailAfterBytes {
		return 0, ff.fault.Err
	}

	n, err = ff.File.Write(p)
	if n > 0 {
		ff.written += int64(n)
		ff.fs.mu.Lock()
		ff.fs.written += int64(n)
		ff.fs.mu.Unlock()
	}
	return n, err
}

func (ff *faultyFile) Stat() (os.FileInfo, error) {
	if ff.fault.FailOnStat {
		return nil, ff.fault.Err
	}
	return ff.File.Stat()
}

func (ff *faultyFile) Sync() error {
	if ff.fault.FailOnSync {
		return ff.fault.Err
	}
	return ff.File.Sync()
}

func (ff *faultyFile) Close() error {
	if ff.fault.FailOnClose {
		_ = ff.File.Close()
		return ff.fault.Err
	}
	return ff.File.Close()
}
