//go:build !windows

package learning

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"syscall"
)

// fileLock is an exclusive advisory lock guarding a learned dictionary
// file against writers in other processes.
type fileLock struct {
	file *os.File
}

// acquireFileLock blocks until the lock next to path is held.
func acquireFileLock(path string) (*fileLock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating dictionary directory: %w", err)
	}

	file, err := os.OpenFile(path+".lock", os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening lock file: %w", err)
	}

	if err := syscall.Flock(int(file.Fd()), syscall.LOCK_EX); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("locking %s: %w", path, err)
	}

	if err := file.Truncate(0); err == nil {
		_, _ = file.WriteAt([]byte(strconv.Itoa(os.Getpid())), 0)
	}
	return &fileLock{file: file}, nil
}

// release unlocks and closes the lock file. The file itself is left in
// place so concurrent waiters keep locking the same inode.
func (l *fileLock) release() {
	if l == nil || l.file == nil {
		return
	}
	_ = syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN)
	_ = l.file.Close()
}
