//go:build windows

package learning

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// fileLock on Windows only records the writer PID; cross-process
// exclusion relies on the in-process mutex and atomic rename.
type fileLock struct {
	file *os.File
}

func acquireFileLock(path string) (*fileLock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating dictionary directory: %w", err)
	}

	file, err := os.OpenFile(path+".lock", os.O_CREATE|os.O_RDWR|os.O_TRUNC, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening lock file: %w", err)
	}
	_, _ = file.WriteString(strconv.Itoa(os.Getpid()))
	return &fileLock{file: file}, nil
}

func (l *fileLock) release() {
	if l == nil || l.file == nil {
		return
	}
	_ = l.file.Close()
}
