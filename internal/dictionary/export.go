package dictionary

import (
	"bytes"
	"embed"
	"fmt"
	"io"
	"sync"
)

//go:embed builtin.json
var builtinFS embed.FS

var (
	builtinOnce sync.Once
	builtinFile File
	builtinErr  error
)

// BuiltinFile returns the embedded default word table.
func BuiltinFile() (File, error) {
	builtinOnce.Do(func() {
		data, err := builtinFS.ReadFile("builtin.json")
		if err != nil {
			builtinErr = err
			return
		}
		builtinFile, builtinErr = Parse(data, FormatJSON)
	})
	if builtinErr != nil {
		return File{}, builtinErr
	}
	return builtinFile.clone(), nil
}

// Export writes the flattened snapshot. With zstd set the encoded bytes are
// compressed; the output can be loaded again as a "<name>.<format>.zst" layer.
func Export(w io.Writer, snap *Snapshot, format Format, zstd bool) error {
	f := snap.Flatten()
	if !zstd {
		return Encode(w, f, format)
	}
	var buf bytes.Buffer
	if err := Encode(&buf, f, format); err != nil {
		return err
	}
	data, err := compress(buf.Bytes())
	if err != nil {
		return fmt.Errorf("compress export: %w", err)
	}
	_, err = w.Write(data)
	return err
}
