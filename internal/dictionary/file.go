package dictionary

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Format is a dictionary file encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
)

// ParseFormat converts a format name.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return FormatJSON, nil
	case "toml":
		return FormatTOML, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("unknown dictionary format %q", s)
}

// File is the on-disk dictionary schema: {"words": {...}, "phrases": {...}}.
type File struct {
	Words   map[string]Entry `json:"words" yaml:"words" toml:"words"`
	Phrases map[string]Entry `json:"phrases" yaml:"phrases" toml:"phrases"`
}

// NewFile returns an empty file with allocated maps.
func NewFile() File {
	return File{Words: map[string]Entry{}, Phrases: map[string]Entry{}}
}

func (f File) clone() File {
	c := NewFile()
	for k, v := range f.Words {
		c.Words[k] = v
	}
	for k, v := range f.Phrases {
		c.Phrases[k] = v
	}
	return c
}

// Len returns the number of words plus phrases.
func (f File) Len() int {
	return len(f.Words) + len(f.Phrases)
}

// rawFile accepts entry values written either as a bare alias string or as
// an {alias, confidence} object.
type rawFile struct {
	Words   map[string]any `json:"words" yaml:"words" toml:"words"`
	Phrases map[string]any `json:"phrases" yaml:"phrases" toml:"phrases"`
}

// FormatForPath picks a format from the file extension, ignoring a trailing .zst.
func FormatForPath(path string) (Format, bool) {
	p := strings.TrimSuffix(strings.ToLower(path), ".zst")
	switch filepath.Ext(p) {
	case ".json":
		return FormatJSON, true
	case ".toml":
		return FormatTOML, true
	case ".yaml", ".yml":
		return FormatYAML, true
	}
	return "", false
}

// ReadFile loads a dictionary file. A .zst suffix is decompressed first.
func ReadFile(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, err
	}
	return parseBytes(path, data)
}

func parseBytes(path string, data []byte) (File, error) {
	format, ok := FormatForPath(path)
	if !ok {
		return File{}, fmt.Errorf("%s: unsupported dictionary extension", path)
	}
	if strings.HasSuffix(strings.ToLower(path), ".zst") {
		var err error
		if data, err = decompress(data); err != nil {
			return File{}, fmt.Errorf("%s: %w", path, err)
		}
	}
	f, err := Parse(data, format)
	if err != nil {
		return File{}, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Parse decodes data in the given format.
func Parse(data []byte, format Format) (File, error) {
	var raw rawFile
	var err error
	switch format {
	case FormatJSON:
		err = json.Unmarshal(data, &raw)
	case FormatTOML:
		err = toml.Unmarshal(data, &raw)
	case FormatYAML:
		err = yaml.Unmarshal(data, &raw)
	default:
		return File{}, fmt.Errorf("unknown dictionary format %q", format)
	}
	if err != nil {
		return File{}, fmt.Errorf("decode %s: %w", format, err)
	}

	f := NewFile()
	if err := convertEntries(raw.Words, f.Words); err != nil {
		return File{}, fmt.Errorf("words: %w", err)
	}
	if err := convertEntries(raw.Phrases, f.Phrases); err != nil {
		return File{}, fmt.Errorf("phrases: %w", err)
	}
	return f, nil
}

func convertEntries(in map[string]any, out map[string]Entry) error {
	for k, v := range in {
		e, err := toEntry(v)
		if err != nil {
			return fmt.Errorf("key %q: %w", k, err)
		}
		out[k] = e
	}
	return nil
}

func toEntry(v any) (Entry, error) {
	switch t := v.(type) {
	case string:
		return Entry{Alias: t, Confidence: DefaultConfidence}, nil
	case map[string]any:
		alias, _ := t["alias"].(string)
		if alias == "" {
			return Entry{}, fmt.Errorf("missing alias")
		}
		e := Entry{Alias: alias, Confidence: DefaultConfidence}
		if c, ok := t["confidence"]; ok {
			f, ok := toFloat(c)
			if !ok {
				return Entry{}, fmt.Errorf("confidence must be a number")
			}
			e.Confidence = f
		}
		return e, nil
	}
	return Entry{}, fmt.Errorf("unsupported entry type %T", v)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// Encode writes f in the given format.
func Encode(w io.Writer, f File, format Format) error {
	if f.Words == nil {
		f.Words = map[string]Entry{}
	}
	if f.Phrases == nil {
		f.Phrases = map[string]Entry{}
	}
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(f)
	case FormatTOML:
		return toml.NewEncoder(w).Encode(f)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(f); err != nil {
			return err
		}
		return enc.Close()
	}
	return fmt.Errorf("unknown dictionary format %q", format)
}

// WriteFile atomically replaces path with f, encoded by extension.
func WriteFile(path string, f File) error {
	format, ok := FormatForPath(path)
	if !ok {
		return fmt.Errorf("%s: unsupported dictionary extension", path)
	}
	var buf bytes.Buffer
	if err := Encode(&buf, f, format); err != nil {
		return err
	}
	data := buf.Bytes()
	if strings.HasSuffix(strings.ToLower(path), ".zst") {
		var err error
		if data, err = compress(data); err != nil {
			return err
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create dictionary directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".dict-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

func compress(data []byte) ([]byte, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, err
	}
	defer enc.Close()
	return enc.EncodeAll(data, nil), nil
}

func decompress(data []byte) ([]byte, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	out, err := dec.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("zstd: %w", err)
	}
	return out, nil
}
