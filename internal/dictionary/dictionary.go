package dictionary

import (
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"golang.org/x/crypto/blake2b"

	nlerrors "namelens/internal/errors"
)

// Options configures a Dictionary.
type Options struct {
	// Builtin prepends the embedded default word table as the lowest layer.
	Builtin bool
	Logger  *slog.Logger
}

// LayerInfo describes one loaded layer.
type LayerInfo struct {
	Name    string    `json:"name"`
	Kind    LayerKind `json:"kind"`
	Path    string    `json:"path,omitempty"`
	Words   int       `json:"words"`
	Phrases int       `json:"phrases"`
	Missing bool      `json:"missing,omitempty"`
	Reused  bool      `json:"reused,omitempty"`
}

// SkippedLayer records a layer file that failed to load.
type SkippedLayer struct {
	Path string    `json:"path"`
	Kind LayerKind `json:"kind"`
	Err  error     `json:"-"`
}

// LoadReport summarizes a Load or Reload.
type LoadReport struct {
	Version uint64         `json:"version"`
	Layers  []LayerInfo    `json:"layers"`
	Skipped []SkippedLayer `json:"skipped,omitempty"`
}

type digestEntry struct {
	sum  [32]byte
	file File
}

// Dictionary owns the current Snapshot and swaps it on load and merge.
type Dictionary struct {
	opts   Options
	logger *slog.Logger

	mu      sync.Mutex // serializes loads and merges
	sources []Source
	digests map[string]digestEntry
	version uint64

	current atomic.Pointer[Snapshot]
}

// New creates an empty dictionary.
func New(opts Options) *Dictionary {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	d := &Dictionary{
		opts:    opts,
		logger:  logger,
		digests: make(map[string]digestEntry),
	}
	d.current.Store(NewSnapshot(0, nil))
	return d
}

// Snapshot returns the current immutable view.
func (d *Dictionary) Snapshot() *Snapshot {
	return d.current.Load()
}

// Load replaces all in-memory layers with sources, lowest priority first.
// A file that cannot be read or parsed is skipped; Load never fails as a whole.
func (d *Dictionary) Load(sources []Source) LoadReport {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sources = append([]Source(nil), sources...)
	return d.loadLocked()
}

// Reload re-reads the sources from the last Load. Files whose content
// digest is unchanged are not parsed again.
func (d *Dictionary) Reload() LoadReport {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.loadLocked()
}

// Sources returns the sources of the last Load.
func (d *Dictionary) Sources() []Source {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Source(nil), d.sources...)
}

func (d *Dictionary) loadLocked() LoadReport {
	var (
		layers []Layer
		report LoadReport
		seen   = make(map[string]bool)
	)

	if d.opts.Builtin {
		if f, err := BuiltinFile(); err != nil {
			d.logger.Warn("Builtin dictionary unusable", "error", err)
		} else {
			l := NewTableLayer("builtin", Builtin, f)
			layers = append(layers, l)
			w, p := l.Size()
			report.Layers = append(report.Layers, LayerInfo{Name: l.Name(), Kind: Builtin, Words: w, Phrases: p})
		}
	}

	for _, src := range d.sources {
		paths, err := src.expand()
		if err != nil {
			d.skip(&report, src.Path, src.Kind, err)
			continue
		}
		for _, path := range paths {
			seen[path] = true
			name := layerName(src, path)
			f, info, err := d.readCached(path)
			if err != nil {
				d.skip(&report, path, src.Kind, err)
				continue
			}
			l := NewTableLayer(name, src.Kind, f)
			l.path = path
			layers = append(layers, l)
			info.Name = name
			info.Kind = src.Kind
			info.Path = path
			info.Words, info.Phrases = l.Size()
			report.Layers = append(report.Layers, info)
		}
	}

	for path := range d.digests {
		if !seen[path] {
			delete(d.digests, path)
		}
	}

	d.version++
	d.current.Store(NewSnapshot(d.version, layers))
	report.Version = d.version

	d.logger.Debug("Dictionary loaded",
		"version", d.version,
		"layers", len(report.Layers),
		"skipped", len(report.Skipped),
	)
	return report
}

func (d *Dictionary) skip(report *LoadReport, path string, kind LayerKind, err error) {
	wrapped := nlerrors.New(nlerrors.DictionaryParse, "skipping dictionary layer "+path, err)
	report.Skipped = append(report.Skipped, SkippedLayer{Path: path, Kind: kind, Err: wrapped})
	d.logger.Warn("Skipping dictionary layer",
		"path", path,
		"kind", kind.String(),
		"error", err,
	)
}

// readCached parses path unless its digest matches the previous load.
// A missing file is an empty layer.
func (d *Dictionary) readCached(path string) (File, LayerInfo, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		delete(d.digests, path)
		return NewFile(), LayerInfo{Missing: true}, nil
	}
	if err != nil {
		return File{}, LayerInfo{}, err
	}

	sum := blake2b.Sum256(data)
	if prev, ok := d.digests[path]; ok && prev.sum == sum {
		return prev.file, LayerInfo{Reused: true}, nil
	}
	f, err := parseBytes(path, data)
	if err != nil {
		delete(d.digests, path)
		return File{}, LayerInfo{}, err
	}
	d.digests[path] = digestEntry{sum: sum, file: f}
	return f, LayerInfo{}, nil
}

func layerName(src Source, path string) string {
	base := filepath.Base(path)
	if src.Name != "" {
		if hasMeta(src.Path) {
			return src.Name + ":" + base
		}
		return src.Name
	}
	return src.Kind.String() + ":" + strings.TrimSuffix(base, ".zst")
}

// Merge adds entries to the layer loaded from path, or appends a new layer
// of the given kind when none exists. Existing keys are kept unless
// overwrite is set. The previous snapshot is left untouched.
func (d *Dictionary) Merge(kind LayerKind, path string, add File, overwrite bool) *Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()

	prev := d.current.Load()
	layers := make([]Layer, 0, len(prev.layers)+1)
	merged := false
	// prev.layers is highest priority first; rebuild in load order.
	for i := len(prev.layers) - 1; i >= 0; i-- {
		l := prev.layers[i]
		if tl, ok := l.(*TableLayer); ok && !merged && tl.kind == kind && tl.path == path {
			l = tl.withEntries(normalizeKeys(add.Words), normalizeKeys(add.Phrases), overwrite)
			merged = true
		}
		layers = append(layers, l)
	}
	if !merged {
		name := kind.String() + ":" + filepath.Base(path)
		l := NewTableLayer(name, kind, add)
		l.path = path
		layers = append(layers, l)
	}

	d.version++
	snap := NewSnapshot(d.version, layers)
	d.current.Store(snap)
	return snap
}

func normalizeKeys(in map[string]Entry) map[string]Entry {
	out := make(map[string]Entry, len(in))
	for k, e := range in {
		out[strings.Join(strings.Fields(strings.ToLower(k)), " ")] = e
	}
	return out
}
