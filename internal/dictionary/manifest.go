package dictionary

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"

	"github.com/BurntSushi/toml"
	"github.com/bmatcuk/doublestar/v4"
)

// ManifestLayer lists the files that make up one layer kind.
type ManifestLayer struct {
	Kind  string   `toml:"kind" json:"kind"`
	Name  string   `toml:"name,omitempty" json:"name,omitempty"`
	Paths []string `toml:"paths" json:"paths"`
}

// Manifest is the layers.toml file:
//
//	[[layer]]
//	kind = "project-fixed"
//	paths = ["dictionaries/**/*.json"]
type Manifest struct {
	Layers []ManifestLayer `toml:"layer"`
}

// LoadManifest reads a manifest. A missing file yields an empty manifest.
func LoadManifest(path string) (*Manifest, error) {
	var m Manifest
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return &m, nil
	}
	if _, err := toml.DecodeFile(path, &m); err != nil {
		return nil, fmt.Errorf("failed to parse layer manifest: %w", err)
	}
	for _, l := range m.Layers {
		if _, err := ParseLayerKind(l.Kind); err != nil {
			return nil, fmt.Errorf("layer manifest: %w", err)
		}
	}
	return &m, nil
}

// Add appends paths to the layer with the same kind and name, creating it
// when absent. Paths already listed are skipped. Returns how many were added.
func (m *Manifest) Add(kind, name string, paths ...string) (int, error) {
	k, err := ParseLayerKind(kind)
	if err != nil {
		return 0, err
	}
	kind = k.String()

	var layer *ManifestLayer
	for i := range m.Layers {
		if m.Layers[i].Kind == kind && m.Layers[i].Name == name {
			layer = &m.Layers[i]
			break
		}
	}
	if layer == nil {
		m.Layers = append(m.Layers, ManifestLayer{Kind: kind, Name: name})
		layer = &m.Layers[len(m.Layers)-1]
	}

	added := 0
	for _, p := range paths {
		if p == "" || slices.Contains(layer.Paths, p) {
			continue
		}
		layer.Paths = append(layer.Paths, p)
		added++
	}
	return added, nil
}

// Save writes the manifest to path.
func (m *Manifest) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create manifest directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create manifest file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(m); err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	return nil
}

// Sources converts the manifest into load sources. Relative paths are
// resolved against baseDir.
func (m *Manifest) Sources(baseDir string) []Source {
	var out []Source
	for _, l := range m.Layers {
		kind, err := ParseLayerKind(l.Kind)
		if err != nil {
			continue
		}
		for _, p := range l.Paths {
			if !filepath.IsAbs(p) {
				p = filepath.Join(baseDir, p)
			}
			out = append(out, Source{Kind: kind, Name: l.Name, Path: p})
		}
	}
	return out
}

// Source is one configured layer path. Path may be a doublestar glob, in
// which case every matching file becomes its own layer.
type Source struct {
	Kind LayerKind
	Name string
	Path string
}

// expand resolves a source to concrete file paths. A literal path is
// returned even when it does not exist so it can load as an empty layer.
func (s Source) expand() ([]string, error) {
	if !hasMeta(s.Path) {
		return []string{s.Path}, nil
	}
	matches, err := doublestar.FilepathGlob(s.Path)
	if err != nil {
		return nil, fmt.Errorf("bad glob %q: %w", s.Path, err)
	}
	kept := matches[:0]
	for _, m := range matches {
		if _, ok := FormatForPath(m); ok {
			kept = append(kept, m)
		}
	}
	sort.Strings(kept)
	return kept, nil
}

func hasMeta(p string) bool {
	for i := 0; i < len(p); i++ {
		switch p[i] {
		case '*', '?', '[', '{':
			return true
		}
	}
	return false
}
