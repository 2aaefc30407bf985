package alias

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"namelens/internal/dictionary"
)

//go:embed categories.json
var defaultCategoriesJSON []byte

// Category is the grammatical role a token plays in natural assembly.
type Category int

const (
	Noun Category = iota
	UINoun
	ActionNoun
	Adjective
	Variant
)

func (c Category) String() string {
	switch c {
	case UINoun:
		return "ui-noun"
	case ActionNoun:
		return "action-noun"
	case Adjective:
		return "adjective"
	case Variant:
		return "variant"
	}
	return "noun"
}

// CategoryLists is the on-disk shape of a category table.
type CategoryLists struct {
	UI        []string `json:"ui" mapstructure:"ui"`
	Action    []string `json:"action" mapstructure:"action"`
	Adjective []string `json:"adjective" mapstructure:"adjective"`
	Variant   []string `json:"variant" mapstructure:"variant"`
}

// Categories classifies normalized tokens. Lookups fall back to the
// morphological base form, so "panels" is a UI noun when "panel" is.
type Categories struct {
	table map[string]Category
}

// NewCategories builds a table. Later lists win on conflicts, so a word
// listed both as action noun and variant is a variant.
func NewCategories(lists CategoryLists) *Categories {
	c := &Categories{table: make(map[string]Category)}
	c.add(lists)
	return c
}

func (c *Categories) add(lists CategoryLists) {
	put := func(words []string, cat Category) {
		for _, w := range words {
			w = strings.ToLower(strings.TrimSpace(w))
			if w != "" {
				c.table[w] = cat
			}
		}
	}
	put(lists.UI, UINoun)
	put(lists.Action, ActionNoun)
	put(lists.Adjective, Adjective)
	put(lists.Variant, Variant)
}

// Extend returns a copy of c with extra lists layered on top.
func (c *Categories) Extend(lists CategoryLists) *Categories {
	out := &Categories{table: make(map[string]Category, len(c.table))}
	for k, v := range c.table {
		out.table[k] = v
	}
	out.add(lists)
	return out
}

var (
	defaultCategoriesOnce sync.Once
	defaultCategories     *Categories
)

// DefaultCategories returns the embedded table. The result is shared and
// must not be modified; use Extend.
func DefaultCategories() *Categories {
	defaultCategoriesOnce.Do(func() {
		var lists CategoryLists
		if err := json.Unmarshal(defaultCategoriesJSON, &lists); err != nil {
			panic(fmt.Sprintf("alias: embedded categories: %v", err))
		}
		defaultCategories = NewCategories(lists)
	})
	return defaultCategories
}

// LoadCategories reads a JSON table from path and layers it over the defaults.
func LoadCategories(path string) (*Categories, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var lists CategoryLists
	if err := json.Unmarshal(data, &lists); err != nil {
		return nil, fmt.Errorf("parse categories %s: %w", path, err)
	}
	return DefaultCategories().Extend(lists), nil
}

// Of classifies one normalized token or space-joined phrase key. A phrase
// takes the category of its last word.
func (c *Categories) Of(key string) Category {
	if c == nil {
		return Noun
	}
	if cat, ok := c.table[key]; ok {
		return cat
	}
	if i := strings.LastIndexByte(key, ' '); i >= 0 {
		return c.Of(key[i+1:])
	}
	if cat, ok := c.table[dictionary.MorphKey(key)]; ok {
		return cat
	}
	return Noun
}
