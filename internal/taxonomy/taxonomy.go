// Package taxonomy holds the read-only category to keyword configuration.
package taxonomy

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultDoc []byte

type category struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

type document struct {
	Categories []category `yaml:"categories"`
}

// Taxonomy is an ordered list of categories, each owning an ordered,
// non-empty keyword list. It is immutable after Parse.
type Taxonomy struct {
	order    []string
	keywords map[string][]string
}

// Default returns the built-in insurance taxonomy.
func Default() *Taxonomy {
	t, err := Parse(defaultDoc)
	if err != nil {
		panic(fmt.Sprintf("taxonomy: embedded default is invalid: %v", err))
	}
	return t
}

// Load reads path, or returns Default when path is empty.
func Load(path string) (*Taxonomy, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read taxonomy %q: %w", path, err)
	}
	t, err := Parse(b)
	if err != nil {
		return nil, fmt.Errorf("taxonomy %q: %w", path, err)
	}
	return t, nil
}

func Parse(b []byte) (*Taxonomy, error) {
	var doc document
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	return build(doc.Categories)
}

// FromMap builds a taxonomy with categories in the given order.
func FromMap(order []string, keywords map[string][]string) (*Taxonomy, error) {
	cats := make([]category, 0, len(order))
	for _, name := range order {
		cats = append(cats, category{Name: name, Keywords: keywords[name]})
	}
	return build(cats)
}

func build(cats []category) (*Taxonomy, error) {
	if len(cats) == 0 {
		return nil, errors.New("no categories defined")
	}
	t := &Taxonomy{keywords: make(map[string][]string, len(cats))}
	for i, c := range cats {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return nil, fmt.Errorf("category #%d has no name", i)
		}
		if _, dup := t.keywords[name]; dup {
			return nil, fmt.Errorf("duplicate category %q", name)
		}
		kws := make([]string, 0, len(c.Keywords))
		for _, k := range c.Keywords {
			if k = strings.TrimSpace(k); k != "" {
				kws = append(kws, k)
			}
		}
		if len(kws) == 0 {
			return nil, fmt.Errorf("category %q has no keywords", name)
		}
		t.order = append(t.order, name)
		t.keywords[name] = kws
	}
	return t, nil
}

func (t *Taxonomy) Categories() []string {
	return slices.Clone(t.order)
}

func (t *Taxonomy) Keywords(category string) ([]string, bool) {
	kws, ok := t.keywords[category]
	if !ok {
		return nil, false
	}
	return slices.Clone(kws), true
}

// All returns every keyword in category order, then keyword order.
func (t *Taxonomy) All() []string {
	var out []string
	for _, c := range t.order {
		out = append(out, t.keywords[c]...)
	}
	return out
}
