package tryon

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Category groups wardrobe items.
type Category string

const (
	CategoryTop       Category = "top"
	CategoryBottom    Category = "bottom"
	CategoryOuterwear Category = "outerwear"
	CategoryDress     Category = "dress"
	CategoryShoes     Category = "shoes"
	CategoryAccessory Category = "accessory"
)

// Categories lists the known categories in display order.
var Categories = []Category{
	CategoryTop,
	CategoryBottom,
	CategoryOuterwear,
	CategoryDress,
	CategoryShoes,
	CategoryAccessory,
}

// ErrInvalidWardrobe is returned when a catalog fails validation.
var ErrInvalidWardrobe = errors.New("invalid wardrobe catalog")

// WardrobeItem is one garment of the catalog.
type WardrobeItem struct {
	ID       string   `yaml:"id" json:"id"`
	Name     string   `yaml:"name" json:"name"`
	URL      string   `yaml:"url" json:"url"`
	Category Category `yaml:"category" json:"category"`
}

// Wardrobe is an immutable catalog of items.
type Wardrobe []WardrobeItem

type wardrobeFile struct {
	Items []WardrobeItem `yaml:"items"`
}

//go:embed wardrobe.yaml
var defaultWardrobeYAML []byte

// DefaultWardrobe returns the built-in catalog.
func DefaultWardrobe() Wardrobe {
	w, err := ParseWardrobe(defaultWardrobeYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded wardrobe: %v", err))
	}
	return w
}

// LoadWardrobe reads a catalog from a YAML file. An empty path returns the
// built-in catalog.
func LoadWardrobe(path string) (Wardrobe, error) {
	if path == "" {
		return DefaultWardrobe(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read wardrobe file: %w", err)
	}
	return ParseWardrobe(data)
}

// ParseWardrobe decodes and validates a YAML catalog.
func ParseWardrobe(data []byte) (Wardrobe, error) {
	var f wardrobeFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWardrobe, err)
	}
	w := Wardrobe(f.Items)
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return w, nil
}

// Validate checks that IDs are unique and non-empty and categories are known.
func (w Wardrobe) Validate() error {
	seen := make(map[string]bool, len(w))
	for i, item := range w {
		if item.ID == "" {
			return fmt.Errorf("%w: item %d has no id", ErrInvalidWardrobe, i)
		}
		if seen[item.ID] {
			return fmt.Errorf("%w: duplicate id %q", ErrInvalidWardrobe, item.ID)
		}
		seen[item.ID] = true
		if item.Name == "" {
			return fmt.Errorf("%w: item %q has no name", ErrInvalidWardrobe, item.ID)
		}
		if !knownCategory(item.Category) {
			return fmt.Errorf("%w: item %q has unknown category %q", ErrInvalidWardrobe, item.ID, item.Category)
		}
	}
	return nil
}

// Find returns the item with the given ID.
func (w Wardrobe) Find(id string) (WardrobeItem, bool) {
	for _, item := range w {
		if item.ID == id {
			return item, true
		}
	}
	return WardrobeItem{}, false
}

// ByCategory returns the items of one category, in catalog order.
func (w Wardrobe) ByCategory(c Category) []WardrobeItem {
	var items []WardrobeItem
	for _, item := range w {
		if item.Category == c {
			items = append(items, item)
		}
	}
	return items
}

// describe lists item names grouped by category, one category per line.
func (w Wardrobe) describe() string {
	var b strings.Builder
	for _, c := range Categories {
		items := w.ByCategory(c)
		if len(items) == 0 {
			continue
		}
		names := make([]string, len(items))
		for i, item := range items {
			names[i] = item.Name
		}
		fmt.Fprintf(&b, "- %s: %s\n", c, strings.Join(names, ", "))
	}
	return b.String()
}

func knownCategory(c Category) bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}
