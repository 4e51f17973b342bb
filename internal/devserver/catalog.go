// Package devserver is a local stand-in for the item backend. It serves a
// catalog of categories and baggage images described in YAML, and records
// submitted sessions in memory.
package devserver

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	xrimage "xray-cbt/internal/image"
	"xray-cbt/internal/item"
	"xray-cbt/internal/region"
)

// Catalog is the content the server hands out.
type Catalog struct {
	Categories []item.Category `yaml:"categories"`
	Items      []Entry         `yaml:"items"`
	// ImagesDir is served under /images/. Relative paths are resolved
	// against the catalog file.
	ImagesDir string `yaml:"imagesDir"`
	BatchSize int    `yaml:"batchSize"`
}

// Entry is one catalog item.
type Entry struct {
	ID       int    `yaml:"id"`
	Code     string `yaml:"code"`
	Category int    `yaml:"category"`
	// Areas restricts the item to some areas; empty means every area.
	Areas []int  `yaml:"areas"`
	Top   string `yaml:"top"`
	Side  string `yaml:"side"`
	// Images lists unlabelled files whose view is guessed from the name.
	Images []string `yaml:"images"`
	// Region is any shape region.Parse understands.
	Region any `yaml:"region"`
}

// LoadCatalog reads a YAML catalog file.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	var cat Catalog
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("failed to parse catalog YAML: %w", err)
	}
	if cat.ImagesDir != "" && !filepath.IsAbs(cat.ImagesDir) {
		cat.ImagesDir = filepath.Join(filepath.Dir(path), cat.ImagesDir)
	}
	if err := cat.normalize(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &cat, nil
}

// ScanDir builds a catalog of clean items from an image directory. Files
// are paired into items by name once the view keyword is removed, so
// "bag7_top.png" and "bag7_side.png" become one item.
func ScanDir(dir string) (*Catalog, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read image directory: %w", err)
	}

	groups := make(map[string][]string)
	for _, e := range entries {
		if e.IsDir() || !xrimage.IsSupportedFormat(e.Name()) {
			continue
		}
		key := pairKey(e.Name())
		groups[key] = append(groups[key], e.Name())
	}
	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	cat := &Catalog{
		Categories: []item.Category{{ID: item.DefaultCleanCategory, Name: "Clean"}},
		ImagesDir:  dir,
	}
	for i, k := range keys {
		files := groups[k]
		sort.Strings(files)
		cat.Items = append(cat.Items, Entry{
			ID:       i + 1,
			Code:     k,
			Category: item.DefaultCleanCategory,
			Images:   files,
		})
	}
	if err := cat.normalize(); err != nil {
		return nil, err
	}
	return cat, nil
}

var viewKeywords = []string{"overhead", "lateral", "profile", "plan", "top", "side"}

func pairKey(name string) string {
	stem := strings.ToLower(strings.TrimSuffix(name, filepath.Ext(name)))
	for _, kw := range viewKeywords {
		stem = strings.ReplaceAll(stem, kw, "")
	}
	stem = strings.Trim(stem, "_- .")
	if stem == "" {
		return strings.ToLower(name)
	}
	return stem
}

// normalize assigns guessed views, fills defaults and checks regions.
func (c *Catalog) normalize() error {
	if c.BatchSize <= 0 {
		c.BatchSize = 20
	}
	for i := range c.Items {
		e := &c.Items[i]
		for _, f := range e.Images {
			view, ok := xrimage.GuessView(f)
			switch {
			case ok && view == item.Side && e.Side == "":
				e.Side = f
			case ok && view == item.Top && e.Top == "":
				e.Top = f
			case e.Top == "":
				e.Top = f
			case e.Side == "":
				e.Side = f
			}
		}
		e.Images = nil
		if e.Code == "" {
			e.Code = fmt.Sprintf("ITEM-%d", e.ID)
		}
		if e.Top == "" || e.Side == "" {
			return fmt.Errorf("item %s needs both a top and a side image", e.Code)
		}
		if _, err := e.regionJSON(); err != nil {
			return fmt.Errorf("item %s: %w", e.Code, err)
		}
	}
	return nil
}

// regionJSON renders the region in the backend's itemPos encoding, a JSON
// document carried as a string. An absent region yields "".
func (e *Entry) regionJSON() (string, error) {
	if e.Region == nil {
		return "", nil
	}
	data, err := json.Marshal(e.Region)
	if err != nil {
		return "", fmt.Errorf("%w: %v", region.ErrMalformed, err)
	}
	if _, err := region.Parse(data); err != nil {
		return "", err
	}
	return string(data), nil
}

// inArea reports whether the entry is offered in area.
func (e *Entry) inArea(area int) bool {
	if len(e.Areas) == 0 {
		return true
	}
	for _, a := range e.Areas {
		if a == area {
			return true
		}
	}
	return false
}
