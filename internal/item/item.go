// Package item defines the baggage items and threat categories a training
// session works through.
package item

import (
	"fmt"
	"slices"

	"xray-cbt/internal/region"
)

// View identifies one of the two X-ray projections.
type View int

const (
	Top View = iota
	Side
)

// Views lists both projections in display order.
var Views = [...]View{Top, Side}

func (v View) String() string {
	switch v {
	case Top:
		return "top"
	case Side:
		return "side"
	}
	return fmt.Sprintf("view(%d)", int(v))
}

// Reserved category identifiers.
const (
	// NoneCategory means no category was chosen (belt exit without answer).
	NoneCategory = 0
	// DefaultCleanCategory is the id conventionally used for "bag is clear".
	DefaultCleanCategory = 1
)

// Category is a threat classification offered to the trainee.
type Category struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Baggage is one item presented on the belt. Immutable once fetched.
type Baggage struct {
	ID         int        `json:"id"`
	Code       string     `json:"code"`
	TopImage   string     `json:"topImage"`
	SideImage  string     `json:"sideImage"`
	CategoryID int        `json:"categoryId"`
	Regions    region.Set `json:"regions"`
	// RegionErr records why the authored region could not be decoded.
	RegionErr error `json:"-"`
}

// Image returns the image reference for a view.
func (b Baggage) Image(v View) string {
	if v == Side {
		return b.SideImage
	}
	return b.TopImage
}

// Region returns the target region for a view, or nil when the item has none.
func (b Baggage) Region(v View) *region.Region {
	if v == Side {
		return b.Regions.Side
	}
	return b.Regions.Top
}

// Catalog resolves category ids to names.
type Catalog struct {
	categories []Category
	byID       map[int]Category
}

// NewCatalog indexes the given categories, preserving their order.
func NewCatalog(categories []Category) *Catalog {
	c := &Catalog{
		categories: slices.Clone(categories),
		byID:       make(map[int]Category, len(categories)),
	}
	for _, cat := range categories {
		c.byID[cat.ID] = cat
	}
	return c
}

// Name returns the display name for id. Unknown ids render as their number;
// NoneCategory renders as "N/A".
func (c *Catalog) Name(id int) string {
	if id == NoneCategory {
		return "N/A"
	}
	if cat, ok := c.byID[id]; ok {
		return cat.Name
	}
	return fmt.Sprintf("#%d", id)
}

// Visible returns the categories offered in an area, dropping the ids listed
// in hidden for that area.
func (c *Catalog) Visible(area int, hidden map[int][]int) []Category {
	drop := hidden[area]
	out := make([]Category, 0, len(c.categories))
	for _, cat := range c.categories {
		if !slices.Contains(drop, cat.ID) {
			out = append(out, cat)
		}
	}
	return out
}
