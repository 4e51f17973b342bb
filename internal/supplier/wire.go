package supplier

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strconv"

	"xray-cbt/internal/item"
	"xray-cbt/internal/region"
)

// wireItem is an item as served by the backend. Both the backend's field
// names and the descriptive aliases are accepted.
type wireItem struct {
	ID                flexInt         `json:"id"`
	Code              string          `json:"code"`
	Top               string          `json:"top"`
	Side              string          `json:"side"`
	TopImageURL       string          `json:"topImageUrl"`
	SideImageURL      string          `json:"sideImageUrl"`
	ItemCategoryID    *flexInt        `json:"itemCategoryID"`
	CorrectCategoryID *flexInt        `json:"correctCategoryId"`
	ItemPos           json.RawMessage `json:"itemPos"`
	TargetRegion      json.RawMessage `json:"targetRegion"`
}

func (w wireItem) baggage() item.Baggage {
	b := item.Baggage{
		ID:        int(w.ID),
		Code:      w.Code,
		TopImage:  firstNonEmpty(w.Top, w.TopImageURL),
		SideImage: firstNonEmpty(w.Side, w.SideImageURL),
	}
	switch {
	case w.ItemCategoryID != nil:
		b.CategoryID = int(*w.ItemCategoryID)
	case w.CorrectCategoryID != nil:
		b.CategoryID = int(*w.CorrectCategoryID)
	}
	if b.Code == "" {
		b.Code = strconv.Itoa(b.ID)
	}

	raw := w.ItemPos
	if len(bytes.TrimSpace(raw)) == 0 {
		raw = w.TargetRegion
	}
	regions, err := region.Parse(raw)
	if err != nil {
		// Clicks on this item can never land inside a region.
		slog.Warn("Ignoring unreadable target region", "item", b.Code, "err", err)
		b.RegionErr = err
	}
	b.Regions = regions
	return b
}

// wireCategory is a category as served by the backend.
type wireCategory struct {
	ID   flexInt `json:"id"`
	Name string  `json:"name"`
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// flexInt accepts both JSON numbers and numeric strings.
type flexInt int

func (n *flexInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		v, err := strconv.Atoi(s)
		if err != nil {
			return err
		}
		*n = flexInt(v)
		return nil
	}
	var v int
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*n = flexInt(v)
	return nil
}
