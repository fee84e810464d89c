package domain

import (
	"fmt"
	"strings"
)

// CategoryID is one of the six fixed topical buckets of a digest.
type CategoryID string

const (
	CategoryAIML        CategoryID = "ai-ml"
	CategorySecurity    CategoryID = "security"
	CategoryEngineering CategoryID = "engineering"
	CategoryTools       CategoryID = "tools"
	CategoryOpinion     CategoryID = "opinion"
	CategoryOther       CategoryID = "other"
)

// CategoryMeta is the display record attached to a category.
type CategoryMeta struct {
	Emoji string `json:"emoji"`
	Label string `json:"label"`
}

var categoryOrder = [...]CategoryID{
	CategoryAIML,
	CategorySecurity,
	CategoryEngineering,
	CategoryTools,
	CategoryOpinion,
	CategoryOther,
}

var categoryMeta = map[CategoryID]CategoryMeta{
	CategoryAIML:        {Emoji: "🤖", Label: "AI / ML"},
	CategorySecurity:    {Emoji: "🔒", Label: "安全"},
	CategoryEngineering: {Emoji: "⚙️", Label: "工程"},
	CategoryTools:       {Emoji: "🛠", Label: "工具 / 开源"},
	CategoryOpinion:     {Emoji: "💡", Label: "观点 / 杂谈"},
	CategoryOther:       {Emoji: "📝", Label: "其他"},
}

// Categories returns every category in canonical display order.
func Categories() []CategoryID {
	out := make([]CategoryID, len(categoryOrder))
	copy(out, categoryOrder[:])
	return out
}

// Valid reports whether c belongs to the closed category set.
func (c CategoryID) Valid() bool {
	_, ok := categoryMeta[c]
	return ok
}

func (c CategoryID) String() string {
	return string(c)
}

// ParseCategory resolves raw text to a category, ignoring case and surrounding space.
func ParseCategory(raw string) (CategoryID, error) {
	id := CategoryID(strings.ToLower(strings.TrimSpace(raw)))
	if !id.Valid() {
		return "", fmt.Errorf("unknown category %q", raw)
	}
	return id, nil
}

// LookupCategoryMeta returns the display record for id; ok is false outside the closed set.
func LookupCategoryMeta(id CategoryID) (CategoryMeta, bool) {
	meta, ok := categoryMeta[id]
	return meta, ok
}

// MetaFor returns the display record for id, using the "other" entry for unknown values.
func MetaFor(id CategoryID) CategoryMeta {
	if meta, ok := categoryMeta[id]; ok {
		return meta
	}
	return categoryMeta[CategoryOther]
}

// CategoryMetaTable returns a copy of the full category table.
func CategoryMetaTable() map[CategoryID]CategoryMeta {
	out := make(map[CategoryID]CategoryMeta, len(categoryMeta))
	for id, meta := range categoryMeta {
		out[id] = meta
	}
	return out
}

// CategoryPolicy decides what happens to category values outside the closed set.
type CategoryPolicy string

const (
	// PolicyFallback rewrites unknown categories to CategoryOther.
	PolicyFallback CategoryPolicy = "fallback"
	// PolicyReject leaves unknown categories in place so Check reports them.
	PolicyReject CategoryPolicy = "reject"
)

// ParseCategoryPolicy maps config text to a policy; empty text selects fallback.
func ParseCategoryPolicy(raw string) (CategoryPolicy, error) {
	switch CategoryPolicy(strings.ToLower(strings.TrimSpace(raw))) {
	case "", PolicyFallback:
		return PolicyFallback, nil
	case PolicyReject:
		return PolicyReject, nil
	default:
		return "", fmt.Errorf("unknown category policy %q (valid: fallback, reject)", raw)
	}
}

// Apply enforces the policy on every article of d in place and returns the
// indexes of articles whose category was outside the closed set.
func (p CategoryPolicy) Apply(d *DigestJSON) []int {
	var unknown []int
	for i := range d.Articles {
		if d.Articles[i].Category.Valid() {
			continue
		}
		unknown = append(unknown, i)
		if p != PolicyReject {
			d.Articles[i].Category = CategoryOther
		}
	}
	return unknown
}
