package usecase

import (
	"context"

	"DigestFeed/internal/domain"
)

// OverviewItem is one article as listed in an overview.
type OverviewItem struct {
	Rank    int
	Title   string
	TitleZh string
	Link    string
	Score   float64
	Snippet string
}

// CategoryBucket groups the articles of one category.
type CategoryBucket struct {
	Category domain.CategoryID
	Meta     domain.CategoryMeta
	Items    []OverviewItem
}

// Overview summarises one digest grouped by category.
type Overview struct {
	Date       string
	Highlights string
	Stats      domain.DigestStats
	Buckets    []CategoryBucket
}

// Overview loads the digest for date and groups it by category.
func (a *Archive) Overview(ctx context.Context, date string) (Overview, error) {
	d, err := a.Load(ctx, date)
	if err != nil {
		return Overview{}, err
	}
	return a.buildOverview(d), nil
}

// buildOverview keeps canonical category order, skips empty buckets and keeps
// document order within a bucket. Rank is the 1-based document position.
func (a *Archive) buildOverview(d domain.DigestJSON) Overview {
	byCategory := make(map[domain.CategoryID][]OverviewItem)
	for i, art := range d.Articles {
		cat := art.Category
		if !cat.Valid() {
			cat = domain.CategoryOther
		}
		byCategory[cat] = append(byCategory[cat], OverviewItem{
			Rank:    i + 1,
			Title:   art.Title,
			TitleZh: art.TitleZh,
			Link:    art.Link,
			Score:   art.Score,
			Snippet: a.snippet(art),
		})
	}

	ov := Overview{Date: d.Date, Highlights: d.Highlights, Stats: d.Stats}
	for _, cat := range domain.Categories() {
		items := byCategory[cat]
		if len(items) == 0 {
			continue
		}
		ov.Buckets = append(ov.Buckets, CategoryBucket{
			Category: cat,
			Meta:     domain.MetaFor(cat),
			Items:    items,
		})
	}
	return ov
}

func (a *Archive) snippet(art domain.DigestArticle) string {
	source := art.Summary
	if source == "" {
		source = art.Description
	}
	if a.snippets == nil {
		return source
	}
	return a.snippets.Snippet(source, a.snippetLength)
}
