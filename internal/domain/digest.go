package domain

// ScoreBreakdown holds the three sub-scores behind an article's rank score.
type ScoreBreakdown struct {
	Relevance  float64 `json:"relevance"`
	Quality    float64 `json:"quality"`
	Timeliness float64 `json:"timeliness"`
}

// DigestArticle is a single ranked entry in a digest. It is built once
// upstream and treated as immutable afterwards.
type DigestArticle struct {
	Title          string         `json:"title"`
	Link           string         `json:"link"`
	PubDate        string         `json:"pubDate"`
	Description    string         `json:"description"`
	SourceName     string         `json:"sourceName"`
	SourceURL      string         `json:"sourceUrl"`
	Score          float64        `json:"score"`
	ScoreBreakdown ScoreBreakdown `json:"scoreBreakdown"`
	Category       CategoryID     `json:"category"`
	Keywords       []string       `json:"keywords"`
	TitleZh        string         `json:"titleZh"`
	Summary        string         `json:"summary"`
	Reason         string         `json:"reason"`
}

// DigestStats carries the pipeline counters of one digest run.
type DigestStats struct {
	TotalFeeds       int    `json:"totalFeeds"`
	SuccessFeeds     int    `json:"successFeeds"`
	TotalArticles    int    `json:"totalArticles"`
	FilteredArticles int    `json:"filteredArticles"`
	Hours            int    `json:"hours"`
	Lang             string `json:"lang"`
	SelectedCount    int    `json:"selectedCount"`
}

// DigestJSON is one dated digest document. Articles are kept in presentation order.
type DigestJSON struct {
	Date       string          `json:"date"`
	Highlights string          `json:"highlights"`
	Stats      DigestStats     `json:"stats"`
	Articles   []DigestArticle `json:"articles"`
}
