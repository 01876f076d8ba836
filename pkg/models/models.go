package models

import "time"

// EmojiOccurrence records one emoji found in a post's text, its polarity
// class and how many times it appeared.
type EmojiOccurrence struct {
	Emoji string `json:"emoji"`
	Kind  string `json:"type"` // "positivo" or "negativo"
	Count int    `json:"count"`
}

// PostRecord is one harvested post with its sentiment annotation. Records are
// immutable once built.
type PostRecord struct {
	ID        string            `json:"id"`
	Text      string            `json:"text"`
	Author    string            `json:"user"`
	Handle    string            `json:"username"`
	CreatedAt time.Time         `json:"date"`
	Sentiment string            `json:"sentiment"`
	Score     float64           `json:"sentiment_score"`
	Emojis    []EmojiOccurrence `json:"emojis_found"`
	Likes     int               `json:"likes"`
	Retweets  int               `json:"retweets"`
	Replies   int               `json:"replies"`
	URL       string            `json:"url"`
}

// SentimentSummary tallies posts per label. The three counts always sum to
// the length of the keyword's post list.
type SentimentSummary struct {
	Positive int `json:"positivo"`
	Negative int `json:"negativo"`
	Neutral  int `json:"neutro"`
}

// EmojiStats aggregates emoji occurrences across a keyword's posts.
type EmojiStats struct {
	TotalPositive int            `json:"total_positive_emojis"`
	TotalNegative int            `json:"total_negative_emojis"`
	TopEmojis     map[string]int `json:"top_emojis"`
}

// KeywordResult is the accumulated outcome for one configured keyword. A
// result with a terminal Error may still hold the posts collected before the
// failure.
type KeywordResult struct {
	Keyword    string           `json:"keyword"`
	Posts      []PostRecord     `json:"posts"`
	Summary    SentimentSummary `json:"sentiment_summary"`
	EmojiStats EmojiStats       `json:"emoji_stats"`
	TotalFound int              `json:"total_found"`
	Error      string           `json:"error,omitempty"`
}

// Period is the effective date range of a run.
type Period struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Report is the per-run output consumed by the report assembler.
type Report struct {
	GeneratedAt time.Time       `json:"generated_at"`
	Period      Period          `json:"period"`
	Keywords    []KeywordResult `json:"keywords"`
}
