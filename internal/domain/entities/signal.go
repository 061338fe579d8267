package entities

import "time"

// Sentiment of an external signal as scored by the ingestion pipeline
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

// Signal is an external mention (social media, medical forum, blog) linked to an HCP.
// Relevance is 1-10.
type Signal struct {
	ID                string    `json:"id" db:"id"`
	Source            string    `json:"source" db:"source"`
	Content           string    `json:"content" db:"content"`
	Author            string    `json:"author" db:"author"`
	PublishedAt       time.Time `json:"published_at" db:"published_at"`
	Topics            []string  `json:"topics" db:"topics"`
	Sentiment         Sentiment `json:"sentiment" db:"sentiment"`
	Relevance         int       `json:"relevance" db:"relevance"`
	MentionedHCPIDs   []string  `json:"mentioned_hcp_ids" db:"mentioned_hcp_ids"`
	MentionedProducts []string  `json:"mentioned_products" db:"mentioned_products"`
}
