package memory

import (
	"context"
	"strings"
	"time"
)

// Memory is a saved note or bookmark.
type Memory struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title,omitempty"`
	Content   string    `json:"content"`
	URL       string    `json:"url,omitempty"`
	Tags      []string  `json:"tags,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// SaveInput is the payload of SaveMemory.
type SaveInput struct {
	UserID  string
	Title   string
	Content string
	URL     string
	Tags    []string
}

// SummaryInput selects the memories to summarize.
type SummaryInput struct {
	UserID    string
	MemoryIDs []string
}

// Summary is the result of GenerateSummary.
type Summary struct {
	UserID    string    `json:"user_id"`
	MemoryIDs []string  `json:"memory_ids"`
	Text      string    `json:"text"`
	Pages     int64     `json:"pages"`
	CreatedAt time.Time `json:"created_at"`
}

// Repository stores memories. GetMany returns only memories owned by userID;
// ids that do not match are left out of the result.
type Repository interface {
	Save(ctx context.Context, m Memory) error
	GetMany(ctx context.Context, userID string, ids []string) ([]Memory, error)
}

// Summarizer turns text into a summary.
type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}

// SummarizerFunc adapts a function to Summarizer.
type SummarizerFunc func(ctx context.Context, text string) (string, error)

func (f SummarizerFunc) Summarize(ctx context.Context, text string) (string, error) {
	return f(ctx, text)
}

// summaryText joins memory contents in the requested order.
func summaryText(memories []Memory) string {
	parts := make([]string, 0, len(memories))
	for _, m := range memories {
		if m.Title != "" {
			parts = append(parts, m.Title+"\n"+m.Content)
			continue
		}
		parts = append(parts, m.Content)
	}
	return strings.Join(parts, "\n\n")
}
