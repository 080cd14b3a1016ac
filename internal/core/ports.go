package core

import (
	"context"
	"time"
)

// Classifier assigns a category to a message. Implementations must be pure and
// safe for concurrent use.
type Classifier interface {
	Classify(msg RawMessage) ClassificationResult
}

// BodyProcessor prepares a message body before classification
type BodyProcessor interface {
	ProcessText(text string) string
}

// MessageSource supplies raw messages for a scan
type MessageSource interface {
	// Fetch calls fn sequentially for up to max messages. Returning an error
	// from fn stops the fetch.
	Fetch(ctx context.Context, max int, fn func(RawMessage) error) error
}

// ResultRepository persists classified messages
type ResultRepository interface {
	// Upsert inserts a record or replaces the classification of an existing one
	Upsert(ctx context.Context, record *EmailRecord) error

	// Get retrieves a record by message ID
	Get(ctx context.Context, messageID string) (*EmailRecord, error)

	// List returns a category-filtered, searchable page of records
	List(ctx context.Context, q Query) (*Page, error)

	// Stats counts records per category and those received since the given time
	Stats(ctx context.Context, since time.Time) (*Stats, error)

	// MarkRead flags a record as read
	MarkRead(ctx context.Context, messageID string) error
}
