package core

import (
	"fmt"
	"time"
)

// Category is the job-search category assigned to a message.
// The value set is a versioned contract: the API and stored records key on it.
type Category string

const (
	CategoryRejection Category = "rejection"
	CategoryInterview Category = "interview"
	CategoryOffer     Category = "offer"
	CategoryApplied   Category = "applied"
	CategoryFollowUp  Category = "follow_up"
	CategoryDirect    Category = "direct"
	CategoryOther     Category = "other"
)

var categories = []Category{
	CategoryRejection,
	CategoryInterview,
	CategoryOffer,
	CategoryApplied,
	CategoryFollowUp,
	CategoryDirect,
	CategoryOther,
}

// Categories returns the fixed set of categories in display order
func Categories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}

// ParseCategory validates a category name
func ParseCategory(s string) (Category, error) {
	for _, c := range categories {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown category: %q", s)
}

// RuleKey identifies the detector outcome that produced a match.
// The precedence resolver ranks matches by rule, not by category, because
// one category can be produced by rules of different strength.
type RuleKey string

const (
	RuleOffer           RuleKey = "offer"
	RuleInterviewInvite RuleKey = "interview_tier1"
	RuleAppliedSubject  RuleKey = "applied_subject"
	RuleRejection       RuleKey = "rejection"
	RuleInterviewSignal RuleKey = "interview_tier2"
	RuleApplied         RuleKey = "applied"
	RuleFollowUp        RuleKey = "follow_up"
	RuleDirect          RuleKey = "direct"
)

// RawMessage is a normalized message supplied by a mail source
type RawMessage struct {
	ID         string
	Sender     string // "Display Name <addr>"
	Subject    string
	Body       string // plain text, best effort
	Snippet    string // fallback when Body is empty
	ReceivedAt time.Time
}

// SignalSet holds everything derived from a RawMessage during one classification.
// Optional strings are empty when absent.
type SignalSet struct {
	SenderAddress string
	SenderName    string
	SenderDomain  string

	SenderIsAutomated         bool
	SenderIsJobBoard          bool
	SenderIsInterviewPlatform bool
	SenderIsCompany           bool
	SubjectIsBulk             bool

	SubjectLower string
	BodyLower    string

	HasJobContextWords bool
	JobContextWord     string

	ExtractedCompany  string
	ExtractedJobTitle string
}

// CategoryMatch is the output of a single detector
type CategoryMatch struct {
	Category      Category
	Rule          RuleKey
	MatchedPhrase string
	Tier          int // 1 = strongest evidence
}

// ClassificationResult is the outcome of classifying one message
type ClassificationResult struct {
	MessageID     string    `json:"message_id"`
	Category      Category  `json:"category"`
	CompanyName   string    `json:"company_name,omitempty"`
	JobTitle      string    `json:"job_title,omitempty"`
	Rule          RuleKey   `json:"rule,omitempty"`
	MatchedPhrase string    `json:"matched_phrase,omitempty"`
	SenderDomain  string    `json:"sender_domain,omitempty"`
	Noise         bool      `json:"noise"`
	ClassifiedAt  time.Time `json:"classified_at"`
}

// EmailRecord is a classified message as persisted by a ResultRepository
type EmailRecord struct {
	ClassificationResult
	Subject     string    `json:"subject"`
	Sender      string    `json:"sender"`
	Snippet     string    `json:"snippet"`
	BodyPreview string    `json:"body_preview"`
	ReceivedAt  time.Time `json:"received_at"`
	IsRead      bool      `json:"is_read"`
	CreatedAt   time.Time `json:"created_at"`
}

// Query filters and pages stored records
type Query struct {
	Category Category // empty means all
	Search   string   // matched against subject, sender, snippet and company
	Page     int
	PerPage  int
}

// Normalize applies paging defaults
func (q Query) Normalize() Query {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PerPage < 1 {
		q.PerPage = 50
	}
	if q.PerPage > 500 {
		q.PerPage = 500
	}
	return q
}

// Offset returns the row offset of the page
func (q Query) Offset() int {
	return (q.Page - 1) * q.PerPage
}

// Page is one page of query results
type Page struct {
	Emails     []EmailRecord `json:"emails"`
	Total      int           `json:"total"`
	Page       int           `json:"page"`
	PerPage    int           `json:"per_page"`
	TotalPages int           `json:"total_pages"`
}

// NewPage builds a page and computes the page count
func NewPage(emails []EmailRecord, total int, q Query) *Page {
	if emails == nil {
		emails = []EmailRecord{}
	}
	pages := (total + q.PerPage - 1) / q.PerPage
	if pages < 1 {
		pages = 1
	}
	return &Page{
		Emails:     emails,
		Total:      total,
		Page:       q.Page,
		PerPage:    q.PerPage,
		TotalPages: pages,
	}
}

// Stats summarizes stored records
type Stats struct {
	Total      int              `json:"total"`
	Categories map[Category]int `json:"categories"`
	Recent     int              `json:"recent_7_days"`
}

// ScanReport summarizes one scan run
type ScanReport struct {
	ScanID     string           `json:"scan_id"`
	Fetched    int              `json:"fetched"`
	Stored     int              `json:"stored"`
	Failed     int              `json:"failed"`
	ByCategory map[Category]int `json:"by_category"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
}
