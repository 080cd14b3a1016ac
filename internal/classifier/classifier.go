// Package classifier assigns job-search categories to email messages using
// deterministic phrase rules.
//
// Classification runs in four steps: signal extraction, a strong-evidence
// check, the noise filter and precedence resolution over all detector matches.
// A Classifier holds no mutable state and is safe for concurrent use.
package classifier

import (
	"time"

	"github.com/mikey/job-mail-tracker/internal/core"
)

// Classifier implements core.Classifier
type Classifier struct {
	extractor *Extractor
	rules     *RuleSet
	resolver  *Resolver
	now       func() time.Time
}

// Option configures a Classifier
type Option func(*Classifier)

// WithClock sets the clock used for ClassifiedAt
func WithClock(now func() time.Time) Option {
	return func(c *Classifier) {
		c.now = now
	}
}

// WithResolver replaces the default precedence
func WithResolver(r *Resolver) Option {
	return func(c *Classifier) {
		c.resolver = r
	}
}

// WithDomains replaces the built-in domain sets
func WithDomains(d Domains) Option {
	return func(c *Classifier) {
		c.extractor = NewExtractor(d)
	}
}

// New creates a classifier
func New(opts ...Option) *Classifier {
	c := &Classifier{
		extractor: NewExtractor(DefaultDomains()),
		rules:     NewRuleSet(),
		resolver:  MustResolver(DefaultPrecedence()),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify assigns exactly one category to msg
func (c *Classifier) Classify(msg core.RawMessage) core.ClassificationResult {
	sig := c.extractor.Extract(msg)

	result := core.ClassificationResult{
		MessageID:    msg.ID,
		Category:     core.CategoryOther,
		SenderDomain: sig.SenderDomain,
		ClassifiedAt: c.now().UTC(),
	}

	if IsNoise(sig, c.rules.Strong(msg, sig)) {
		result.Noise = true
		return result
	}

	winner, ok := c.resolver.Resolve(c.rules.Match(msg, sig))
	if !ok {
		return result
	}

	result.Category = winner.Category
	result.Rule = winner.Rule
	result.MatchedPhrase = winner.MatchedPhrase
	result.CompanyName = sig.ExtractedCompany
	result.JobTitle = sig.ExtractedJobTitle
	return result
}

// Signals exposes the extracted signals for diagnostics
func (c *Classifier) Signals(msg core.RawMessage) core.SignalSet {
	return c.extractor.Extract(msg)
}

var _ core.Classifier = (*Classifier)(nil)
