package classifier

import (
	"strings"

	"github.com/mikey/job-mail-tracker/internal/core"
)

const (
	// TierStrong marks explicit, unambiguous evidence. A strong match
	// overrides the noise filter.
	TierStrong = 1
	// TierContextual marks evidence that depends on surrounding context
	TierContextual = 2
)

// Detector tests a message for one rule
type Detector struct {
	Rule     core.RuleKey
	Category core.Category
	Tier     int
	match    func(msg core.RawMessage, sig core.SignalSet) (string, bool)
}

// Detect returns the match produced by this detector, if any
func (d Detector) Detect(msg core.RawMessage, sig core.SignalSet) (core.CategoryMatch, bool) {
	phrase, ok := d.match(msg, sig)
	if !ok {
		return core.CategoryMatch{}, false
	}
	return core.CategoryMatch{
		Category:      d.Category,
		Rule:          d.Rule,
		MatchedPhrase: phrase,
		Tier:          d.Tier,
	}, true
}

// RuleSet is the fixed collection of category detectors
type RuleSet struct {
	detectors []Detector
}

// NewRuleSet creates the rule set
func NewRuleSet() *RuleSet {
	return &RuleSet{detectors: []Detector{
		{Rule: core.RuleOffer, Category: core.CategoryOffer, Tier: TierStrong, match: detectOffer},
		{Rule: core.RuleInterviewInvite, Category: core.CategoryInterview, Tier: TierStrong, match: detectInterviewInvite},
		{Rule: core.RuleAppliedSubject, Category: core.CategoryApplied, Tier: TierStrong, match: detectAppliedSubject},
		{Rule: core.RuleRejection, Category: core.CategoryRejection, Tier: TierStrong, match: detectRejection},
		{Rule: core.RuleInterviewSignal, Category: core.CategoryInterview, Tier: TierContextual, match: detectInterviewSignal},
		{Rule: core.RuleApplied, Category: core.CategoryApplied, Tier: TierContextual, match: detectApplied},
		{Rule: core.RuleFollowUp, Category: core.CategoryFollowUp, Tier: TierContextual, match: detectFollowUp},
		{Rule: core.RuleDirect, Category: core.CategoryDirect, Tier: TierContextual, match: detectDirect},
	}}
}

// Detectors returns a copy of the detectors
func (r *RuleSet) Detectors() []Detector {
	out := make([]Detector, len(r.detectors))
	copy(out, r.detectors)
	return out
}

// Evaluate runs every detector of the given tier
func (r *RuleSet) Evaluate(msg core.RawMessage, sig core.SignalSet, tier int) []core.CategoryMatch {
	var matches []core.CategoryMatch
	for _, d := range r.detectors {
		if d.Tier != tier {
			continue
		}
		if m, ok := d.Detect(msg, sig); ok {
			matches = append(matches, m)
		}
	}
	return matches
}

// Match runs all detectors
func (r *RuleSet) Match(msg core.RawMessage, sig core.SignalSet) []core.CategoryMatch {
	matches := r.Evaluate(msg, sig, TierStrong)
	return append(matches, r.Evaluate(msg, sig, TierContextual)...)
}

// Strong reports whether any strong detector fires
func (r *RuleSet) Strong(msg core.RawMessage, sig core.SignalSet) bool {
	for _, d := range r.detectors {
		if d.Tier != TierStrong {
			continue
		}
		if _, ok := d.match(msg, sig); ok {
			return true
		}
	}
	return false
}

func detectOffer(_ core.RawMessage, sig core.SignalSet) (string, bool) {
	text := joined(sig)
	if text == "" {
		return "", false
	}
	for _, p := range offerPatterns {
		for _, loc := range p.FindAllStringIndex(text, -1) {
			if negated(text[:loc[0]]) {
				continue
			}
			return text[loc[0]:loc[1]], true
		}
	}
	return "", false
}

// negated reports whether the text just before a phrase, within the same
// sentence, carries a negation
func negated(before string) bool {
	if len(before) > negationWindow {
		before = before[len(before)-negationWindow:]
	}
	if i := strings.LastIndexAny(before, ".!?"); i >= 0 {
		before = before[i+1:]
	}
	return negationPattern.MatchString(before)
}

// detectInterviewInvite trusts an interview-platform sender only when the
// message has some content
func detectInterviewInvite(_ core.RawMessage, sig core.SignalSet) (string, bool) {
	text := joined(sig)
	if text == "" {
		return "", false
	}
	if sig.SenderIsInterviewPlatform {
		return sig.SenderDomain, true
	}
	return firstMatch(text, interviewInvitePatterns)
}

func detectAppliedSubject(_ core.RawMessage, sig core.SignalSet) (string, bool) {
	return firstMatch(sig.SubjectLower, appliedSubjectPatterns)
}

func detectRejection(_ core.RawMessage, sig core.SignalSet) (string, bool) {
	return firstMatch(joined(sig), rejectionPatterns)
}

// detectInterviewSignal needs a subject keyword and a body action signal
func detectInterviewSignal(_ core.RawMessage, sig core.SignalSet) (string, bool) {
	keyword, ok := firstMatch(sig.SubjectLower, interviewSubjectKeywords)
	if !ok {
		return "", false
	}
	action, ok := firstMatch(sig.BodyLower, interviewActionSignals)
	if !ok {
		return "", false
	}
	return keyword + " / " + action, true
}

func detectApplied(_ core.RawMessage, sig core.SignalSet) (string, bool) {
	return firstMatch(sig.BodyLower, appliedBodyPatterns)
}

// detectFollowUp accepts a generic follow-up phrase only alongside job context
func detectFollowUp(_ core.RawMessage, sig core.SignalSet) (string, bool) {
	text := joined(sig)
	if phrase, ok := firstMatch(text, followUpStatusPatterns); ok {
		return phrase, true
	}
	if !sig.HasJobContextWords {
		return "", false
	}
	return firstMatch(text, followUpPhrases)
}

func detectDirect(_ core.RawMessage, sig core.SignalSet) (string, bool) {
	if sig.SenderIsAutomated || sig.SenderIsJobBoard || !sig.SenderIsCompany {
		return "", false
	}
	if phrase, ok := firstMatch(joined(sig), directOutreachPatterns); ok {
		return phrase, true
	}
	if sig.HasJobContextWords {
		return sig.JobContextWord, true
	}
	return "", false
}
