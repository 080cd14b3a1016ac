package classifier

import (
	"fmt"
	"strings"

	"github.com/mikey/job-mail-tracker/internal/core"
)

var ruleCategories = map[core.RuleKey]core.Category{
	core.RuleOffer:           core.CategoryOffer,
	core.RuleInterviewInvite: core.CategoryInterview,
	core.RuleAppliedSubject:  core.CategoryApplied,
	core.RuleRejection:       core.CategoryRejection,
	core.RuleInterviewSignal: core.CategoryInterview,
	core.RuleApplied:         core.CategoryApplied,
	core.RuleFollowUp:        core.CategoryFollowUp,
	core.RuleDirect:          core.CategoryDirect,
}

// DefaultPrecedence returns the rule order used when none is configured,
// strongest first
func DefaultPrecedence() []core.RuleKey {
	return []core.RuleKey{
		core.RuleOffer,
		core.RuleInterviewInvite,
		core.RuleAppliedSubject,
		core.RuleRejection,
		core.RuleInterviewSignal,
		core.RuleApplied,
		core.RuleFollowUp,
		core.RuleDirect,
	}
}

// ParsePrecedence converts rule names to rule keys. It does not check
// completeness; NewResolver does.
func ParsePrecedence(names []string) ([]core.RuleKey, error) {
	order := make([]core.RuleKey, 0, len(names))
	for _, name := range names {
		rule := core.RuleKey(strings.TrimSpace(name))
		if _, ok := ruleCategories[rule]; !ok {
			return nil, fmt.Errorf("unknown rule in precedence: %q", name)
		}
		order = append(order, rule)
	}
	return order, nil
}

// Resolver picks the winning match by total rule order
type Resolver struct {
	rank map[core.RuleKey]int
}

// NewResolver creates a resolver. The order must rank every rule exactly once.
func NewResolver(order []core.RuleKey) (*Resolver, error) {
	rank := make(map[core.RuleKey]int, len(order))
	for i, rule := range order {
		if _, ok := ruleCategories[rule]; !ok {
			return nil, fmt.Errorf("unknown rule in precedence: %q", rule)
		}
		if _, dup := rank[rule]; dup {
			return nil, fmt.Errorf("duplicate rule in precedence: %q", rule)
		}
		rank[rule] = i
	}
	if len(rank) != len(ruleCategories) {
		var missing []string
		for _, rule := range DefaultPrecedence() {
			if _, ok := rank[rule]; !ok {
				missing = append(missing, string(rule))
			}
		}
		return nil, fmt.Errorf("precedence must rank every rule, missing: %s", strings.Join(missing, ", "))
	}

	return &Resolver{rank: rank}, nil
}

// MustResolver is NewResolver that panics on error
func MustResolver(order []core.RuleKey) *Resolver {
	r, err := NewResolver(order)
	if err != nil {
		panic(err)
	}
	return r
}

// Resolve returns the highest-ranked match. It returns false for no matches.
// A match with an unknown rule, or a rule paired with the wrong category, is
// a programming error and panics.
func (r *Resolver) Resolve(matches []core.CategoryMatch) (core.CategoryMatch, bool) {
	best := -1
	var winner core.CategoryMatch
	for _, m := range matches {
		rank, ok := r.rank[m.Rule]
		if !ok {
			panic(fmt.Sprintf("classifier: match with unknown rule %q", m.Rule))
		}
		if ruleCategories[m.Rule] != m.Category {
			panic(fmt.Sprintf("classifier: rule %q cannot produce category %q", m.Rule, m.Category))
		}
		if best < 0 || rank < best {
			best = rank
			winner = m
		}
	}
	return winner, best >= 0
}
