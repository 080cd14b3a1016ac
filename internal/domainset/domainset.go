package domainset

import (
	"strings"

	"go.uber.org/zap"
)

// Set matches sender domains against a list of registered domains.
// A domain matches when it equals an entry or is a subdomain of one.
type Set struct {
	name    string
	domains map[string]struct{}
	logger  *zap.Logger
}

// New creates a domain set. Entries are normalized to lower case; blanks are dropped.
func New(name string, domains []string, logger *zap.Logger) *Set {
	normalized := make(map[string]struct{}, len(domains))
	for _, domain := range domains {
		d := strings.Trim(strings.ToLower(strings.TrimSpace(domain)), ".")
		if d == "" {
			continue
		}
		normalized[d] = struct{}{}
	}

	if logger != nil {
		logger.Debug("Initialized domain set", zap.String("set", name), zap.Int("domains", len(normalized)))
	}

	return &Set{
		name:    name,
		domains: normalized,
		logger:  logger,
	}
}

// Name returns the set name
func (s *Set) Name() string {
	return s.name
}

// Len returns the number of registered domains
func (s *Set) Len() int {
	return len(s.domains)
}

// With returns a new set holding the receiver's domains plus extra
func (s *Set) With(extra ...string) *Set {
	all := make([]string, 0, len(s.domains)+len(extra))
	for d := range s.domains {
		all = append(all, d)
	}
	all = append(all, extra...)
	return New(s.name, all, s.logger)
}

// Contains reports whether domain, or any parent of it, is registered
func (s *Set) Contains(domain string) bool {
	if len(s.domains) == 0 {
		return false
	}

	d := strings.Trim(strings.ToLower(domain), ".")
	for d != "" {
		if _, ok := s.domains[d]; ok {
			return true
		}
		i := strings.IndexByte(d, '.')
		if i < 0 {
			return false
		}
		d = d[i+1:]
	}

	return false
}

// ContainsAddress reports whether the domain of an email address is registered
func (s *Set) ContainsAddress(address string) bool {
	i := strings.LastIndexByte(address, '@')
	if i < 0 || i == len(address)-1 {
		return false
	}
	return s.Contains(address[i+1:])
}
