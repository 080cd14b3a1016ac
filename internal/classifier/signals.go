package classifier

import (
	"net/mail"
	"regexp"
	"strings"

	"github.com/mikey/job-mail-tracker/internal/core"
	"github.com/mikey/job-mail-tracker/internal/domainset"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

var (
	angleAddress = regexp.MustCompile(`<([^<>\s]+@[^<>\s]+)>`)
	bareAddress  = regexp.MustCompile(`[\w.+\-']+@[\w.\-]+\.[A-Za-z]{2,}`)

	quoteFolder = strings.NewReplacer(
		"‘", "'", "’", "'", "‚", "'", "′", "'",
		"“", `"`, "”", `"`, "„", `"`, "″", `"`,
	)
)

const (
	minTitleLength = 4
	maxTitleLength = 79
	maxCompanyLen  = 60
	titleScanLimit = 2000
)

var companyStopWords = map[string]bool{
	"the": true, "our": true, "your": true, "we": true, "us": true, "you": true,
	"team": true, "a": true, "an": true, "this": true, "i": true, "my": true,
}

var titleStopFragments = []string{" the ", " for ", " your ", " our ", " you ", "http"}

// Domains groups the domain sets the extractor consults
type Domains struct {
	JobBoards          *domainset.Set
	InterviewPlatforms *domainset.Set
	FreeMail           *domainset.Set
	Bulk               *domainset.Set
}

// DefaultDomains returns the built-in domain sets
func DefaultDomains() Domains {
	return Domains{
		JobBoards:          domainset.New("job_boards", defaultJobBoardDomains, nil),
		InterviewPlatforms: domainset.New("interview_platforms", defaultInterviewPlatformDomains, nil),
		FreeMail:           domainset.New("free_mail", defaultFreeMailDomains, nil),
		Bulk:               domainset.New("bulk", defaultBulkDomains, nil),
	}
}

// WithExtra returns a copy with additional job-board and free-mail domains
func (d Domains) WithExtra(jobBoards, freeMail []string) Domains {
	if len(jobBoards) > 0 {
		d.JobBoards = d.JobBoards.With(jobBoards...)
	}
	if len(freeMail) > 0 {
		d.FreeMail = d.FreeMail.With(freeMail...)
	}
	return d
}

// Extractor derives a SignalSet from a RawMessage
type Extractor struct {
	domains Domains
}

// NewExtractor creates an extractor over the given domain sets
func NewExtractor(domains Domains) *Extractor {
	return &Extractor{domains: domains}
}

// Extract computes all signals for msg. It never fails; missing parts
// yield empty or false fields.
func (e *Extractor) Extract(msg core.RawMessage) core.SignalSet {
	name, address := parseSender(msg.Sender)
	domain := domainOf(address)

	subject := normalize(msg.Subject)
	body := msg.Body
	if strings.TrimSpace(body) == "" {
		body = msg.Snippet
	}
	body = normalize(body)

	sig := core.SignalSet{
		SenderAddress: address,
		SenderName:    name,
		SenderDomain:  domain,
		SubjectLower:  lower(subject),
		BodyLower:     lower(body),
	}

	sig.SenderIsJobBoard = domain != "" && e.domains.JobBoards.Contains(domain)
	sig.SenderIsInterviewPlatform = domain != "" && e.domains.InterviewPlatforms.Contains(domain)
	sig.SenderIsAutomated = isAutomatedSender(address) || (domain != "" && e.domains.Bulk.Contains(domain))
	sig.SenderIsCompany = domain != "" &&
		!sig.SenderIsJobBoard &&
		!sig.SenderIsInterviewPlatform &&
		!e.domains.FreeMail.Contains(domain) &&
		!e.domains.Bulk.Contains(domain)

	_, sig.SubjectIsBulk = firstMatch(sig.SubjectLower, bulkSubjectPatterns)

	if word := jobContextPattern.FindString(joined(sig)); word != "" {
		sig.HasJobContextWords = true
		sig.JobContextWord = word
	}

	sig.ExtractedCompany = extractCompany(subject, body, name, domain, sig.SenderIsCompany)
	sig.ExtractedJobTitle = extractJobTitle(subject, body)

	return sig
}

// joined is the text most detectors match against
func joined(sig core.SignalSet) string {
	switch {
	case sig.SubjectLower == "":
		return sig.BodyLower
	case sig.BodyLower == "":
		return sig.SubjectLower
	}
	return sig.SubjectLower + " " + sig.BodyLower
}

func normalize(s string) string {
	if s == "" {
		return ""
	}
	s = norm.NFKC.String(s)
	s = quoteFolder.Replace(s)
	return strings.Join(strings.Fields(s), " ")
}

// lower folds case. A Caser keeps state, so one is created per call.
func lower(s string) string {
	if s == "" {
		return ""
	}
	return cases.Lower(language.Und).String(s)
}

func parseSender(sender string) (name, address string) {
	sender = strings.TrimSpace(sender)
	if sender == "" {
		return "", ""
	}

	if a, err := mail.ParseAddress(sender); err == nil {
		return strings.TrimSpace(a.Name), strings.ToLower(a.Address)
	}

	if loc := angleAddress.FindStringSubmatchIndex(sender); loc != nil {
		name = strings.Trim(strings.TrimSpace(sender[:loc[0]]), `"'`)
		return name, strings.ToLower(sender[loc[2]:loc[3]])
	}

	if addr := bareAddress.FindString(sender); addr != "" {
		return "", strings.ToLower(addr)
	}

	return sender, ""
}

func domainOf(address string) string {
	i := strings.LastIndexByte(address, '@')
	if i < 0 {
		return ""
	}
	return strings.Trim(address[i+1:], ".")
}

func isAutomatedSender(address string) bool {
	if address == "" {
		return false
	}
	_, ok := firstMatch(address, automatedSenderPatterns)
	return ok
}

func extractCompany(subject, body, senderName, domain string, companyDomain bool) string {
	texts := []string{subject, truncate(body, titleScanLimit)}

	if company := matchCompany(companyPatterns[0], texts...); company != "" {
		return company
	}
	if company := matchCompany(companyPatterns[1], subject); company != "" {
		return company
	}
	if m := senderCompanySuffix.FindStringSubmatch(senderName); m != nil {
		if company := cleanCompany(m[1]); company != "" {
			return company
		}
	}
	if companyDomain {
		if label := registrableLabel(domain); label != "" {
			return cases.Title(language.English).String(label)
		}
	}
	return ""
}

func matchCompany(re *regexp.Regexp, texts ...string) string {
	for _, text := range texts {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			if company := cleanCompany(m[1]); company != "" {
				return company
			}
		}
	}
	return ""
}

func cleanCompany(s string) string {
	s = strings.TrimRight(strings.TrimSpace(s), ".,;:!?'-&")
	s = strings.TrimSpace(s)
	if len(s) < 2 || len(s) > maxCompanyLen {
		return ""
	}
	if companyStopWords[strings.ToLower(s)] {
		return ""
	}
	return s
}

// registrableLabel returns "acme" for jobs.acme.com and acme.co.uk
func registrableLabel(domain string) string {
	labels := strings.Split(domain, ".")
	if len(labels) < 2 {
		return ""
	}
	i := len(labels) - 2
	if len(labels) >= 3 && secondLevelLabels[labels[i]] && len(labels[len(labels)-1]) == 2 {
		i--
	}
	return labels[i]
}

func extractJobTitle(subject, body string) string {
	texts := []string{subject, truncate(body, titleScanLimit)}
	for _, re := range jobTitlePatterns {
		for _, text := range texts {
			for _, m := range re.FindAllStringSubmatch(text, -1) {
				if title := cleanTitle(m[1]); title != "" {
					return title
				}
			}
		}
	}
	return ""
}

func cleanTitle(s string) string {
	s = strings.TrimSpace(strings.TrimRight(s, " -/&"))
	if len(s) < minTitleLength || len(s) > maxTitleLength {
		return ""
	}
	padded := " " + strings.ToLower(s) + " "
	for _, frag := range titleStopFragments {
		if strings.Contains(padded, frag) {
			return ""
		}
	}
	return s
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
