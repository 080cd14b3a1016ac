package source

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"mime"
	"net/mail"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mikey/job-mail-tracker/internal/adapters/mailparse"
	"github.com/mikey/job-mail-tracker/internal/core"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/time/rate"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

const listPageSize = 100

var errFetchLimit = errors.New("fetch limit reached")

// DefaultSenderDomains are the job boards and applicant tracking systems the
// default search query matches on
var DefaultSenderDomains = []string{
	"indeed.com", "linkedin.com", "greenhouse.io", "lever.co",
	"myworkday.com", "myworkdayjobs.com", "workday.com",
	"smartrecruiters.com", "icims.com", "jobvite.com",
	"applytojob.com", "ashbyhq.com", "breezy.hr",
	"recruitee.com", "jazz.co", "bamboohr.com",
	"taleo.net", "successfactors.com", "ultipro.com",
	"paylocity.com", "paycom.com", "adp.com",
	"app.dover.io", "rippling.com", "gusto.com",
}

// DefaultSubjectKeywords are subject phrases the default search query matches on
var DefaultSubjectKeywords = []string{
	"application", "interview", "offer", "position",
	"candidacy", "your application", "applied",
	"we regret", "next steps", "recruitment",
	"hiring", "recruiter", "talent acquisition",
}

// GmailConfig holds the settings for a Gmail mailbox
type GmailConfig struct {
	CredentialsFile   string
	TokenFile         string
	User              string
	Query             string
	RequestsPerSecond float64
}

// GmailSource fetches messages from a Gmail mailbox
type GmailSource struct {
	svc     *gmail.Service
	user    string
	query   string
	limiter *rate.Limiter
	logger  *zap.Logger
}

// BuildQuery builds a Gmail search matching any sender domain or subject
// keyword, excluding spam and trash
func BuildQuery(domains, subjects []string) string {
	terms := make([]string, 0, len(domains)+len(subjects))
	for _, d := range domains {
		terms = append(terms, "from:"+d)
	}
	for _, s := range subjects {
		terms = append(terms, fmt.Sprintf("subject:%q", s))
	}

	query := "-in:spam -in:trash"
	if len(terms) > 0 {
		query = "(" + strings.Join(terms, " OR ") + ") " + query
	}
	return query
}

// OAuthConfig loads the OAuth client from a Google credentials file
func OAuthConfig(credentialsFile string) (*oauth2.Config, error) {
	data, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials file: %w", err)
	}

	config, err := google.ConfigFromJSON(data, gmail.GmailReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("failed to parse credentials file: %w", err)
	}
	return config, nil
}

// ExchangeCode trades an authorization code for a token and saves it
func ExchangeCode(ctx context.Context, config *oauth2.Config, code, tokenFile string) error {
	token, err := config.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("failed to exchange authorization code: %w", err)
	}
	return saveToken(tokenFile, token)
}

// NewGmailSource creates a Gmail source authorized by a saved token.
// Refreshed tokens are written back to the token file.
func NewGmailSource(ctx context.Context, cfg GmailConfig, logger *zap.Logger) (*GmailSource, error) {
	config, err := OAuthConfig(cfg.CredentialsFile)
	if err != nil {
		return nil, err
	}

	token, err := loadToken(cfg.TokenFile)
	if err != nil {
		return nil, err
	}

	ts := &persistingTokenSource{
		base:   config.TokenSource(ctx, token),
		path:   cfg.TokenFile,
		last:   token.AccessToken,
		logger: logger,
	}

	svc, err := gmail.NewService(ctx, option.WithHTTPClient(oauth2.NewClient(ctx, ts)))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}

	return NewGmailSourceFromService(svc, cfg, logger), nil
}

// NewGmailSourceFromService wraps an existing Gmail service
func NewGmailSourceFromService(svc *gmail.Service, cfg GmailConfig, logger *zap.Logger) *GmailSource {
	if cfg.User == "" {
		cfg.User = "me"
	}
	if cfg.Query == "" {
		cfg.Query = BuildQuery(DefaultSenderDomains, DefaultSubjectKeywords)
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	return &GmailSource{
		svc:     svc,
		user:    cfg.User,
		query:   cfg.Query,
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger,
	}
}

// Fetch lists messages matching the query and calls fn for each, newest first.
// A message that cannot be retrieved is skipped.
func (s *GmailSource) Fetch(ctx context.Context, max int, fn func(core.RawMessage) error) error {
	count := 0
	call := s.svc.Users.Messages.List(s.user).
		Q(s.query).
		IncludeSpamTrash(false).
		MaxResults(int64(min(max, listPageSize)))

	err := call.Pages(ctx, func(page *gmail.ListMessagesResponse) error {
		for _, m := range page.Messages {
			if count >= max {
				return errFetchLimit
			}
			if err := s.limiter.Wait(ctx); err != nil {
				return err
			}

			full, err := s.svc.Users.Messages.Get(s.user, m.Id).Format("full").Context(ctx).Do()
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				s.logger.Warn("Failed to get message", zap.String("gmail_id", m.Id), zap.Error(err))
				continue
			}

			count++
			if err := fn(ToRawMessage(full)); err != nil {
				return err
			}
		}
		return nil
	})

	if err != nil && !errors.Is(err, errFetchLimit) {
		return fmt.Errorf("failed to list messages: %w", err)
	}

	s.logger.Debug("Fetched messages", zap.Int("count", count), zap.String("query", s.query))
	return nil
}

// ToRawMessage converts a full-format Gmail message
func ToRawMessage(m *gmail.Message) core.RawMessage {
	msg := core.RawMessage{
		ID:      m.Id,
		Snippet: html.UnescapeString(m.Snippet),
	}
	if m.Payload == nil {
		msg.ReceivedAt = time.UnixMilli(m.InternalDate).UTC()
		return msg
	}

	for _, h := range m.Payload.Headers {
		switch strings.ToLower(h.Name) {
		case "from":
			msg.Sender = mailparse.DecodeHeader(h.Value)
		case "subject":
			msg.Subject = mailparse.DecodeHeader(h.Value)
		case "date":
			if t, err := mail.ParseDate(h.Value); err == nil {
				msg.ReceivedAt = t.UTC()
			}
		}
	}
	if msg.ReceivedAt.IsZero() && m.InternalDate > 0 {
		msg.ReceivedAt = time.UnixMilli(m.InternalDate).UTC()
	}

	var plain, htmlText strings.Builder
	collectParts(m.Payload, &plain, &htmlText)
	if plain.Len() > 0 {
		msg.Body = strings.TrimSpace(plain.String())
	} else if htmlText.Len() > 0 {
		msg.Body = mailparse.HTMLToText(htmlText.String())
	}

	return msg
}

func collectParts(p *gmail.MessagePart, plain, htmlText *strings.Builder) {
	if p == nil {
		return
	}
	if p.Filename != "" {
		return
	}

	if strings.HasPrefix(p.MimeType, "multipart/") {
		for _, child := range p.Parts {
			collectParts(child, plain, htmlText)
		}
		return
	}

	if p.Body == nil || p.Body.Data == "" {
		return
	}
	data, err := decodeBody(p.Body.Data)
	if err != nil {
		return
	}
	text := mailparse.DecodeCharset(partCharset(p), data)

	switch p.MimeType {
	case "text/plain":
		plain.WriteString(text)
		plain.WriteString("\n")
	case "text/html":
		htmlText.WriteString(text)
	}
}

// decodeBody decodes base64url body data, padded or not
func decodeBody(data string) ([]byte, error) {
	return base64.RawURLEncoding.DecodeString(strings.TrimRight(data, "="))
}

func partCharset(p *gmail.MessagePart) string {
	for _, h := range p.Headers {
		if !strings.EqualFold(h.Name, "Content-Type") {
			continue
		}
		if _, params, err := mime.ParseMediaType(h.Value); err == nil {
			return params["charset"]
		}
	}
	return ""
}

func loadToken(path string) (*oauth2.Token, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read token file (authorize first): %w", err)
	}

	token := &oauth2.Token{}
	if err := json.Unmarshal(data, token); err != nil {
		return nil, fmt.Errorf("failed to parse token file: %w", err)
	}
	return token, nil
}

func saveToken(path string, token *oauth2.Token) error {
	data, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	return nil
}

// persistingTokenSource saves the token whenever the underlying source refreshes it
type persistingTokenSource struct {
	base   oauth2.TokenSource
	path   string
	logger *zap.Logger

	mu   sync.Mutex
	last string
}

func (p *persistingTokenSource) Token() (*oauth2.Token, error) {
	token, err := p.base.Token()
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if token.AccessToken != p.last {
		p.last = token.AccessToken
		if err := saveToken(p.path, token); err != nil {
			p.logger.Warn("Failed to persist refreshed token", zap.Error(err))
		}
	}
	return token, nil
}
