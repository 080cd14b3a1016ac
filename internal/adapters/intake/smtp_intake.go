package intake

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/emersion/go-smtp"
	"github.com/mikey/job-mail-tracker/internal/adapters/mailparse"
	"github.com/mikey/job-mail-tracker/internal/core"
	"go.uber.org/zap"
)

const (
	companyHeader = "X-Job-Company"
	errorHeader   = "X-Job-Tracker-Error"
)

// Processor classifies and stores a message
type Processor interface {
	Process(ctx context.Context, msg core.RawMessage) (*core.EmailRecord, error)
}

// RelayConfig describes the downstream MTA annotated mail is sent to
type RelayConfig struct {
	Enabled bool
	Address string
	Port    int
}

// SMTPIntake accepts forwarded mail over SMTP, classifies it and optionally
// relays it onward with a category header
type SMTPIntake struct {
	processor  Processor
	logger     *zap.Logger
	listenAddr string
	header     string
	relay      RelayConfig

	mu       sync.Mutex
	server   *smtp.Server
	listener net.Listener
}

// NewSMTPIntake creates a new SMTP intake
func NewSMTPIntake(
	processor Processor,
	logger *zap.Logger,
	listenAddr string,
	header string,
	relay RelayConfig,
) *SMTPIntake {
	if header == "" {
		header = "X-Job-Category"
	}

	return &SMTPIntake{
		processor:  processor,
		logger:     logger,
		listenAddr: listenAddr,
		header:     header,
		relay:      relay,
	}
}

// Start starts listening for SMTP connections
func (i *SMTPIntake) Start() error {
	i.mu.Lock()
	defer i.mu.Unlock()

	listener, err := net.Listen("tcp", i.listenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", i.listenAddr, err)
	}

	server := smtp.NewServer(&smtpBackend{intake: i})
	server.Addr = i.listenAddr
	server.Domain = "localhost"
	server.ReadTimeout = 30 * time.Second
	server.WriteTimeout = 30 * time.Second
	server.MaxMessageBytes = 30 * 1024 * 1024
	server.MaxRecipients = 50

	i.server = server
	i.listener = listener

	i.logger.Info("SMTP intake starting", zap.String("address", listener.Addr().String()))

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, smtp.ErrServerClosed) {
			i.logger.Error("SMTP server error", zap.Error(err))
		}
	}()

	return nil
}

// Addr returns the bound listen address, or nil before Start
func (i *SMTPIntake) Addr() net.Addr {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.listener == nil {
		return nil
	}
	return i.listener.Addr()
}

// Stop stops the SMTP server
func (i *SMTPIntake) Stop() error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.server == nil {
		return nil
	}
	err := i.server.Close()
	_ = i.listener.Close()
	i.server = nil
	i.listener = nil
	return err
}

// Handle parses, classifies and stores one message. The annotated message is
// relayed when relaying is enabled. A classification or store failure is
// recorded in a header rather than dropping the mail.
func (i *SMTPIntake) Handle(ctx context.Context, sender string, recipients []string, raw []byte) (*core.EmailRecord, error) {
	msg, err := mailparse.Parse(raw)
	if err != nil {
		return nil, &smtp.SMTPError{
			Code:         554,
			EnhancedCode: smtp.EnhancedCode{5, 6, 0},
			Message:      "Message could not be parsed",
		}
	}
	if msg.ReceivedAt.IsZero() {
		msg.ReceivedAt = time.Now().UTC()
	}

	headers := make([]string, 0, 2)
	record, processErr := i.processor.Process(ctx, msg)
	if processErr != nil {
		i.logger.Error("Failed to process message",
			zap.String("message_id", msg.ID),
			zap.String("envelope_from", sender),
			zap.Error(processErr))
		headers = append(headers, headerLine(errorHeader, processErr.Error()))
	} else {
		headers = append(headers, headerLine(i.header, string(record.Category)))
		if record.CompanyName != "" {
			headers = append(headers, headerLine(companyHeader, record.CompanyName))
		}
	}

	if i.relay.Enabled {
		if err := i.sendToRelay(sender, recipients, AnnotateMessage(raw, headers...)); err != nil {
			i.logger.Error("Failed to relay message",
				zap.String("message_id", msg.ID),
				zap.Error(err))
			return record, &smtp.SMTPError{
				Code:         451,
				EnhancedCode: smtp.EnhancedCode{4, 4, 0},
				Message:      "Downstream relay unavailable",
			}
		}
	}

	if record != nil {
		i.logger.Info("Processed message",
			zap.String("message_id", msg.ID),
			zap.String("category", string(record.Category)),
			zap.String("company", record.CompanyName),
			zap.Bool("relayed", i.relay.Enabled))
	}

	return record, nil
}

// AnnotateMessage prepends header lines to a raw message, leaving the
// original headers and body untouched
func AnnotateMessage(raw []byte, headers ...string) []byte {
	var buf bytes.Buffer
	buf.Grow(len(raw) + 128)
	for _, h := range headers {
		buf.WriteString(h)
		buf.WriteString("\r\n")
	}
	buf.Write(raw)
	return buf.Bytes()
}

// headerLine formats a header, stripping line breaks from the value
func headerLine(name, value string) string {
	value = strings.Join(strings.Fields(value), " ")
	return name + ": " + value
}

// sendToRelay sends the message to the downstream MTA
func (i *SMTPIntake) sendToRelay(sender string, recipients []string, data []byte) error {
	relayAddr := net.JoinHostPort(i.relay.Address, fmt.Sprint(i.relay.Port))

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "localhost"
	}

	conn, err := net.DialTimeout("tcp", relayAddr, 10*time.Second)
	if err != nil {
		return fmt.Errorf("failed to connect to relay: %w", err)
	}

	if err := conn.SetDeadline(time.Now().Add(30 * time.Second)); err != nil {
		conn.Close()
		return fmt.Errorf("failed to set connection deadline: %w", err)
	}

	c := smtp.NewClient(conn)
	defer c.Close()

	if err := c.Hello(hostname); err != nil {
		return fmt.Errorf("EHLO failed: %w", err)
	}

	if err := c.Mail(sender, nil); err != nil {
		return fmt.Errorf("MAIL FROM failed: %w", err)
	}

	recipientOK := false
	for _, recipient := range recipients {
		if err := c.Rcpt(recipient, nil); err != nil {
			i.logger.Warn("RCPT TO failed for recipient",
				zap.String("recipient", recipient),
				zap.Error(err))
			continue
		}
		recipientOK = true
	}
	if !recipientOK {
		return fmt.Errorf("all recipients were rejected")
	}

	wc, err := c.Data()
	if err != nil {
		return fmt.Errorf("DATA command failed: %w", err)
	}
	if _, err := wc.Write(data); err != nil {
		wc.Close()
		return fmt.Errorf("failed to send message data: %w", err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}

	if err := c.Quit(); err != nil {
		i.logger.Warn("QUIT command failed", zap.Error(err))
	}

	return nil
}

type smtpBackend struct {
	intake *SMTPIntake
}

func (b *smtpBackend) NewSession(_ *smtp.Conn) (smtp.Session, error) {
	return &smtpSession{intake: b.intake}, nil
}

type smtpSession struct {
	intake     *SMTPIntake
	sender     string
	recipients []string
}

func (s *smtpSession) Reset() {
	s.sender = ""
	s.recipients = nil
}

func (s *smtpSession) Mail(from string, _ *smtp.MailOptions) error {
	s.sender = from
	return nil
}

func (s *smtpSession) Rcpt(to string, _ *smtp.RcptOptions) error {
	s.recipients = append(s.recipients, to)
	return nil
}

func (s *smtpSession) Data(r io.Reader) error {
	raw, err := io.ReadAll(r)
	if err != nil {
		s.intake.logger.Error("Failed to read message data", zap.Error(err))
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err = s.intake.Handle(ctx, s.sender, s.recipients, raw)
	return err
}

func (s *smtpSession) Logout() error {
	return nil
}
