package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/mikey/job-mail-tracker/internal/adapters/mailparse"
	"github.com/mikey/job-mail-tracker/internal/core"
	"github.com/mikey/job-mail-tracker/internal/utils"
	"go.uber.org/zap"
)

// SignalClassifier classifies messages and exposes the signals it used
type SignalClassifier interface {
	Classify(msg core.RawMessage) core.ClassificationResult
	Signals(msg core.RawMessage) core.SignalSet
}

// Reporter classifies raw messages and writes the outcome for a terminal
type Reporter struct {
	classifier    SignalClassifier
	textProcessor *utils.TextProcessor
	logger        *zap.Logger
	out           io.Writer
	verbose       bool
	jsonOutput    bool
}

// NewReporter creates a new reporter
func NewReporter(
	classifier SignalClassifier,
	textProcessor *utils.TextProcessor,
	logger *zap.Logger,
	out io.Writer,
	verbose bool,
	jsonOutput bool,
) *Reporter {
	return &Reporter{
		classifier:    classifier,
		textProcessor: textProcessor,
		logger:        logger,
		out:           out,
		verbose:       verbose,
		jsonOutput:    jsonOutput,
	}
}

type jsonReport struct {
	Source string `json:"source"`
	core.ClassificationResult
	Subject string          `json:"subject"`
	Sender  string          `json:"sender"`
	Signals *core.SignalSet `json:"signals,omitempty"`
}

// Report parses one raw message from r, classifies it and writes the result.
// name identifies the input in the output.
func (r *Reporter) Report(name string, raw io.Reader) (core.ClassificationResult, error) {
	data, err := io.ReadAll(raw)
	if err != nil {
		return core.ClassificationResult{}, fmt.Errorf("failed to read %s: %w", name, err)
	}

	msg, err := mailparse.Parse(data)
	if err != nil {
		return core.ClassificationResult{}, fmt.Errorf("failed to parse %s: %w", name, err)
	}
	msg.Body = r.textProcessor.ProcessText(msg.Body)

	r.logger.Debug("Classifying message", zap.String("source", name), zap.String("message_id", msg.ID))

	start := time.Now()
	result := r.classifier.Classify(msg)
	duration := time.Since(start)

	if r.jsonOutput {
		report := jsonReport{
			Source:               name,
			ClassificationResult: result,
			Subject:              msg.Subject,
			Sender:               msg.Sender,
		}
		if r.verbose {
			sig := r.classifier.Signals(msg)
			report.Signals = &sig
		}
		if err := json.NewEncoder(r.out).Encode(report); err != nil {
			return result, fmt.Errorf("failed to write report: %w", err)
		}
		return result, nil
	}

	fmt.Fprintf(r.out, "\n=== %s ===\n", name)
	fmt.Fprintf(r.out, "From: %s\n", msg.Sender)
	fmt.Fprintf(r.out, "Subject: %s\n", msg.Subject)
	fmt.Fprintf(r.out, "Body length: %d bytes\n", len(msg.Body))

	if r.verbose {
		sig := r.classifier.Signals(msg)
		fmt.Fprintf(r.out, "\n--- Signals ---\n")
		fmt.Fprintf(r.out, "Sender domain: %s\n", sig.SenderDomain)
		fmt.Fprintf(r.out, "Automated: %t  Job board: %t  Interview platform: %t  Company: %t\n",
			sig.SenderIsAutomated, sig.SenderIsJobBoard, sig.SenderIsInterviewPlatform, sig.SenderIsCompany)
		fmt.Fprintf(r.out, "Bulk subject: %t\n", sig.SubjectIsBulk)
		if sig.HasJobContextWords {
			fmt.Fprintf(r.out, "Job context word: %s\n", sig.JobContextWord)
		}
	}

	fmt.Fprintf(r.out, "\n--- Result ---\n")
	fmt.Fprintf(r.out, "Category: %s\n", result.Category)
	if result.Rule != "" {
		fmt.Fprintf(r.out, "Rule: %s\n", result.Rule)
		fmt.Fprintf(r.out, "Matched: %q\n", result.MatchedPhrase)
	}
	if result.Noise {
		fmt.Fprintf(r.out, "Filtered as noise\n")
	}
	if result.CompanyName != "" {
		fmt.Fprintf(r.out, "Company: %s\n", result.CompanyName)
	}
	if result.JobTitle != "" {
		fmt.Fprintf(r.out, "Job title: %s\n", result.JobTitle)
	}
	fmt.Fprintf(r.out, "Processing time: %v\n", duration)

	return result, nil
}

// ReportScan writes a scan summary
func (r *Reporter) ReportScan(report *core.ScanReport) error {
	if r.jsonOutput {
		return json.NewEncoder(r.out).Encode(report)
	}

	fmt.Fprintf(r.out, "Scan %s\n", report.ScanID)
	fmt.Fprintf(r.out, "Fetched: %d  Stored: %d  Failed: %d\n", report.Fetched, report.Stored, report.Failed)
	for _, c := range core.Categories() {
		if n := report.ByCategory[c]; n > 0 {
			fmt.Fprintf(r.out, "  %-10s %d\n", c, n)
		}
	}
	fmt.Fprintf(r.out, "Duration: %v\n", report.FinishedAt.Sub(report.StartedAt))
	return nil
}
