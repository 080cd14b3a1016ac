package ports

// MailIntake defines the interface for push-style mail ingestion
type MailIntake interface {
	// Start starts accepting mail
	Start() error

	// Stop stops accepting mail
	Stop() error
}
