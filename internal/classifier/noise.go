package classifier

import "github.com/mikey/job-mail-tracker/internal/core"

// IsNoise reports whether a message should be classified as other before any
// category rule runs. Automated, job-board and bulk mail is noise unless a
// strong detector fired.
func IsNoise(sig core.SignalSet, strong bool) bool {
	if strong {
		return false
	}
	return sig.SenderIsAutomated || sig.SenderIsJobBoard || sig.SubjectIsBulk
}
