package presentation

import "medqa-workers/internal/models"

// Disclosure is the open/closed state of the explainability section. It is presentation-local
// and never influences request construction.
type Disclosure struct {
	open bool
}

// NewDisclosure is open only when research mode was active at submission.
func NewDisclosure(submittedMode models.ViewMode) Disclosure {
	return Disclosure{open: submittedMode == models.ViewModeResearch}
}

func (d Disclosure) Open() bool { return d.open }

func (d Disclosure) Toggle() Disclosure {
	return Disclosure{open: !d.open}
}

// OnModeChange opens the section when switching to research with an answer present.
func (d Disclosure) OnModeChange(research, hasAnswer bool) Disclosure {
	if research && hasAnswer {
		return Disclosure{open: true}
	}
	return d
}
