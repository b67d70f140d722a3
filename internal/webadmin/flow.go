// ABOUTME: Explicit state machines for form submission and the delete confirmation modal
// ABOUTME: Handlers drive these instead of ad-hoc loading/open flags

package webadmin

import (
	"errors"
	"fmt"
)

// ErrInvalidTransition is returned when an event is not allowed in the current phase.
var ErrInvalidTransition = errors.New("invalid transition")

// FormPhase is the lifecycle of one form submission.
type FormPhase int

const (
	FormIdle FormPhase = iota
	FormSubmitting
	FormSucceeded
	FormFailed
)

func (p FormPhase) String() string {
	switch p {
	case FormIdle:
		return "idle"
	case FormSubmitting:
		return "submitting"
	case FormSucceeded:
		return "succeeded"
	case FormFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// FormEvent moves a form between phases.
type FormEvent int

const (
	FormSubmit FormEvent = iota
	FormSuccess
	FormFailure
	FormReset
)

// Next returns the phase after ev.
//
//	idle -submit-> submitting -success-> succeeded -reset-> idle
//	                          -failure-> failed    -reset-> idle
func (p FormPhase) Next(ev FormEvent) (FormPhase, error) {
	switch {
	case p == FormIdle && ev == FormSubmit:
		return FormSubmitting, nil
	case p == FormSubmitting && ev == FormSuccess:
		return FormSucceeded, nil
	case p == FormSubmitting && ev == FormFailure:
		return FormFailed, nil
	case (p == FormSucceeded || p == FormFailed) && ev == FormReset:
		return FormIdle, nil
	}
	return p, fmt.Errorf("%w: form %s on event %d", ErrInvalidTransition, p, ev)
}

// submission runs one submit through the form machine. The returned
// phase is FormSucceeded or FormFailed; the caller resets it after
// rendering the outcome.
type submission struct {
	phase FormPhase
}

func (s *submission) fire(ev FormEvent) error {
	next, err := s.phase.Next(ev)
	if err != nil {
		return err
	}
	s.phase = next
	return nil
}

// run submits op and records its outcome.
func (s *submission) run(op func() error) error {
	if err := s.fire(FormSubmit); err != nil {
		return err
	}
	if err := op(); err != nil {
		_ = s.fire(FormFailure)
		return err
	}
	return s.fire(FormSuccess)
}

// reset returns the machine to idle once the outcome has been shown.
func (s *submission) reset() {
	_ = s.fire(FormReset)
}

// ModalPhase is the lifecycle of a confirmation modal.
type ModalPhase int

const (
	ModalClosed ModalPhase = iota
	ModalOpen
	ModalConfirmed
	ModalCancelled
)

func (p ModalPhase) String() string {
	switch p {
	case ModalClosed:
		return "closed"
	case ModalOpen:
		return "open"
	case ModalConfirmed:
		return "confirmed"
	case ModalCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// ModalEvent moves a modal between phases.
type ModalEvent int

const (
	ModalShow ModalEvent = iota
	ModalConfirm
	ModalCancel
	ModalDismiss
)

// Next returns the phase after ev.
//
//	closed -show-> open -confirm-> confirmed -dismiss-> closed
//	                    -cancel->  cancelled -dismiss-> closed
func (p ModalPhase) Next(ev ModalEvent) (ModalPhase, error) {
	switch {
	case p == ModalClosed && ev == ModalShow:
		return ModalOpen, nil
	case p == ModalOpen && ev == ModalConfirm:
		return ModalConfirmed, nil
	case p == ModalOpen && ev == ModalCancel:
		return ModalCancelled, nil
	case (p == ModalConfirmed || p == ModalCancelled) && ev == ModalDismiss:
		return ModalClosed, nil
	}
	return p, fmt.Errorf("%w: modal %s on event %d", ErrInvalidTransition, p, ev)
}

// modalDecision reads the confirm page's button choice. A POST from the
// confirm page arrives with the modal open.
func modalDecision(confirm string) ModalPhase {
	ev := ModalCancel
	if confirm == "yes" {
		ev = ModalConfirm
	}
	next, _ := ModalOpen.Next(ev)
	return next
}

// setupState decides whether the create-store modal is open. It is
// computed per request from the caller's stores.
type setupState struct {
	Modal ModalPhase
}

func newSetupState(storeCount int) setupState {
	if storeCount > 0 {
		return setupState{Modal: ModalClosed}
	}
	open, _ := ModalClosed.Next(ModalShow)
	return setupState{Modal: open}
}

// Open reports whether the setup modal is shown.
func (s setupState) Open() bool {
	return s.Modal == ModalOpen
}
