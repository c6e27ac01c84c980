// Package biometric defines the user-presence check that guards a silent
// session resume.
//
// Platform capability detection and the prompt itself are external; this
// package only fixes the contract.
package biometric

import "context"

// Gate asks the device whether biometric confirmation is possible and prompts
// the user for it.
type Gate interface {
	// Available reports device capability.
	Available(ctx context.Context) bool

	// Prompt blocks until the user confirms or dismisses. confirmed is false
	// when the user declined. A non-nil error means the prompt itself failed.
	Prompt(ctx context.Context, reason string) (confirmed bool, err error)
}

// Unsupported is a [Gate] for devices without biometric hardware.
type Unsupported struct{}

func (Unsupported) Available(context.Context) bool { return false }

func (Unsupported) Prompt(context.Context, string) (bool, error) { return false, nil }

// Func adapts a pair of functions to [Gate]. A nil AvailableFunc reports true;
// a nil PromptFunc declines.
type Func struct {
	AvailableFunc func(ctx context.Context) bool
	PromptFunc    func(ctx context.Context, reason string) (bool, error)
}

func (f Func) Available(ctx context.Context) bool {
	if f.AvailableFunc == nil {
		return true
	}
	return f.AvailableFunc(ctx)
}

func (f Func) Prompt(ctx context.Context, reason string) (bool, error) {
	if f.PromptFunc == nil {
		return false, nil
	}
	return f.PromptFunc(ctx, reason)
}

// Scripted is a [Gate] that replays a fixed sequence of prompt answers. It is
// meant for tests and the CLI's non-interactive mode. Once the sequence is
// exhausted every prompt declines.
type Scripted struct {
	answers []bool
	next    int
	Prompts int
}

// NewScripted returns a [Scripted] gate answering in order.
func NewScripted(answers ...bool) *Scripted {
	return &Scripted{answers: answers}
}

func (s *Scripted) Available(context.Context) bool { return true }

func (s *Scripted) Prompt(context.Context, string) (bool, error) {
	s.Prompts++
	if s.next >= len(s.answers) {
		return false, nil
	}
	answer := s.answers[s.next]
	s.next++
	return answer, nil
}
