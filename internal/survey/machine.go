// Package survey is the questionnaire state machine. A Session moves through
// the collection steps in order and ends in the results state; transitions
// are pure functions returning a new Session.
package survey

import (
	"fightcancer/internal/encoding"
)

// Session is the state of one respondent's questionnaire.
type Session struct {
	State   Step             `json:"state"`
	Answers encoding.Answers `json:"answers"`
}

// New returns a session at the first step with no answers.
func New() Session {
	return Session{State: StepPersonal, Answers: encoding.Answers{}}
}

// Complete reports whether every step has been submitted.
func (s Session) Complete() bool { return s.State == StepResults }

// Advance validates the answers for step and returns the session moved to
// the following state. s is not modified.
func Advance(s Session, step Step, answers map[string]any) (Session, error) {
	if _, ok := specs[step]; !ok {
		if step == StepResults {
			return s, &OutOfOrderError{Expected: s.State, Got: step}
		}
		return s, &UnknownStepError{Step: string(step)}
	}
	if s.State != step {
		return s, &OutOfOrderError{Expected: s.State, Got: step}
	}

	stepAnswers, err := decodeStep(step, answers)
	if err != nil {
		return s, err
	}

	merged := s.Answers.Clone()
	for k, v := range stepAnswers {
		merged[k] = v
	}
	return Session{State: step.next(), Answers: merged}, nil
}

// Reset discards every answer and returns to the first step.
func Reset(Session) Session { return New() }

// Next describes the step the session expects, or reports false once the
// questionnaire is complete. Defaults are replaced by answers already given.
func Next(s Session) (StepSpec, bool) {
	sp, ok := specs[s.State]
	if !ok {
		return StepSpec{}, false
	}
	fields := make([]Field, len(sp.Fields))
	for i, f := range sp.Fields {
		if v, ok := s.Answers[f.Key]; ok {
			f.Default = v
		}
		fields[i] = f
	}
	sp.Fields = fields
	return sp, true
}
