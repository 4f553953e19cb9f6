package rules

import (
	"fmt"

	"github.com/granin/sample20calls/internal/schema"
	"github.com/granin/sample20calls/internal/transcript"
)

const (
	noteViolation     = "See violations_detected for details"
	noteFlag          = "FLAG for improvement only"
	noteNotApplicable = "not applicable"
	noteCheckFailed   = "check failed; manual review required"
)

// Ledger accumulates the findings of one evaluation run. The zero value is
// not usable; create one with NewLedger.
type Ledger struct {
	duration    float64
	violations  []schema.Violation
	assessments map[string]schema.CriterionAssessment
}

// NewLedger returns an empty ledger for a call of the given duration. The
// duration bounds violation end timestamps.
func NewLedger(duration float64) *Ledger {
	return &Ledger{duration: duration, assessments: map[string]schema.CriterionAssessment{}}
}

// Add merges f. Violations are always appended. The first violation of a
// code sets its assessment, replacing an earlier pass; a later
// score-affecting violation upgrades a flag. Passes never overwrite.
func (l *Ledger) Add(f Finding) {
	prev, seen := l.assessments[f.Code]
	switch f.Kind {
	case KindViolation:
		l.violations = append(l.violations, l.violation(f))
		status, note := schema.StatusViolation, noteViolation
		if f.FlagWindow {
			status, note = schema.StatusFlag, noteFlag
		}
		next := schema.CriterionAssessment{
			Code:       f.Code,
			Status:     status,
			Confidence: schema.LevelFor(f.Confidence),
			Evidence:   f.Evidence,
			Note:       schema.StringPtr(note),
		}
		switch {
		case !seen || prev.Status == schema.StatusPass:
			l.assessments[f.Code] = next
		case prev.Status == schema.StatusFlag && status == schema.StatusViolation:
			l.assessments[f.Code] = next
		}
	case KindPass, KindNotApplicable:
		if seen {
			return
		}
		a := schema.CriterionAssessment{
			Code:       f.Code,
			Status:     schema.StatusPass,
			Confidence: f.Level,
			Evidence:   f.Evidence,
		}
		if f.Kind == KindNotApplicable {
			a.Note = schema.StringPtr(noteNotApplicable)
		}
		l.assessments[f.Code] = a
	}
}

// Fail records that the check for code could not complete. An assessment
// already recorded for code is kept.
func (l *Ledger) Fail(code string, cause any) {
	if _, seen := l.assessments[code]; seen {
		return
	}
	l.assessments[code] = schema.CriterionAssessment{
		Code:       code,
		Status:     schema.StatusPass,
		Confidence: schema.ConfidenceLow,
		Evidence:   fmt.Sprintf("check failed: %v", cause),
		Note:       schema.StringPtr(noteCheckFailed),
	}
}

// Violations returns the violations in the order they were added.
func (l *Ledger) Violations() []schema.Violation {
	out := make([]schema.Violation, len(l.violations))
	copy(out, l.violations)
	return out
}

// Criteria returns one assessment per code in the given order. Codes with no
// recorded assessment are filled as not applicable.
func (l *Ledger) Criteria(codes []string) schema.CriteriaAssessment {
	out := make(schema.CriteriaAssessment, 0, len(codes))
	for _, c := range codes {
		a, ok := l.assessments[c]
		if !ok {
			a = schema.CriterionAssessment{
				Code:       c,
				Status:     schema.StatusPass,
				Confidence: schema.ConfidenceHigh,
				Evidence:   "No applicable evidence (criterion not applicable)",
				Note:       schema.StringPtr(noteNotApplicable),
			}
		}
		out = append(out, a)
	}
	return out
}

func (l *Ledger) violation(f Finding) schema.Violation {
	v := schema.Violation{
		Code:           f.Code,
		Grade:          f.Grade,
		Title:          Title(f.Code),
		Severity:       schema.SeverityYellow,
		SOTFlag:        !f.FlagWindow,
		TimestampStart: transcript.FormatOffset(f.Start),
		StartSec:       f.Start,
		Evidence:       f.Evidence,
		Confidence:     f.Confidence,
		FlagWindow:     f.FlagWindow,
		ScoreReduction: f.ScoreReduction,
	}
	if f.FlagWindow {
		v.Severity = schema.SeverityFlagOnly
	}
	if end := f.Start + 10; end < l.duration {
		v.TimestampEnd = schema.StringPtr(transcript.FormatOffset(end))
	}
	return v
}
