// Package rules implements the rubric criterion checks. Each check reads an
// Input and returns findings; a Ledger merges the findings of one run into
// violations and exactly one assessment per criterion.
package rules

import "github.com/granin/sample20calls/internal/schema"

// Kind tags a Finding.
type Kind int

const (
	// KindPass means the criterion was applicable and met.
	KindPass Kind = iota
	// KindNotApplicable means nothing in the call exercised the criterion.
	KindNotApplicable
	// KindViolation means the criterion was breached or flagged.
	KindViolation
)

func (k Kind) String() string {
	switch k {
	case KindPass:
		return "pass"
	case KindNotApplicable:
		return "not_applicable"
	case KindViolation:
		return "violation"
	default:
		return "unknown"
	}
}

// Finding is the result of one sub-rule of a check.
type Finding struct {
	Kind     Kind
	Code     string
	Evidence string

	// Level is the confidence of a pass.
	Level schema.ConfidenceLevel

	// Violation fields.
	Grade          int
	Start          float64
	Confidence     float64
	ScoreReduction bool
	FlagWindow     bool
}

// Pass records a met criterion.
func Pass(code string, level schema.ConfidenceLevel, evidence string) Finding {
	return Finding{Kind: KindPass, Code: code, Level: level, Evidence: evidence}
}

// NotApplicable records a criterion with nothing to assess.
func NotApplicable(code, evidence string) Finding {
	return Finding{Kind: KindNotApplicable, Code: code, Level: schema.ConfidenceHigh, Evidence: evidence}
}

// Violation records a score-affecting breach at offset start.
func Violation(code string, grade int, start, confidence float64, evidence string) Finding {
	return Finding{
		Kind:           KindViolation,
		Code:           code,
		Grade:          grade,
		Start:          start,
		Confidence:     confidence,
		Evidence:       evidence,
		ScoreReduction: true,
	}
}

// Flag records a coaching-only observation that never moves the grade.
func Flag(code string, grade int, start, confidence float64, evidence string) Finding {
	return Finding{
		Kind:       KindViolation,
		Code:       code,
		Grade:      grade,
		Start:      start,
		Confidence: confidence,
		Evidence:   evidence,
		FlagWindow: true,
	}
}
