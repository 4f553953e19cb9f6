// Package verdict provides deterministic local logic for turning a call's
// violations and criterion assessments into the final grade, risk tiers,
// coaching priorities and positive observations. No LLM calls are made here.
package verdict

import (
	"sort"
	"strconv"

	"github.com/granin/sample20calls/internal/schema"
)

// MaxGrade is the grade of a call with no score-affecting violation.
const MaxGrade = 10

// MaxPositiveObservations caps the positive observation list.
const MaxPositiveObservations = 7

// MaxCoachingPriorities caps the coaching priority list.
const MaxCoachingPriorities = 3

var recommendations = map[string]string{
	"7.2": "Must repeat customer's name/phone/address back and ask 'Верно?' for explicit confirmation",
	"7.3": "Begin greeting within 5 seconds of call start and disconnect within 5 seconds after closing",
	"9.3": "After completing information search, thank customer for waiting: 'Спасибо за ожидание!'",
	"7.1": "Follow script requirements: proper greeting with company/operator name, proper closing with thanks",
	"6.1": "Check in with customer every 40 seconds during long searches to prevent hangup",
	"3.1": "Ensure all customer requests are fully resolved before ending call",
	"3.3": "Never share internal numbers or confidential data without proper authorization",
}

const fallbackRecommendation = "Review criterion requirements and adjust behavior"

var positiveObservations = map[string]string{
	"7.1":  "Professional greeting and closing with proper script adherence",
	"7.3":  "Excellent timing compliance for intro and outro",
	"10.3": "Strong dialogue management and rapport building",
	"10.2": "Information delivered with logical flow and structure",
	"10.6": "Comprehensive and accurate information provision",
	"9.1":  "Efficient information retrieval",
	"1.1":  "Professional, polite tone throughout conversation",
	"3.3":  "Proper handling of confidential information",
}

// Recommendation returns the coaching text for code.
func Recommendation(code string) string {
	if r, ok := recommendations[code]; ok {
		return r
	}
	return fallbackRecommendation
}

// Scoring is the aggregated part of a grading result.
type Scoring struct {
	Final     schema.FinalScoring
	Summary   schema.ViolationsSummary
	Coaching  []schema.CoachingPriority
	Risk      schema.RiskAssessment
	Positives []string
}

// Aggregate applies the lowest-code rule to violations and derives every
// dependent field. A score-affecting violation with confidence below
// reviewBelow requires human review.
func Aggregate(violations []schema.Violation, criteria schema.CriteriaAssessment, reviewBelow float64) Scoring {
	affecting := ScoreAffecting(violations)
	grade, primary := FinalGrade(affecting)
	grades := distinctGrades(affecting)
	review := RequiresReview(affecting, reviewBelow)

	final := schema.FinalScoring{
		FinalGrade:            grade,
		Confidence:            schema.ConfidenceHigh,
		PrimaryViolation:      primary,
		AllViolationGrades:    grades,
		LowestCodeRuleApplied: len(grades) > 1,
		RequiresReview:        review,
	}
	if review {
		final.Confidence = schema.ConfidenceMedium
		final.ReviewReason = schema.StringPtr("Medium confidence violation detected")
	}
	return Scoring{
		Final:     final,
		Summary:   Summarize(violations),
		Coaching:  CoachingPriorities(affecting),
		Risk:      Risk(affecting, review),
		Positives: PositiveObservations(criteria),
	}
}

// ScoreAffecting returns the violations eligible to set the grade.
func ScoreAffecting(violations []schema.Violation) []schema.Violation {
	var out []schema.Violation
	for _, v := range violations {
		if v.ScoreReduction {
			out = append(out, v)
		}
	}
	return out
}

// FinalGrade returns MaxGrade when affecting is empty, and otherwise the
// minimum grade with the code of the first violation reaching it.
func FinalGrade(affecting []schema.Violation) (int, *string) {
	if len(affecting) == 0 {
		return MaxGrade, nil
	}
	best := 0
	for i, v := range affecting {
		if v.Grade < affecting[best].Grade {
			best = i
		}
	}
	return affecting[best].Grade, schema.StringPtr(affecting[best].Code)
}

// RequiresReview reports whether any violation in affecting has confidence
// below threshold.
func RequiresReview(affecting []schema.Violation, threshold float64) bool {
	for _, v := range affecting {
		if v.Confidence < threshold {
			return true
		}
	}
	return false
}

func distinctGrades(affecting []schema.Violation) []int {
	seen := map[int]bool{}
	out := []int{}
	for _, v := range affecting {
		if !seen[v.Grade] {
			seen[v.Grade] = true
			out = append(out, v.Grade)
		}
	}
	sort.Ints(out)
	return out
}

// Risk derives the risk tiers from the score-affecting violations.
func Risk(affecting []schema.Violation, review bool) schema.RiskAssessment {
	var critical, serious, security bool
	for _, v := range affecting {
		critical = critical || v.Grade <= 3
		serious = serious || v.Grade <= 5
		security = security || v.Code == "3.3"
	}
	r := schema.RiskAssessment{
		ComplianceRisk:            schema.RiskLow,
		CustomerSatisfactionRisk:  schema.RiskLow,
		DataSecurityRisk:          schema.RiskLow,
		RequiresSupervisorReview:  critical || review,
		RequiresImmediateCoaching: len(affecting) > 0,
	}
	switch {
	case critical:
		r.ComplianceRisk = schema.RiskCritical
		r.CustomerSatisfactionRisk = schema.RiskHigh
	case serious:
		r.ComplianceRisk = schema.RiskHigh
		r.CustomerSatisfactionRisk = schema.RiskMedium
	case len(affecting) > 0:
		r.ComplianceRisk = schema.RiskMedium
	}
	if security {
		r.DataSecurityRisk = schema.RiskHigh
	}
	return r
}

// CoachingPriorities returns up to MaxCoachingPriorities entries for the
// lowest-grade violations, ascending by grade. Ties keep detection order.
func CoachingPriorities(affecting []schema.Violation) []schema.CoachingPriority {
	sorted := make([]schema.Violation, len(affecting))
	copy(sorted, affecting)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Grade < sorted[j].Grade })
	if len(sorted) > MaxCoachingPriorities {
		sorted = sorted[:MaxCoachingPriorities]
	}
	out := make([]schema.CoachingPriority, 0, len(sorted))
	for i, v := range sorted {
		out = append(out, schema.CoachingPriority{
			Priority:         i + 1,
			Issue:            v.Title,
			Recommendation:   Recommendation(v.Code),
			RelatedCriterion: v.Code,
		})
	}
	return out
}

// PositiveObservations lists the canned observation of every passing
// high-confidence criterion in assessment order, capped at
// MaxPositiveObservations.
func PositiveObservations(criteria schema.CriteriaAssessment) []string {
	out := []string{}
	for _, a := range criteria {
		if a.Status != schema.StatusPass {
			continue
		}
		if a.Confidence != schema.ConfidenceHigh && a.Confidence != schema.ConfidenceVeryHigh {
			continue
		}
		if obs, ok := positiveObservations[a.Code]; ok {
			out = append(out, obs)
		}
		if len(out) == MaxPositiveObservations {
			break
		}
	}
	return out
}

// Summarize counts violations by kind and grade.
func Summarize(violations []schema.Violation) schema.ViolationsSummary {
	s := schema.ViolationsSummary{
		TotalViolations:   len(violations),
		ViolationsByGrade: map[string]int{},
	}
	for _, v := range violations {
		s.ViolationsByGrade[strconv.Itoa(v.Grade)]++
		if v.SOTFlag {
			s.SOTViolations++
		}
		if v.FlagWindow {
			s.FlagOnlyViolations++
		}
		if v.ScoreReduction {
			s.ScoreAffectingViolations++
		}
	}
	return s
}

// BelowThreshold reports whether grade fails a --fail-below threshold.
// A threshold of 0 disables the check.
func BelowThreshold(grade, threshold int) bool {
	return threshold > 0 && grade < threshold
}
