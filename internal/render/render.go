// Package render produces output from a fully assembled grading result and
// the auxiliary timing and gratitude reports.
package render

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/granin/sample20calls/internal/schema"
	"github.com/granin/sample20calls/internal/transcript"
)

// JSON produces a pretty-printed JSON representation of v, which is a
// grading result or one of the report types. Cyrillic text is written as
// UTF-8, not escaped.
func JSON(v any) ([]byte, error) {
	if v == nil {
		return nil, fmt.Errorf("render: nil value")
	}
	var sb strings.Builder
	enc := json.NewEncoder(&sb)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("render: json marshal: %w", err)
	}
	return []byte(sb.String()), nil
}

// Markdown produces a Markdown report of a grading result suitable for a
// supervisor review. Every violation and every criterion code appears in
// the output.
func Markdown(r *schema.GradingResult) string {
	if r == nil {
		return ""
	}
	var sb strings.Builder
	md := r.CallMetadata
	fs := r.FinalScoring

	fmt.Fprintf(&sb, "## Call Grading: %s\n\n", md.CallID)
	fmt.Fprintf(&sb, "**Final grade:** %d/10  \n", fs.FinalGrade)
	if fs.PrimaryViolation != nil {
		fmt.Fprintf(&sb, "**Primary violation:** %s  \n", *fs.PrimaryViolation)
	}
	fmt.Fprintf(&sb, "**Confidence:** %s  \n", fs.Confidence)
	fmt.Fprintf(&sb, "**Duration:** %.1fs | **Operator:** %s | **Customer:** %s  \n",
		md.DurationSeconds, deref(md.OperatorName), deref(md.CustomerName))
	fmt.Fprintf(&sb, "**Evaluated:** %s (%s, profile %s)\n\n", md.EvaluationDate, md.EvaluationSystem, md.Profile)
	if fs.RequiresReview {
		fmt.Fprintf(&sb, "> Requires review: %s\n\n", deref(fs.ReviewReason))
	}

	if len(r.Violations) > 0 {
		sb.WriteString("## Violations\n\n")
		sb.WriteString("| Code | Grade | Title | At | Confidence | Kind | Evidence |\n")
		sb.WriteString("|---|---|---|---|---|---|---|\n")
		for _, v := range r.Violations {
			kind := "score"
			if v.FlagWindow {
				kind = "flag"
			}
			fmt.Fprintf(&sb, "| %s | %d | %s | %s | %.2f | %s | %s |\n",
				v.Code, v.Grade, mdEscape(v.Title), v.TimestampStart, v.Confidence, kind, mdEscape(v.Evidence))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("## Criteria\n\n")
	sb.WriteString("| Code | Status | Confidence | Evidence |\n")
	sb.WriteString("|---|---|---|---|\n")
	for _, a := range r.CriteriaAssessment {
		fmt.Fprintf(&sb, "| %s | %s | %s | %s |\n", a.Code, a.Status, a.Confidence, mdEscape(a.Evidence))
	}
	sb.WriteString("\n")

	if len(r.CoachingPriorities) > 0 {
		sb.WriteString("## Coaching Priorities\n\n")
		for _, c := range r.CoachingPriorities {
			fmt.Fprintf(&sb, "%d. **%s** (%s): %s\n", c.Priority, c.Issue, c.RelatedCriterion, c.Recommendation)
		}
		sb.WriteString("\n")
	}

	ra := r.RiskAssessment
	sb.WriteString("## Risk\n\n")
	fmt.Fprintf(&sb, "- Compliance: %s\n- Customer satisfaction: %s\n- Data security: %s\n",
		ra.ComplianceRisk, ra.CustomerSatisfactionRisk, ra.DataSecurityRisk)
	fmt.Fprintf(&sb, "- Supervisor review: %s\n- Immediate coaching: %s\n\n",
		yesNo(ra.RequiresSupervisorReview), yesNo(ra.RequiresImmediateCoaching))

	if len(r.PositiveObservations) > 0 {
		sb.WriteString("## Positive Observations\n\n")
		for _, o := range r.PositiveObservations {
			fmt.Fprintf(&sb, "- %s\n", o)
		}
		sb.WriteString("\n")
	}

	dq := r.DataQuality
	sb.WriteString("## Data Quality\n\n")
	fmt.Fprintf(&sb, "Sources: %s | Quality: %s | Utterances: %d | Inferred speakers: %d | Skipped cues: %d\n",
		strings.Join(dq.DataSourcesUsed, ", "), dq.TranscriptionQuality, dq.UtteranceCount, dq.InferredSpeakers, dq.SkippedCues)
	if dq.ConfidenceNotes != nil {
		fmt.Fprintf(&sb, "\n_%s_\n", *dq.ConfidenceNotes)
	}
	return sb.String()
}

// GradingContext produces the consolidated Markdown context handed to a
// human or model grader: pre-computed 9.1 and 9.3 assessments, grading
// instructions and the full transcript. Either report may be nil.
func GradingContext(callID string, t *transcript.Transcript, timing *schema.TimingReport, gratitude *schema.GratitudeReport) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Grading Context for %s\n\n", strings.ToUpper(callID))
	sb.WriteString("**Instructions**: Use the pre-computed timing and gratitude assessments below for criteria 9.1 and 9.3. ")
	sb.WriteString("Grade all other criteria by reading the transcript.\n\n---\n\n")

	sb.WriteString("## PRE-COMPUTED ASSESSMENTS (Use These for 9.1 and 9.3)\n\n")
	sb.WriteString("### Criterion 9.1 - Long Information Search\n\n")
	writeTiming(&sb, timing)
	sb.WriteString("### Criterion 9.3 - No Thank You for Waiting\n\n")
	writeGratitude(&sb, gratitude)

	sb.WriteString("---\n\n## GRADING INSTRUCTIONS\n\n")
	sb.WriteString("1. **For Criterion 9.1**: Use the pre-computed STATUS and GRADE IMPACT above. Copy the evidence from search details.\n")
	sb.WriteString("2. **For Criterion 9.3**: Use the pre-computed STATUS and GRADE IMPACT above. Copy the violation details if any.\n")
	sb.WriteString("3. **For all other criteria** (7.1, 7.2, 7.3, 7.4, etc.): Grade by reading the transcript below.\n")
	sb.WriteString("4. **Calculate final grade**: Apply the \"lowest code\" principle: final grade = minimum of all violation grades.\n\n")

	sb.WriteString("---\n\n## FULL TRANSCRIPT\n\n```\n")
	if t != nil {
		for _, u := range t.Utterances {
			fmt.Fprintf(&sb, "[%s] %s: %s\n", transcript.FormatOffset(u.Start), u.Speaker, u.Text)
		}
	}
	sb.WriteString("```\n")
	return sb.String()
}

func writeTiming(sb *strings.Builder, rep *schema.TimingReport) {
	if rep == nil {
		sb.WriteString("**ERROR**: Timing data not available.\n\n")
		return
	}
	fmt.Fprintf(sb, "**STATUS**: %s\n**GRADE IMPACT**: %d\n\n", rep.FinalAssessment.Status, rep.FinalAssessment.GradeImpact)
	if rep.TotalSearches == 0 {
		sb.WriteString("**NO SEARCHES DETECTED**\n\n")
		sb.WriteString("**ACTION**: Review the transcript and grade 9.1 manually; unusual search phrasing is not detected.\n\n")
		return
	}
	fmt.Fprintf(sb, "**SEARCHES DETECTED**: %d\n\n", rep.TotalSearches)
	for _, s := range rep.Searches {
		fmt.Fprintf(sb, "- **Search #%d**: %.1fs → %s\n", s.SearchNumber, s.DurationSeconds, s.Assessment.Status)
		fmt.Fprintf(sb, "  - Start: %s - %q\n", s.StartTimestamp, s.StartPhrase)
		fmt.Fprintf(sb, "  - End: %s - %q\n", s.EndTimestamp, s.EndPhrase)
		if len(s.CheckIns) > 0 {
			fmt.Fprintf(sb, "  - Check-ins: %d\n", len(s.CheckIns))
			for _, ci := range s.CheckIns {
				fmt.Fprintf(sb, "    - %s: %s\n", ci.Timestamp, ci.Phrase)
			}
		}
	}
	sb.WriteString("\n")
}

func writeGratitude(sb *strings.Builder, rep *schema.GratitudeReport) {
	if rep == nil {
		sb.WriteString("**ERROR**: Gratitude data not available.\n\n")
		return
	}
	fmt.Fprintf(sb, "**STATUS**: %s\n**GRADE IMPACT**: %d\n\n", rep.FinalAssessment.Status, rep.FinalAssessment.GradeImpact)
	fmt.Fprintf(sb, "**SEARCHES REQUIRING GRATITUDE**: %d\n", rep.Summary.SearchesRequiringGratitude)
	fmt.Fprintf(sb, "**GRATITUDE PHRASES DETECTED**: %d\n", rep.Summary.SearchesWithGratitude)
	fmt.Fprintf(sb, "**VIOLATIONS**: %d\n\n", rep.Summary.Violations)
	if rep.Summary.Violations == 0 {
		return
	}
	sb.WriteString("**VIOLATION DETAILS**:\n")
	for _, s := range rep.Searches {
		if s.GratitudeCheck.Assessment != schema.StatusViolation {
			continue
		}
		fmt.Fprintf(sb, "- Search #%d (%.1fs): %s\n", s.SearchNumber, s.DurationSeconds, deref(s.GratitudeCheck.ViolationNote))
	}
	sb.WriteString("\n")
}

func deref(s *string) string {
	if s == nil {
		return "n/a"
	}
	return *s
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// mdEscape replaces characters that would break Markdown table cells.
func mdEscape(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", "")
	return s
}
