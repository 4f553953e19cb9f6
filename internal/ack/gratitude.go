// Package ack detects acknowledgments the operator owes the customer: thanks
// for waiting after an information search, and an explicit confirmation
// request after collecting contact data.
package ack

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/granin/sample20calls/internal/profile"
	"github.com/granin/sample20calls/internal/schema"
	"github.com/granin/sample20calls/internal/search"
	"github.com/granin/sample20calls/internal/transcript"
)

// Where a gratitude phrase was found relative to the answer.
const (
	LocationSameUtterance = "same_utterance"
	LocationNextUtterance = "next_utterance"
)

// Criterion93 is the criterion label written to gratitude reports.
const Criterion93 = "9.3 - No Thank You for Waiting"

var gratitudePatterns = []*regexp.Regexp{
	regexp.MustCompile(`спасибо\s+за\s+ожидание`),
	regexp.MustCompile(`благодар[юя]\s+(?:вас\s+)?за\s+ожидание`),
	regexp.MustCompile(`спасибо,?\s+что\s+подождали`),
	regexp.MustCompile(`спасибо,?\s+что\s+ждали`),
	regexp.MustCompile(`благодар[юя],?\s+что\s+подождали`),
}

// Gratitude is a located thank-you-for-waiting phrase.
type Gratitude struct {
	Phrase string
	Index  int
	Start  float64
	// After is seconds between the answer start and the phrase.
	After    float64
	Location string
}

// GratitudeResult is the gratitude check of one search window.
type GratitudeResult struct {
	Number        int
	Window        search.Window
	Required      bool
	Rationale     string
	Found         *Gratitude
	Status        schema.Status
	ViolationNote string
}

// MatchGratitude returns the gratitude phrase in text, or "".
func MatchGratitude(text string) string {
	lower := strings.ToLower(text)
	for _, re := range gratitudePatterns {
		if m := re.FindString(lower); m != "" {
			return m
		}
	}
	return ""
}

// FindGratitude looks for thanks in the answer utterance of w, then in up to
// LookaheadTurns later Agent utterances that start within LookaheadSeconds
// of the answer.
func FindGratitude(t *transcript.Transcript, w search.Window, p profile.Profile) *Gratitude {
	utts := t.Utterances
	if w.AnswerIndex < 0 || w.AnswerIndex >= len(utts) {
		return nil
	}
	ans := utts[w.AnswerIndex]
	if m := MatchGratitude(ans.Text); m != "" {
		return &Gratitude{Phrase: m, Index: ans.Index, Start: ans.Start, Location: LocationSameUtterance}
	}
	horizon := ans.Start + p.Gratitude.LookaheadSeconds
	turns := 0
	for i := w.AnswerIndex + 1; i < len(utts) && turns < p.Gratitude.LookaheadTurns; i++ {
		u := utts[i]
		if u.Speaker != transcript.SpeakerAgent {
			continue
		}
		if u.Start > horizon {
			break
		}
		turns++
		if m := MatchGratitude(u.Text); m != "" {
			return &Gratitude{
				Phrase:   m,
				Index:    u.Index,
				Start:    u.Start,
				After:    round3(u.Start - ans.Start),
				Location: LocationNextUtterance,
			}
		}
	}
	return nil
}

// CheckGratitude evaluates every window. Thanks are required when the
// profile always requires them or the window is longer than the threshold.
func CheckGratitude(t *transcript.Transcript, windows []search.Window, p profile.Profile) []GratitudeResult {
	out := make([]GratitudeResult, 0, len(windows))
	for i, w := range windows {
		r := GratitudeResult{Number: i + 1, Window: w, Status: schema.StatusPass}
		switch {
		case p.Gratitude.AlwaysRequired:
			r.Required = true
			r.Rationale = "Profile requires gratitude after every search"
		case w.Duration > p.Gratitude.Threshold:
			r.Required = true
			r.Rationale = fmt.Sprintf("Search duration %.1fs > %gs threshold", w.Duration, p.Gratitude.Threshold)
		default:
			r.Rationale = fmt.Sprintf("Search duration %.1fs <= %gs threshold", w.Duration, p.Gratitude.Threshold)
		}
		if r.Required {
			r.Found = FindGratitude(t, w, p)
			if r.Found == nil {
				r.Status = schema.StatusViolation
				r.ViolationNote = fmt.Sprintf("Search duration %.1fs requires gratitude, but none found after answer delivery.", w.Duration)
			}
		}
		out = append(out, r)
	}
	return out
}

// GratitudeReport renders results as the standalone gratitude extraction.
func GratitudeReport(callID string, results []GratitudeResult) schema.GratitudeReport {
	rep := schema.GratitudeReport{
		CallID:   callID,
		Searches: make([]schema.GratitudeRecord, 0, len(results)),
		Summary: schema.GratitudeSummary{
			TotalSearches:          len(results),
			ViolationSearchNumbers: []int{},
		},
	}
	for _, r := range results {
		gc := schema.GratitudeCheck{
			Required:   r.Required,
			Rationale:  r.Rationale,
			Assessment: r.Status,
		}
		if r.Found != nil {
			gc.GratitudeFound = true
			gc.GratitudePhrase = schema.StringPtr(r.Found.Phrase)
			gc.GratitudeTimestamp = schema.StringPtr(transcript.FormatClock(r.Found.Start))
			gc.TimeAfterSearch = schema.FloatPtr(r.Found.After)
			gc.Location = schema.StringPtr(r.Found.Location)
			rep.Summary.SearchesWithGratitude++
		}
		if r.ViolationNote != "" {
			gc.ViolationNote = schema.StringPtr(r.ViolationNote)
		}
		if r.Required {
			rep.Summary.SearchesRequiringGratitude++
		}
		if r.Status == schema.StatusViolation {
			rep.Summary.Violations++
			rep.Summary.ViolationSearchNumbers = append(rep.Summary.ViolationSearchNumbers, r.Number)
		}
		rep.Searches = append(rep.Searches, schema.GratitudeRecord{
			SearchNumber:    r.Number,
			DurationSeconds: r.Window.Duration,
			EndTimestamp:    transcript.FormatClock(r.Window.End),
			EndPhrase:       r.Window.AnswerText,
			GratitudeCheck:  gc,
		})
	}
	final := schema.FinalAssessment{
		Criterion:       Criterion93,
		Status:          schema.StatusPass,
		GradeImpact:     10,
		ViolationsFound: rep.Summary.Violations,
		Note:            "All searches properly acknowledged",
	}
	if rep.Summary.Violations > 0 {
		final.Status = schema.StatusViolation
		final.GradeImpact = 9
		final.Note = fmt.Sprintf("%d search(es) without required gratitude", rep.Summary.Violations)
	}
	rep.FinalAssessment = final
	return rep
}
