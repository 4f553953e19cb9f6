package search

import (
	"fmt"
	"math"

	"github.com/granin/sample20calls/internal/schema"
	"github.com/granin/sample20calls/internal/transcript"
)

// Criterion91 is the criterion label written to timing reports.
const Criterion91 = "9.1 - Long Information Search"

// Report renders windows as the standalone timing extraction for callID.
func Report(callID string, t *transcript.Transcript, windows []Window) schema.TimingReport {
	rep := schema.TimingReport{
		CallID:        callID,
		TotalSearches: len(windows),
		Searches:      make([]schema.SearchRecord, 0, len(windows)),
	}
	for i, w := range windows {
		ann, ans := t.Utterances[w.AnnouncementIndex], t.Utterances[w.AnswerIndex]
		rec := schema.SearchRecord{
			SearchNumber:      i + 1,
			StartTimestamp:    transcript.FormatClock(w.Start),
			StartLineNumber:   LineNumber(ann),
			StartPhrase:       ann.Text,
			StartSpeaker:      string(ann.Speaker),
			EndTimestamp:      transcript.FormatClock(w.End),
			EndLineNumber:     LineNumber(ans),
			EndPhrase:         ans.Text,
			EndSpeaker:        string(ans.Speaker),
			DurationSeconds:   w.Duration,
			DurationFormatted: FormatDuration(w.Duration),
			CheckIns:          make([]schema.CheckInRecord, 0, len(w.CheckIns)),
			Assessment: schema.SearchAssessment{
				Status:             w.Assessment.Status,
				ThresholdApplied:   w.Assessment.Threshold,
				FlagWindow:         w.Assessment.FlagWindow,
				GradeImpact:        w.Assessment.GradeImpact,
				ExceedsThresholdBy: w.Assessment.ExceedsBy,
				CoachingNote:       w.Assessment.CoachingNote,
			},
		}
		for _, c := range w.CheckIns {
			ci := schema.CheckInRecord{
				Timestamp:  transcript.FormatClock(c.Start),
				Phrase:     c.Text,
				Speaker:    string(c.Speaker),
				LineNumber: LineNumber(t.Utterances[c.Index]),
			}
			if c.Note != "" {
				ci.Note = schema.StringPtr(c.Note)
			}
			rec.CheckIns = append(rec.CheckIns, ci)
		}
		rep.Searches = append(rep.Searches, rec)

		rep.Summary.TotalDurationAllSearches += w.Duration
		rep.Summary.LongestSearch = math.Max(rep.Summary.LongestSearch, w.Duration)
		switch w.Assessment.Status {
		case schema.StatusViolation:
			rep.Summary.ViolationsCount++
		case schema.StatusFlag:
			rep.Summary.FlagCount++
		default:
			rep.Summary.PassCount++
		}
	}
	rep.Summary.TotalDurationAllSearches = round3(rep.Summary.TotalDurationAllSearches)

	final := schema.FinalAssessment{
		Criterion:       Criterion91,
		Status:          schema.StatusPass,
		GradeImpact:     10,
		FlagForCoaching: rep.Summary.FlagCount > 0 || rep.Summary.ViolationsCount > 0,
	}
	switch {
	case rep.Summary.ViolationsCount > 0:
		final.Status = schema.StatusViolation
		final.GradeImpact = 9
	case rep.Summary.FlagCount > 0:
		final.Status = schema.StatusFlag
	}
	rep.FinalAssessment = final
	return rep
}

// LineNumber is the cue number of u, or its 1-based position when the
// source carried no cue numbers.
func LineNumber(u transcript.Utterance) int {
	if u.Cue > 0 {
		return u.Cue
	}
	return u.Index + 1
}

// FormatDuration renders seconds as "52.0s" or "1m 12.5s".
func FormatDuration(sec float64) string {
	if sec >= 60 {
		m := math.Floor(sec / 60)
		return fmt.Sprintf("%dm %.1fs", int(m), sec-m*60)
	}
	return fmt.Sprintf("%.1fs", sec)
}
