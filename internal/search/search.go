// Package search extracts information-search windows from a transcript: the
// span between an operator announcing a lookup and the first substantive
// answer that follows.
package search

import (
	"fmt"
	"math"

	"github.com/granin/sample20calls/internal/profile"
	"github.com/granin/sample20calls/internal/schema"
	"github.com/granin/sample20calls/internal/transcript"
)

// ImpatienceNote tags customer speech inside an active search window.
const ImpatienceNote = "Customer spoke during search (potential impatience)"

// CheckIn is an utterance observed strictly between announcement and answer.
type CheckIn struct {
	Index   int
	Start   float64
	Text    string
	Speaker transcript.Speaker
	// Note is empty for operator check-ins.
	Note string
}

// Assessment classifies one window duration.
type Assessment struct {
	Status     schema.Status
	Threshold  string
	FlagWindow bool
	// Grade is the rubric grade on violation, 0 otherwise.
	Grade int
	// GradeImpact mirrors the standalone timing report: nil for PASS, 10
	// for FLAG, 9 for VIOLATION.
	GradeImpact  *int
	ExceedsBy    *float64
	CoachingNote string
}

// Window is one merged search.
type Window struct {
	AnnouncementIndex int
	AnswerIndex       int
	Start             float64
	End               float64
	Duration          float64
	AnnouncementText  string
	AnswerText        string
	CheckIns          []CheckIn
	Assessment        Assessment
}

// Extract returns the search windows of t in chronological order.
// Announcements whose start times are within the profile's merge window of
// the previous announcement are folded into one window that starts at the
// first of them. An announcement with no later answer yields no window.
func Extract(t *transcript.Transcript, p profile.Profile) []Window {
	if t == nil {
		return nil
	}
	utts := t.Utterances

	var anns []int
	for i, u := range utts {
		if u.Speaker == transcript.SpeakerAgent && IsAnnouncement(u.Text) {
			anns = append(anns, i)
		}
	}

	var starts []int
	for i := 0; i < len(anns); i++ {
		first := anns[i]
		prev := first
		for i+1 < len(anns) && utts[anns[i+1]].Start-utts[prev].Start <= p.Search.MergeWindow {
			i++
			prev = anns[i]
		}
		starts = append(starts, first)
	}

	var windows []Window
	for _, ai := range starts {
		answer := findAnswer(utts, ai)
		if answer < 0 {
			continue
		}
		ann, ans := utts[ai], utts[answer]
		d := round3(ans.Start - ann.Start)
		windows = append(windows, Window{
			AnnouncementIndex: ai,
			AnswerIndex:       answer,
			Start:             ann.Start,
			End:               ans.Start,
			Duration:          d,
			AnnouncementText:  ann.Text,
			AnswerText:        ans.Text,
			CheckIns:          checkIns(utts, ai, answer),
			Assessment:        Classify(d, p.Search),
		})
	}
	return windows
}

func findAnswer(utts []transcript.Utterance, from int) int {
	for i := from + 1; i < len(utts); i++ {
		u := utts[i]
		if u.Speaker != transcript.SpeakerAgent {
			continue
		}
		if IsAnnouncement(u.Text) || IsCheckIn(u.Text) {
			continue
		}
		if IsAnswer(u.Text) {
			return i
		}
	}
	return -1
}

func checkIns(utts []transcript.Utterance, from, to int) []CheckIn {
	var out []CheckIn
	for j := from + 1; j < to; j++ {
		u := utts[j]
		switch {
		case u.Speaker == transcript.SpeakerAgent && IsCheckIn(u.Text):
			out = append(out, CheckIn{Index: j, Start: u.Start, Text: u.Text, Speaker: u.Speaker})
		case u.Speaker == transcript.SpeakerCustomer:
			out = append(out, CheckIn{Index: j, Start: u.Start, Text: u.Text, Speaker: u.Speaker, Note: ImpatienceNote})
		}
	}
	return out
}

// Classify assesses a search duration against th. A duration equal to a
// threshold falls in the lower band.
func Classify(duration float64, th profile.SearchThresholds) Assessment {
	switch {
	case duration <= th.PassMax:
		return Assessment{
			Status:       schema.StatusPass,
			Threshold:    fmt.Sprintf("%gs", th.PassMax),
			CoachingNote: "Search within acceptable duration",
		}
	case duration <= th.ViolationAbove:
		return Assessment{
			Status:       schema.StatusFlag,
			Threshold:    fmt.Sprintf("%g-%gs flag window", th.PassMax, th.ViolationAbove),
			FlagWindow:   true,
			GradeImpact:  schema.IntPtr(10),
			CoachingNote: fmt.Sprintf("%g-%gs window: flag for improvement, no penalty", th.PassMax, th.ViolationAbove),
		}
	default:
		over := round3(duration - th.ViolationAbove)
		return Assessment{
			Status:       schema.StatusViolation,
			Threshold:    fmt.Sprintf("%gs", th.ViolationAbove),
			Grade:        9,
			GradeImpact:  schema.IntPtr(9),
			ExceedsBy:    schema.FloatPtr(over),
			CoachingNote: fmt.Sprintf("Exceeds %gs threshold by %.1fs (Grade 9)", th.ViolationAbove, over),
		}
	}
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
