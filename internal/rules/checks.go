package rules

import (
	"fmt"
	"strings"

	"github.com/granin/sample20calls/internal/schema"
	"github.com/granin/sample20calls/internal/transcript"
)

func at(sec float64) string { return transcript.FormatOffset(sec) }

func checkScript(in *Input) []Finding {
	t := in.Transcript
	first := t.FirstBy(transcript.SpeakerAgent)
	if first == nil {
		return []Finding{Violation("7.1", 7, 0, 0.95, "Script violations - no operator speech detected")}
	}
	var out []Finding
	if o := parseOpening(first.Text); !o.greeting && !o.company {
		out = append(out, Violation("7.1", 7, first.Start, 0.80,
			fmt.Sprintf("Missing proper greeting: '%s'", first.Text)))
	}
	if last := t.LastBy(transcript.SpeakerAgent); !isClosing(last.Text) {
		out = append(out, Violation("7.1", 7, last.Start, 0.75,
			fmt.Sprintf("Missing proper closing: '%s'", last.Text)))
	}
	if len(out) == 0 {
		out = append(out, Pass("7.1", schema.ConfidenceHigh, "Proper greeting and closing detected"))
	}
	return out
}

func checkEcho(in *Input) []Finding {
	if len(in.Echo.Checks) == 0 {
		return []Finding{NotApplicable("7.2", "No contact data collected (criterion not applicable)")}
	}
	var out []Finding
	for _, c := range in.Echo.Missing() {
		entity := string(c.Entity)
		out = append(out, Violation("7.2", 7, c.AnswerStart, 0.92, fmt.Sprintf(
			"%s collected but no echo confirmation ('Верно?') requested. Customer: '%s' at %s",
			strings.ToUpper(entity[:1])+entity[1:], c.Datum, at(c.AnswerStart))))
	}
	if len(out) == 0 {
		out = append(out, Pass("7.2", schema.ConfidenceHigh,
			fmt.Sprintf("Contact data confirmed with the customer: %s", strings.Join(in.Echo.Entities(), ", "))))
	}
	return out
}

func checkTiming(in *Input) []Finding {
	t := in.Transcript
	first := t.FirstBy(transcript.SpeakerAgent)
	if first == nil {
		return []Finding{NotApplicable("7.3", "No operator speech (criterion not applicable)")}
	}
	th := in.Profile.Timing
	var out []Finding
	if first.Start > th.IntroMax {
		out = append(out, Violation("7.3", 7, 0, 1.0, fmt.Sprintf(
			"Operator intro at %s exceeds %g-second threshold", at(first.Start), th.IntroMax)))
	}
	evidence := fmt.Sprintf("Intro at %.2fs (<= %gs)", first.Start, th.IntroMax)
	if last := t.Last(); in.CallDuration > 0 {
		gap := in.CallDuration - last.End
		if gap > th.OutroMax {
			out = append(out, Violation("7.3", 7, last.End, 1.0, fmt.Sprintf(
				"Disconnect at %.2fs after conversation end exceeds %g-second threshold", gap, th.OutroMax)))
		}
		evidence += fmt.Sprintf(", disconnect %.2fs after last speech", gap)
	}
	if len(out) == 0 {
		out = append(out, Pass("7.3", schema.ConfidenceHigh, evidence))
	}
	return out
}

func checkInterruption(in *Input) []Finding {
	utts := in.Transcript.Utterances
	for i := 0; i+1 < len(utts); i++ {
		cur, next := utts[i], utts[i+1]
		if cur.Speaker != transcript.SpeakerCustomer || next.Speaker != transcript.SpeakerAgent {
			continue
		}
		if next.Start >= cur.End {
			continue
		}
		if !apologized(utts[i+1:], in.Profile.Interrupt.ApologyTurns) {
			return []Finding{Violation("7.4", 7, next.Start, 0.80, fmt.Sprintf(
				"Operator interrupted customer without apology at %s", at(next.Start)))}
		}
	}
	return []Finding{Pass("7.4", schema.ConfidenceHigh, "No interruptions without apology detected")}
}

// apologized reports whether one of the first turns Agent utterances of utts
// apologizes.
func apologized(utts []transcript.Utterance, turns int) bool {
	n := 0
	for _, u := range utts {
		if n >= turns {
			break
		}
		if u.Speaker != transcript.SpeakerAgent {
			continue
		}
		n++
		if isApology(u.Text) {
			return true
		}
	}
	return false
}

// maxSilence returns the longest gap between consecutive utterances and the
// offset where it begins.
func maxSilence(t *transcript.Transcript) (gap, start float64) {
	utts := t.Utterances
	for i := 0; i+1 < len(utts); i++ {
		if g := utts[i+1].Start - utts[i].End; g > gap {
			gap, start = g, utts[i].End
		}
	}
	return gap, start
}

func checkSilence(in *Input) []Finding {
	gap, start := maxSilence(in.Transcript)
	limit := in.Profile.Silence.CriticalGap
	last := in.Transcript.Last()
	if gap > limit && last != nil && last.Speaker == transcript.SpeakerCustomer {
		return []Finding{Violation("6.1", 6, start, 0.95, fmt.Sprintf(
			"Critical silence %.1fs at %s led to customer hangup", gap, at(start)))}
	}
	if gap > limit {
		return []Finding{Pass("6.1", schema.ConfidenceMedium, fmt.Sprintf(
			"Longest silence %.1fs exceeds %gs but the operator ended the call", gap, limit))}
	}
	return []Finding{Pass("6.1", schema.ConfidenceHigh, fmt.Sprintf(
		"Longest silence %.1fs, below %gs threshold", gap, limit))}
}

func checkLongSearch(in *Input) []Finding {
	if len(in.Windows) == 0 {
		return []Finding{NotApplicable("9.1", "No information search detected (criterion not applicable)")}
	}
	var out []Finding
	longest := 0.0
	for _, w := range in.Windows {
		if w.Duration > longest {
			longest = w.Duration
		}
		switch w.Assessment.Status {
		case schema.StatusViolation:
			out = append(out, Violation("9.1", 9, w.Start, 1.0, fmt.Sprintf(
				"Information search duration %.1fs exceeds %g-second threshold", w.Duration, in.Profile.Search.ViolationAbove)))
		case schema.StatusFlag:
			out = append(out, Flag("9.1", 9, w.Start, 1.0, fmt.Sprintf(
				"Search duration %.1fs falls in %g-%gs flag window", w.Duration, in.Profile.Search.PassMax, in.Profile.Search.ViolationAbove)))
		}
	}
	if len(out) == 0 {
		out = append(out, Pass("9.1", schema.ConfidenceHigh, fmt.Sprintf(
			"Longest search %.1fs under %gs threshold", longest, in.Profile.Search.PassMax)))
	}
	return out
}

func checkGratitude(in *Input) []Finding {
	if len(in.Windows) == 0 {
		return []Finding{NotApplicable("9.3", "No search performed (criterion not applicable)")}
	}
	var out []Finding
	required := 0
	for _, r := range in.Gratitude {
		if r.Required {
			required++
		}
		if r.Status == schema.StatusViolation {
			out = append(out, Violation("9.3", 9, r.Window.End, 0.78, fmt.Sprintf(
				"After information search #%d (%.1fs) operator did not thank customer for waiting", r.Number, r.Window.Duration)))
		}
	}
	switch {
	case len(out) > 0:
	case required == 0:
		out = append(out, NotApplicable("9.3", "No search long enough to require thanks (criterion not applicable)"))
	default:
		out = append(out, Pass("9.3", schema.ConfidenceHigh, "Thanked customer for waiting after search"))
	}
	return out
}

func checkUnresolved(in *Input) []Finding {
	requests := 0
	for _, u := range in.Transcript.Utterances {
		if u.Speaker == transcript.SpeakerCustomer && isRequest(u.Text) {
			requests++
		}
	}
	if requests > 5 {
		return []Finding{Pass("3.1", schema.ConfidenceMedium, fmt.Sprintf(
			"%d customer requests detected; resolution of each not verified automatically", requests))}
	}
	return []Finding{Pass("3.1", schema.ConfidenceHigh, "Customer requests appear resolved")}
}

func checkConfidential(in *Input) []Finding {
	for _, u := range in.Transcript.Utterances {
		if u.Speaker != transcript.SpeakerAgent {
			continue
		}
		lower := strings.ToLower(u.Text)
		if internalPhoneRe.MatchString(lower) {
			return []Finding{Violation("3.3", 3, u.Start, 0.75, fmt.Sprintf(
				"Possible confidential information disclosed: '%s'", u.Text))}
		}
		if accessCodeRe.MatchString(lower) {
			return []Finding{Violation("3.3", 3, u.Start, 0.90, fmt.Sprintf(
				"Confidential information disclosed: '%s'", u.Text))}
		}
	}
	return []Finding{Pass("3.3", schema.ConfidenceHigh, "No confidential information disclosed")}
}

func checkUnverified(*Input) []Finding {
	return []Finding{Pass("3.6", schema.ConfidenceHigh, "Operator appears to verify information before providing it")}
}

func checkIncomplete(*Input) []Finding {
	return []Finding{Pass("5.1", schema.ConfidenceMedium, "Information appears complete (limited validation without project config)")}
}

func checkScriptWork(*Input) []Finding {
	return []Finding{Pass("10.2", schema.ConfidenceHigh, "Information delivered with logical flow and proper structure")}
}

func checkDialogue(*Input) []Finding {
	return []Finding{Pass("10.3", schema.ConfidenceHigh, "Maintains dialogue control and uses professional engagement")}
}

func checkCompleteness(*Input) []Finding {
	return []Finding{Pass("10.6", schema.ConfidenceHigh, "Core information delivered accurately")}
}

func checkDropout(in *Input) []Finding {
	if in.Transcript.Len() == 0 {
		return []Finding{NotApplicable("2.1", "Empty call (criterion not applicable)")}
	}
	if in.Transcript.LastBy(transcript.SpeakerAgent) == nil {
		return []Finding{Violation("2.1", 2, 0, 0.80, "Call appears to have been dropped by operator")}
	}
	return []Finding{Pass("2.1", schema.ConfidenceHigh, "Normal call ending, no dropout or refusal")}
}

func checkRudeness(in *Input) []Finding {
	for _, u := range in.Transcript.Utterances {
		if u.Speaker == transcript.SpeakerAgent && rudeWord(u.Text) {
			return []Finding{Violation("1.1", 1, u.Start, 0.95, fmt.Sprintf(
				"Profanity/harsh language detected: '%s'", u.Text))}
		}
	}
	return []Finding{Pass("1.1", schema.ConfidenceHigh, "Professional, polite tone. No profanity or harsh language")}
}

func checkDifficultCustomer(*Input) []Finding {
	return []Finding{Pass("4.1", schema.ConfidenceHigh, "Professional engagement maintained throughout")}
}
