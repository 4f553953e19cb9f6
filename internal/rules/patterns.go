package rules

import (
	"math"
	"strings"

	"github.com/granin/sample20calls/internal/schema"
	"github.com/granin/sample20calls/internal/transcript"
)

// Patterns derives the behavior snapshots reported alongside the verdict.
// Every block is filled; fields that do not apply are nil or zero.
func Patterns(in *Input) schema.DetectedPatterns {
	return schema.DetectedPatterns{
		SearchPatterns:     searchPatterns(in),
		TimingCompliance:   timingCompliance(in),
		EchoMethodPatterns: echoPatterns(in),
		ScriptCompliance:   scriptCompliance(in),
	}
}

func searchPatterns(in *Input) schema.SearchPatterns {
	sp := schema.SearchPatterns{
		SearchAnnounced: len(in.Windows) > 0,
		SearchCount:     len(in.Windows),
	}
	for _, w := range in.Windows {
		if sp.SearchDurationSec == nil || w.Duration > *sp.SearchDurationSec {
			sp.SearchDurationSec = schema.FloatPtr(w.Duration)
		}
		sp.CustomerCheckIns += len(w.CheckIns)
	}
	for _, r := range in.Gratitude {
		if r.Found != nil {
			sp.ThankYouAfterSearch = true
		}
	}
	return sp
}

func timingCompliance(in *Input) schema.TimingCompliance {
	var tc schema.TimingCompliance
	t := in.Transcript
	if first := t.FirstBy(transcript.SpeakerAgent); first != nil {
		tc.IntroTimeSec = schema.FloatPtr(first.Start)
		tc.IntroWithin5s = schema.BoolPtr(first.Start <= in.Profile.Timing.IntroMax)
	}
	if last := t.Last(); last != nil && in.CallDuration > 0 {
		gap := round3(in.CallDuration - last.End)
		tc.DisconnectTimeSec = schema.FloatPtr(gap)
		tc.DisconnectWithin5s = schema.BoolPtr(gap <= in.Profile.Timing.OutroMax)
	}
	gap, start := maxSilence(t)
	tc.MaxSilenceSec = round3(gap)
	if gap > 0 {
		tc.MaxSilenceStartSec = schema.FloatPtr(start)
	}
	return tc
}

func echoPatterns(in *Input) schema.EchoMethodPatterns {
	return schema.EchoMethodPatterns{
		ContactDataCaptured:  len(in.Echo.Checks) > 0,
		EntitiesCollected:    in.Echo.Entities(),
		EchoPerformed:        in.Echo.Echoed(),
		ConfirmationReceived: in.Echo.Confirmed(),
	}
}

func scriptCompliance(in *Input) schema.ScriptCompliance {
	var sc schema.ScriptCompliance
	t := in.Transcript
	if first := t.FirstBy(transcript.SpeakerAgent); first != nil {
		o := parseOpening(first.Text)
		sc.GreetingPresent = o.greeting
		sc.CompanyNameMentioned = o.company
		sc.OperatorNameMentioned = o.name
		sc.OfferOfHelp = o.offer
	}
	if last := t.LastBy(transcript.SpeakerAgent); last != nil {
		sc.ClosingPresent = isClosing(last.Text)
	}
	name := strings.ToLower(in.Echo.CustomerName())
	for _, u := range t.Utterances {
		if u.Speaker != transcript.SpeakerAgent {
			continue
		}
		lower := strings.ToLower(u.Text)
		if name != "" && strings.Contains(lower, name) {
			sc.CustomerNameUsed = true
		}
		if orientationRe.MatchString(lower) {
			sc.CustomerOrientationQuestions++
		}
	}
	return sc
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
