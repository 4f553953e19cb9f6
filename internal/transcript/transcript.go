// Package transcript loads time-coded call transcripts into an ordered
// sequence of speaker-attributed utterances.
package transcript

// Speaker identifies who produced an utterance.
type Speaker string

const (
	SpeakerAgent    Speaker = "Agent"
	SpeakerCustomer Speaker = "Customer"
	SpeakerUnknown  Speaker = "Unknown"
)

// Utterance is one speech turn. It is produced once by the loader and must be
// treated as immutable afterwards.
type Utterance struct {
	// Index is the position in the transcript. It is stable and used as a
	// join key by reports.
	Index int
	// Cue is the cue number printed in the source file, or 0 when absent.
	Cue     int
	Speaker Speaker
	Start   float64 // seconds
	End     float64 // seconds, End >= Start
	Text    string
	// Inferred is true when Speaker came from the role heuristic rather than
	// an explicit tag.
	Inferred bool
}

// SkippedCue records a cue that could not be turned into an utterance.
type SkippedCue struct {
	Line   int
	Reason string
}

// Transcript is the ordered utterance sequence of a single call. Insertion
// order is chronological order; consecutive turns of one speaker are allowed.
type Transcript struct {
	Utterances []Utterance
	Skipped    []SkippedCue
}

// Len returns the number of utterances.
func (t *Transcript) Len() int { return len(t.Utterances) }

// Duration returns the end offset of the final utterance.
func (t *Transcript) Duration() float64 {
	if len(t.Utterances) == 0 {
		return 0
	}
	return t.Utterances[len(t.Utterances)-1].End
}

// Last returns the final utterance, or nil for an empty transcript.
func (t *Transcript) Last() *Utterance {
	if len(t.Utterances) == 0 {
		return nil
	}
	return &t.Utterances[len(t.Utterances)-1]
}

// FirstBy returns the first utterance by s, or nil.
func (t *Transcript) FirstBy(s Speaker) *Utterance {
	for i := range t.Utterances {
		if t.Utterances[i].Speaker == s {
			return &t.Utterances[i]
		}
	}
	return nil
}

// LastBy returns the last utterance by s, or nil.
func (t *Transcript) LastBy(s Speaker) *Utterance {
	for i := len(t.Utterances) - 1; i >= 0; i-- {
		if t.Utterances[i].Speaker == s {
			return &t.Utterances[i]
		}
	}
	return nil
}

// InferredCount returns how many utterances had their speaker inferred.
func (t *Transcript) InferredCount() int {
	n := 0
	for _, u := range t.Utterances {
		if u.Inferred {
			n++
		}
	}
	return n
}

// New builds a transcript from utts in order, assigning Index and clamping
// inverted cue times. Empty speakers are resolved with the role heuristic.
func New(utts ...Utterance) *Transcript {
	out := make([]Utterance, len(utts))
	copy(out, utts)
	for i := range out {
		out[i].Index = i
		if out[i].End < out[i].Start {
			out[i].End = out[i].Start
		}
	}
	resolveSpeakers(out)
	return &Transcript{Utterances: out}
}
