package transcript

import "strings"

// agentMarkers are greeting and offer-of-help fragments that identify the
// operator when a cue carries no role tag.
var agentMarkers = []string{"здравствуй", "компания", "зовут", "помочь", "слушаю"}

// resolveSpeakers fills in missing roles. A turn containing an agent marker
// is Agent; otherwise the role alternates from the previous turn, and the
// first unresolved turn defaults to Agent. The result is a heuristic only.
func resolveSpeakers(utts []Utterance) {
	for i := range utts {
		u := &utts[i]
		if u.Speaker != "" {
			continue
		}
		u.Inferred = true
		if IsAgentMarked(u.Text) {
			u.Speaker = SpeakerAgent
			continue
		}
		if i > 0 && utts[i-1].Speaker == SpeakerAgent {
			u.Speaker = SpeakerCustomer
		} else {
			u.Speaker = SpeakerAgent
		}
	}
}

// IsAgentMarked reports whether text contains one of the operator markers.
func IsAgentMarked(text string) bool {
	lower := strings.ToLower(text)
	for _, m := range agentMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}
