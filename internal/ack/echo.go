package ack

import (
	"math"
	"regexp"
	"strings"
	"unicode"

	"github.com/antzucaro/matchr"

	"github.com/granin/sample20calls/internal/profile"
	"github.com/granin/sample20calls/internal/transcript"
)

// Entity is a kind of contact datum the operator may collect.
type Entity string

const (
	EntityName    Entity = "name"
	EntityPhone   Entity = "phone"
	EntityAddress Entity = "address"
	EntityEmail   Entity = "email"
)

var elicitations = []struct {
	entity Entity
	re     *regexp.Regexp
}{
	{EntityName, regexp.MustCompile(lb + `(?:как вас зовут|ваше имя|представьтесь)`)},
	{EntityPhone, regexp.MustCompile(lb + `(?:номер телефон|ваш номер|контактный номер)`)},
	{EntityAddress, regexp.MustCompile(lb + `(?:адрес|где находитесь|откуда звоните)`)},
	// "почт" alone would also match "почти".
	{EntityEmail, regexp.MustCompile(lb + `(?:email|почт(?:а|у|ы|е|ой|ов\p{L}*)` + rb + `|электронн)`)},
}

const (
	lb = `(?:^|[^\p{L}\p{N}])`
	rb = `(?:$|[^\p{L}\p{N}])`
)

var confirmationPatterns = []*regexp.Regexp{
	regexp.MustCompile(lb + `верно`),
	regexp.MustCompile(lb + `правильно`),
	regexp.MustCompile(lb + `подтверд`),
	regexp.MustCompile(lb + `так\s*\?`),
	regexp.MustCompile(lb + `(?:все|всё)\s+так` + rb),
}

// echoStopWords are frequent reply words that say nothing about the datum.
var echoStopWords = map[string]bool{
	"меня": true, "зовут": true, "мой": true, "моя": true, "номер": true,
	"телефон": true, "адрес": true, "почта": true, "улица": true, "это": true,
	"пожалуйста": true, "конечно": true, "хорошо": true, "вот": true,
}

// EchoCheck is one contact-data collection.
type EchoCheck struct {
	Entity Entity
	// RequestIndex is the Agent utterance asking for the datum.
	RequestIndex int
	// AnswerIndex is the Customer utterance giving it.
	AnswerIndex int
	AnswerStart float64
	Datum       string
	// Echoed is true when the operator repeated the datum back.
	Echoed bool
	// Confirmed is true when the operator asked for confirmation.
	Confirmed    bool
	ConfirmIndex int
}

// EchoReport collects every contact-data collection in a call.
type EchoReport struct {
	Checks []EchoCheck
}

// IsConfirmationRequest reports whether text asks the customer to confirm.
func IsConfirmationRequest(text string) bool {
	lower := strings.ToLower(text)
	for _, re := range confirmationPatterns {
		if re.MatchString(lower) {
			return true
		}
	}
	return false
}

// DetectEcho finds each Agent request for contact data, the Customer answer
// within the profile's answer window, and whether one of the following Agent
// turns echoes the datum or asks for confirmation.
func DetectEcho(t *transcript.Transcript, p profile.Profile) EchoReport {
	var rep EchoReport
	utts := t.Utterances
	for i, u := range utts {
		if u.Speaker != transcript.SpeakerAgent {
			continue
		}
		lower := strings.ToLower(u.Text)
		for _, el := range elicitations {
			if !el.re.MatchString(lower) {
				continue
			}
			j := nextCustomer(utts, i, p.Echo.AnswerWindow)
			if j < 0 {
				continue
			}
			c := EchoCheck{
				Entity:       el.entity,
				RequestIndex: i,
				AnswerIndex:  j,
				AnswerStart:  utts[j].Start,
				Datum:        utts[j].Text,
				ConfirmIndex: -1,
			}
			turns := 0
			for k := j + 1; k < len(utts) && turns < p.Echo.ConfirmTurns; k++ {
				if utts[k].Speaker != transcript.SpeakerAgent {
					continue
				}
				turns++
				if !c.Echoed && repeatsBack(c.Datum, utts[k].Text, p.Echo.Similarity) {
					c.Echoed = true
				}
				if !c.Confirmed && IsConfirmationRequest(utts[k].Text) {
					c.Confirmed = true
					c.ConfirmIndex = k
				}
			}
			rep.Checks = append(rep.Checks, c)
		}
	}
	return rep
}

func nextCustomer(utts []transcript.Utterance, from, window int) int {
	for j := from + 1; j < len(utts) && j <= from+window; j++ {
		if utts[j].Speaker == transcript.SpeakerCustomer {
			return j
		}
	}
	return -1
}

// repeatsBack reports whether agent repeats datum: the datum's digits reappear
// in order, or a datum word closely matches an agent word.
func repeatsBack(datum, agent string, similarity float64) bool {
	if d := digits(datum); len(d) >= 4 && strings.Contains(digits(agent), d) {
		return true
	}
	agentWords := words(agent)
	for _, dw := range words(datum) {
		for _, aw := range agentWords {
			if matchr.JaroWinkler(dw, aw, false) >= similarity {
				return true
			}
		}
	}
	return false
}

func digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func words(s string) []string {
	var out []string
	for _, f := range strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r)
	}) {
		if len([]rune(f)) >= 4 && !echoStopWords[f] {
			out = append(out, f)
		}
	}
	return out
}

// Entities returns the collected entity kinds in first-seen order.
func (r EchoReport) Entities() []string {
	seen := map[Entity]bool{}
	out := []string{}
	for _, c := range r.Checks {
		if !seen[c.Entity] {
			seen[c.Entity] = true
			out = append(out, string(c.Entity))
		}
	}
	return out
}

// Echoed maps each entity to whether every collection of it was echoed.
func (r EchoReport) Echoed() map[string]bool {
	out := map[string]bool{}
	for _, c := range r.Checks {
		prev, ok := out[string(c.Entity)]
		out[string(c.Entity)] = c.Echoed && (!ok || prev)
	}
	return out
}

// Confirmed maps each entity to whether every collection of it was
// confirmed.
func (r EchoReport) Confirmed() map[string]bool {
	out := map[string]bool{}
	for _, c := range r.Checks {
		prev, ok := out[string(c.Entity)]
		out[string(c.Entity)] = c.Confirmed && (!ok || prev)
	}
	return out
}

// Missing returns the collections without a confirmation request.
func (r EchoReport) Missing() []EchoCheck {
	var out []EchoCheck
	for _, c := range r.Checks {
		if !c.Confirmed {
			out = append(out, c)
		}
	}
	return out
}

// CustomerName returns the first capitalized word of the customer's answer to
// a name request, or "" when no name was collected.
func (r EchoReport) CustomerName() string {
	for _, c := range r.Checks {
		if c.Entity != EntityName {
			continue
		}
		for _, f := range strings.FieldsFunc(c.Datum, func(r rune) bool { return !unicode.IsLetter(r) }) {
			runes := []rune(f)
			if len(runes) < 2 || !unicode.IsUpper(runes[0]) {
				continue
			}
			if echoStopWords[strings.ToLower(f)] || strings.EqualFold(f, "да") {
				continue
			}
			return f
		}
	}
	return ""
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
