package rules

import (
	"fmt"
	"sort"

	"github.com/granin/sample20calls/internal/ack"
	"github.com/granin/sample20calls/internal/profile"
	"github.com/granin/sample20calls/internal/schema"
	"github.com/granin/sample20calls/internal/search"
	"github.com/granin/sample20calls/internal/transcript"
)

// Input is everything a check may read. It is built once per call and never
// modified by checks.
type Input struct {
	Transcript *transcript.Transcript
	Profile    profile.Profile
	// CallDuration is the call length in seconds. It defaults to the end of
	// the final utterance.
	CallDuration float64

	Windows   []search.Window
	Gratitude []ack.GratitudeResult
	Echo      ack.EchoReport
}

// NewInput runs the window extractor and acknowledgment detector over t.
// A callDuration of zero or less uses the transcript end.
func NewInput(t *transcript.Transcript, p profile.Profile, callDuration float64) *Input {
	if callDuration <= 0 {
		callDuration = t.Duration()
	}
	windows := search.Extract(t, p)
	return &Input{
		Transcript:   t,
		Profile:      p,
		CallDuration: callDuration,
		Windows:      windows,
		Gratitude:    ack.CheckGratitude(t, windows, p),
		Echo:         ack.DetectEcho(t, p),
	}
}

// Check is one rubric criterion.
type Check struct {
	Code  string
	Title string
	Run   func(in *Input) []Finding
}

// Checks is the rubric in evaluation order.
var Checks = []Check{
	{"7.1", "Script violations", checkScript},
	{"7.2", "Echo method not used", checkEcho},
	{"7.3", "5-second timing rules", checkTiming},
	{"7.4", "Interruption without apology", checkInterruption},
	{"6.1", "Critical silence / customer hangup", checkSilence},
	{"9.1", "Long information search", checkLongSearch},
	{"9.3", "No thank you for waiting", checkGratitude},
	{"3.1", "Unresolved customer request", checkUnresolved},
	{"3.3", "Confidential information disclosure", checkConfidential},
	{"3.6", "Unverified information", checkUnverified},
	{"5.1", "Incomplete information provision", checkIncomplete},
	{"10.2", "Script work", checkScriptWork},
	{"10.3", "Dialogue management", checkDialogue},
	{"10.6", "Information completeness", checkCompleteness},
	{"2.1", "Call dropout / service refusal", checkDropout},
	{"1.1", "Rudeness / profanity", checkRudeness},
	{"4.1", "Difficult customer handling", checkDifficultCustomer},
}

// Codes returns the rubric codes in evaluation order.
func Codes() []string {
	codes := make([]string, len(Checks))
	for i, c := range Checks {
		codes[i] = c.Code
	}
	return codes
}

// Title returns the short title of code.
func Title(code string) string {
	for _, c := range Checks {
		if c.Code == code {
			return c.Title
		}
	}
	return "Unknown violation"
}

// IsCode reports whether code is a rubric code.
func IsCode(code string) bool {
	for _, c := range Checks {
		if c.Code == code {
			return true
		}
	}
	return false
}

// Evaluation is the merged outcome of all checks for one call.
type Evaluation struct {
	Violations []schema.Violation
	Criteria   schema.CriteriaAssessment
	Patterns   schema.DetectedPatterns
	// Failed lists the codes whose check aborted, sorted.
	Failed []string
}

// Evaluate runs every check over in. A check that panics is recorded as a
// low-confidence pass for its code and never stops the remaining checks.
func Evaluate(in *Input) *Evaluation {
	l := NewLedger(in.CallDuration)
	var failed []string
	for _, c := range Checks {
		if err := run(l, c, in); err != nil {
			l.Fail(c.Code, err)
			failed = append(failed, c.Code)
		}
	}
	sort.Strings(failed)
	return &Evaluation{
		Violations: l.Violations(),
		Criteria:   l.Criteria(Codes()),
		Patterns:   Patterns(in),
		Failed:     failed,
	}
}

// run executes one check. Findings are merged only after the check returns,
// so a panic leaves no partial findings behind.
func run(l *Ledger, c Check, in *Input) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("rules: check %s: %v", c.Code, r)
		}
	}()
	findings := c.Run(in)
	for _, f := range findings {
		if f.Code == "" {
			f.Code = c.Code
		}
		l.Add(f)
	}
	return nil
}
