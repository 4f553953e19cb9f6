// Package profile defines grading profiles: the thresholds and policies the
// rule checks apply. Built-in profiles are selected by name; a YAML file may
// override any field of the standard profile.
package profile

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Profile describes one grading policy.
type Profile struct {
	Name        string `yaml:"name" validate:"required"`
	Description string `yaml:"description"`

	Search    SearchThresholds   `yaml:"search"`
	Gratitude GratitudePolicy    `yaml:"gratitude"`
	Echo      EchoPolicy         `yaml:"echo"`
	Timing    TimingThresholds   `yaml:"timing"`
	Silence   SilenceThresholds  `yaml:"silence"`
	Interrupt InterruptionPolicy `yaml:"interruption"`
	Review    ReviewPolicy       `yaml:"review"`
}

// SearchThresholds governs criterion 9.1.
type SearchThresholds struct {
	// PassMax is the longest search, in seconds, that passes outright.
	PassMax float64 `yaml:"pass_max" validate:"gt=0"`
	// ViolationAbove is the duration above which a search is a violation.
	// Durations in (PassMax, ViolationAbove] are coaching flags.
	ViolationAbove float64 `yaml:"violation_above" validate:"gtefield=PassMax"`
	// MergeWindow joins announcements whose start times are this close.
	MergeWindow float64 `yaml:"merge_window" validate:"gte=0"`
}

// GratitudePolicy governs criterion 9.3.
type GratitudePolicy struct {
	// Threshold is the search duration above which thanks are required.
	Threshold float64 `yaml:"threshold" validate:"gte=0"`
	// AlwaysRequired requires thanks after every detected search,
	// regardless of Threshold.
	AlwaysRequired bool `yaml:"always_required"`
	// LookaheadTurns is the number of Agent turns after the answer that are
	// searched for a gratitude phrase.
	LookaheadTurns int `yaml:"lookahead_turns" validate:"gte=0"`
	// LookaheadSeconds bounds that search in time after the answer start.
	LookaheadSeconds float64 `yaml:"lookahead_seconds" validate:"gte=0"`
}

// EchoPolicy governs criterion 7.2.
type EchoPolicy struct {
	// AnswerWindow is how many utterances after a data request are scanned
	// for the customer's answer.
	AnswerWindow int `yaml:"answer_window" validate:"gte=1"`
	// ConfirmTurns is how many Agent turns after the answer are scanned for
	// a confirmation request.
	ConfirmTurns int `yaml:"confirm_turns" validate:"gte=1"`
	// Similarity is the Jaro-Winkler score at which an agent token counts as
	// a repeat-back of a customer token.
	Similarity float64 `yaml:"similarity" validate:"gt=0,lte=1"`
}

// TimingThresholds governs criterion 7.3.
type TimingThresholds struct {
	IntroMax float64 `yaml:"intro_max" validate:"gt=0"`
	OutroMax float64 `yaml:"outro_max" validate:"gt=0"`
}

// SilenceThresholds governs criterion 6.1.
type SilenceThresholds struct {
	CriticalGap float64 `yaml:"critical_gap" validate:"gt=0"`
}

// InterruptionPolicy governs criterion 7.4.
type InterruptionPolicy struct {
	ApologyTurns int `yaml:"apology_turns" validate:"gte=1"`
}

// ReviewPolicy governs the requires_review flag.
type ReviewPolicy struct {
	// ConfidenceBelow flags a score-affecting violation for human review when
	// its confidence is below this value.
	ConfidenceBelow float64 `yaml:"confidence_below" validate:"gte=0,lte=1"`
}

// Standard returns the default profile.
func Standard() Profile {
	return Profile{
		Name:        "standard",
		Description: "Default rubric thresholds; thanks for waiting required after searches over 10s.",
		Search:      SearchThresholds{PassMax: 40, ViolationAbove: 45, MergeWindow: 30},
		Gratitude:   GratitudePolicy{Threshold: 10, LookaheadTurns: 4, LookaheadSeconds: 10},
		Echo:        EchoPolicy{AnswerWindow: 4, ConfirmTurns: 2, Similarity: 0.88},
		Timing:      TimingThresholds{IntroMax: 5, OutroMax: 5},
		Silence:     SilenceThresholds{CriticalGap: 45},
		Interrupt:   InterruptionPolicy{ApologyTurns: 3},
		Review:      ReviewPolicy{ConfidenceBelow: 0.75},
	}
}

// builtins is the registry of built-in profiles keyed by name.
var builtins = map[string]func() Profile{
	"standard": Standard,
	"strict-gratitude": func() Profile {
		p := Standard()
		p.Name = "strict-gratitude"
		p.Description = "Thanks for waiting required after every detected search."
		p.Gratitude.AlwaysRequired = true
		return p
	},
}

// Names returns the built-in profile names in sorted order.
func Names() []string {
	names := make([]string, 0, len(builtins))
	for n := range builtins {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Load returns the named built-in profile or an error if the name is unknown.
func Load(name string) (Profile, error) {
	if name == "" {
		return Standard(), nil
	}
	mk, ok := builtins[name]
	if !ok {
		return Profile{}, fmt.Errorf("profile: unknown profile %q (available: %s)", name, strings.Join(Names(), ", "))
	}
	return mk(), nil
}

// LoadFile reads a YAML profile from path. Fields absent from the file keep
// their standard values.
func LoadFile(path string) (Profile, error) {
	f, err := os.Open(path)
	if err != nil {
		return Profile{}, fmt.Errorf("profile: open %q: %w", path, err)
	}
	defer f.Close()

	p, err := LoadFromReader(f)
	if err != nil {
		return Profile{}, fmt.Errorf("profile: parse %q: %w", path, err)
	}
	return p, nil
}

// LoadFromReader decodes a YAML profile from r over the standard defaults
// and validates the result.
func LoadFromReader(r io.Reader) (Profile, error) {
	p := Standard()
	p.Name = "custom"
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil && err != io.EOF {
		return Profile{}, fmt.Errorf("profile: decode yaml: %w", err)
	}
	if err := Validate(p); err != nil {
		return Profile{}, err
	}
	return p, nil
}

var validate = validator.New()

// Validate checks that p holds a coherent set of thresholds.
func Validate(p Profile) error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("profile: invalid %q: %w", p.Name, err)
	}
	return nil
}
