// Package grader runs the full grading pipeline for one call: load the
// transcript, extract search windows, detect acknowledgments, evaluate every
// criterion and aggregate the verdict.
package grader

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/granin/sample20calls/internal/ack"
	"github.com/granin/sample20calls/internal/profile"
	"github.com/granin/sample20calls/internal/render"
	"github.com/granin/sample20calls/internal/rules"
	"github.com/granin/sample20calls/internal/schema"
	"github.com/granin/sample20calls/internal/search"
	"github.com/granin/sample20calls/internal/transcript"
	"github.com/granin/sample20calls/internal/verdict"
)

// WordTimingsFile is the optional word-level timing file beside a transcript.
const WordTimingsFile = "timestamps.json"

// Options configures a grading run. Now and NewID only affect metadata.
type Options struct {
	// Profile supplies thresholds. A zero Profile means profile.Standard().
	Profile profile.Profile
	CallID  string
	// CallDuration overrides the call length in seconds. Zero uses the end of
	// the final utterance.
	CallDuration float64
	// WordTimings records that word-level timing data was available.
	WordTimings bool
	Now         func() time.Time
	NewID       func() string
}

func (o Options) withDefaults() Options {
	if o.Profile.Name == "" {
		o.Profile = profile.Standard()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.NewID == nil {
		o.NewID = uuid.NewString
	}
	return o
}

// Result bundles the grading output with the intermediate analysis it was
// computed from.
type Result struct {
	Grading *schema.GradingResult
	Input   *rules.Input
}

// Timing returns the long-search report of the graded call.
func (r *Result) Timing() schema.TimingReport {
	return search.Report(r.Grading.CallMetadata.CallID, r.Input.Transcript, r.Input.Windows)
}

// Gratitude returns the thanks-for-waiting report of the graded call.
func (r *Result) Gratitude() schema.GratitudeReport {
	return ack.GratitudeReport(r.Grading.CallMetadata.CallID, r.Input.Gratitude)
}

// Context returns the markdown grading context handed to an external grader.
func (r *Result) Context() string {
	timing, gratitude := r.Timing(), r.Gratitude()
	return render.GradingContext(r.Grading.CallMetadata.CallID, r.Input.Transcript, &timing, &gratitude)
}

// GradeDir loads the transcript of callDir and grades it. The call id
// defaults to the directory name.
func GradeDir(callDir string, opts Options) (*Result, error) {
	t, _, err := transcript.LoadDir(callDir)
	if err != nil {
		return nil, fmt.Errorf("grader: %s: %w", filepath.Base(callDir), err)
	}
	if opts.CallID == "" {
		opts.CallID = filepath.Base(filepath.Clean(callDir))
	}
	if _, err := os.Stat(filepath.Join(callDir, WordTimingsFile)); err == nil {
		opts.WordTimings = true
	}
	return Grade(t, opts)
}

// Grade grades a loaded transcript.
func Grade(t *transcript.Transcript, opts Options) (*Result, error) {
	if t == nil || t.Len() == 0 {
		return nil, fmt.Errorf("grader: %w", transcript.ErrEmptyTranscript)
	}
	opts = opts.withDefaults()
	if err := profile.Validate(opts.Profile); err != nil {
		return nil, fmt.Errorf("grader: %w", err)
	}

	in := rules.NewInput(t, opts.Profile, opts.CallDuration)
	ev := rules.Evaluate(in)
	sc := verdict.Aggregate(ev.Violations, ev.Criteria, opts.Profile.Review.ConfidenceBelow)

	res := &schema.GradingResult{
		CallMetadata:         metadata(t, in, opts),
		FinalScoring:         sc.Final,
		Violations:           ev.Violations,
		ViolationsSummary:    sc.Summary,
		CoachingPriorities:   sc.Coaching,
		RiskAssessment:       sc.Risk,
		DetectedPatterns:     ev.Patterns,
		CriteriaAssessment:   ev.Criteria,
		PositiveObservations: sc.Positives,
		DataQuality:          dataQuality(t, ev, opts),
	}
	if res.Violations == nil {
		res.Violations = []schema.Violation{}
	}
	return &Result{Grading: res, Input: in}, nil
}

func metadata(t *transcript.Transcript, in *rules.Input, opts Options) schema.CallMetadata {
	md := schema.CallMetadata{
		CallID:           opts.CallID,
		DurationSeconds:  math.Round(in.CallDuration*10) / 10,
		CallStart:        transcript.FormatOffset(0),
		CallEnd:          transcript.FormatOffset(in.CallDuration),
		EvaluationDate:   opts.Now().Format("2006-01-02"),
		EvaluationSystem: schema.EvaluationSystem,
		EvaluationID:     opts.NewID(),
		Profile:          opts.Profile.Name,
	}
	if name := rules.OperatorName(t); name != "" {
		md.OperatorName = schema.StringPtr(name)
	}
	if name := in.Echo.CustomerName(); name != "" {
		md.CustomerName = schema.StringPtr(name)
	}
	return md
}

func dataQuality(t *transcript.Transcript, ev *rules.Evaluation, opts Options) schema.DataQuality {
	dq := schema.DataQuality{
		DataSourcesUsed:      []string{"vtt"},
		TranscriptionQuality: "GOOD",
		UtteranceCount:       t.Len(),
		InferredSpeakers:     t.InferredCount(),
		SkippedCues:          len(t.Skipped),
	}
	if opts.WordTimings {
		dq.DataSourcesUsed = append(dq.DataSourcesUsed, "word_json")
	}
	if t.Len() > 10 {
		dq.TranscriptionQuality = "EXCELLENT"
	}
	var notes []string
	if n := t.InferredCount(); n > 0 {
		notes = append(notes, fmt.Sprintf("%d of %d speaker roles inferred by heuristic", n, t.Len()))
	}
	if n := len(t.Skipped); n > 0 {
		notes = append(notes, fmt.Sprintf("%d malformed cues skipped", n))
	}
	if len(ev.Failed) > 0 {
		notes = append(notes, fmt.Sprintf("checks failed and need manual review: %s", strings.Join(ev.Failed, ", ")))
	}
	if len(notes) > 0 {
		dq.ConfidenceNotes = schema.StringPtr(strings.Join(notes, "; "))
	}
	return dq
}

// IsSkippable reports whether err means the call has no gradable transcript
// and a batch should move on.
func IsSkippable(err error) bool {
	return errors.Is(err, transcript.ErrEmptyTranscript) || errors.Is(err, transcript.ErrNoTranscript)
}
