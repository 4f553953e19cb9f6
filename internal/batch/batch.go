// Package batch grades every call directory under a root in parallel and
// writes one report per call.
package batch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/granin/sample20calls/internal/grader"
	"github.com/granin/sample20calls/internal/render"
	"github.com/granin/sample20calls/internal/validate"
)

// Output formats.
const (
	FormatJSON     = "json"
	FormatMarkdown = "markdown"
	FormatBoth     = "both"
)

// CallPrefix marks call directories under the calls root.
const CallPrefix = "call_"

// Options configures a batch run.
type Options struct {
	CallsDir string
	// OutDir receives the reports. Empty writes each report into its call
	// directory.
	OutDir string
	// GroundTruthDir, when set, also receives <call>_timing.json and
	// <call>_gratitude.json for each graded call.
	GroundTruthDir string
	Workers        int
	Format         string
	Grader         grader.Options
	Logger         *zap.Logger
}

// Call is the outcome of one graded call.
type Call struct {
	CallID     string   `json:"call_id"`
	FinalGrade int      `json:"final_grade"`
	Violations int      `json:"violations"`
	Files      []string `json:"files"`
}

// Skip is a call that could not be graded.
type Skip struct {
	CallID string `json:"call_id"`
	Reason string `json:"reason"`
}

// Summary is the result of a batch run. Calls and Skipped are sorted by
// call id.
type Summary struct {
	Calls        []Call      `json:"calls"`
	Skipped      []Skip      `json:"skipped"`
	Distribution map[int]int `json:"grade_distribution"`
}

// ReportFile returns the base name of callID's report in format ext.
func ReportFile(callID, ext string) string {
	return strings.ToUpper(callID) + "_GRADING." + ext
}

// Discover returns the call directories under root, sorted.
func Discover(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("batch: %w", err)
	}
	var dirs []string
	for _, e := range entries {
		if e.IsDir() && strings.HasPrefix(e.Name(), CallPrefix) {
			dirs = append(dirs, filepath.Join(root, e.Name()))
		}
	}
	sort.Strings(dirs)
	return dirs, nil
}

// Run grades every call under opts.CallsDir. A call that fails to grade is
// logged and recorded in Summary.Skipped; only discovery, output and
// context errors abort the run.
func Run(ctx context.Context, opts Options) (*Summary, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	switch opts.Format {
	case "":
		opts.Format = FormatJSON
	case FormatJSON, FormatMarkdown, FormatBoth:
	default:
		return nil, fmt.Errorf("batch: unknown format %q", opts.Format)
	}

	dirs, err := Discover(opts.CallsDir)
	if err != nil {
		return nil, err
	}
	var (
		mu  sync.Mutex
		sum = &Summary{Calls: []Call{}, Skipped: []Skip{}, Distribution: map[int]int{}}
	)

	g, gctx := errgroup.WithContext(ctx)
	if opts.Workers > 0 {
		g.SetLimit(opts.Workers)
	}
	for _, dir := range dirs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			callID := filepath.Base(dir)

			res, err := grader.GradeDir(dir, opts.Grader)
			if err != nil {
				if grader.IsSkippable(err) {
					log.Warn("call skipped", zap.String("call_id", callID), zap.Error(err))
				} else {
					log.Error("grading failed", zap.String("call_id", callID), zap.Error(err))
				}
				mu.Lock()
				sum.Skipped = append(sum.Skipped, Skip{CallID: callID, Reason: err.Error()})
				mu.Unlock()
				return nil
			}

			files, err := Write(res, dir, opts)
			if err != nil {
				return fmt.Errorf("batch: %s: %w", callID, err)
			}

			r := res.Grading
			log.Info("call graded",
				zap.String("call_id", callID),
				zap.Int("final_grade", r.FinalScoring.FinalGrade),
				zap.Int("violations", len(r.Violations)),
			)
			mu.Lock()
			sum.Calls = append(sum.Calls, Call{
				CallID:     callID,
				FinalGrade: r.FinalScoring.FinalGrade,
				Violations: len(r.Violations),
				Files:      files,
			})
			sum.Distribution[r.FinalScoring.FinalGrade]++
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(sum.Calls, func(i, j int) bool { return sum.Calls[i].CallID < sum.Calls[j].CallID })
	sort.Slice(sum.Skipped, func(i, j int) bool { return sum.Skipped[i].CallID < sum.Skipped[j].CallID })
	log.Info("batch complete",
		zap.Int("graded", len(sum.Calls)),
		zap.Int("skipped", len(sum.Skipped)),
	)
	return sum, nil
}

// Write stores the reports of one graded call in opts.Format and returns
// their paths. opts.Format must be set.
func Write(res *grader.Result, callDir string, opts Options) ([]string, error) {
	callID := res.Grading.CallMetadata.CallID
	outDir := opts.OutDir
	if outDir == "" {
		outDir = callDir
	}

	for _, d := range []string{outDir, opts.GroundTruthDir} {
		if d == "" {
			continue
		}
		if err := os.MkdirAll(d, 0o755); err != nil {
			return nil, err
		}
	}

	var files []string
	put := func(path string, data []byte) error {
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return err
		}
		files = append(files, path)
		return nil
	}

	if opts.Format == FormatJSON || opts.Format == FormatBoth {
		data, err := render.JSON(res.Grading)
		if err != nil {
			return nil, err
		}
		if err := put(filepath.Join(outDir, ReportFile(callID, "json")), data); err != nil {
			return nil, err
		}
	}
	if opts.Format == FormatMarkdown || opts.Format == FormatBoth {
		md := render.Markdown(res.Grading)
		if err := put(filepath.Join(outDir, ReportFile(callID, "md")), []byte(md)); err != nil {
			return nil, err
		}
	}

	if opts.GroundTruthDir != "" {
		timing, err := render.JSON(res.Timing())
		if err != nil {
			return nil, err
		}
		gratitude, err := render.JSON(res.Gratitude())
		if err != nil {
			return nil, err
		}
		if err := errors.Join(
			put(validate.TimingFile(opts.GroundTruthDir, callID), timing),
			put(validate.GratitudeFile(opts.GroundTruthDir, callID), gratitude),
		); err != nil {
			return nil, err
		}
	}
	return files, nil
}
