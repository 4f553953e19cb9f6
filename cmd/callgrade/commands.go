package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/granin/sample20calls/internal/batch"
	"github.com/granin/sample20calls/internal/config"
	"github.com/granin/sample20calls/internal/grader"
	"github.com/granin/sample20calls/internal/llm"
	"github.com/granin/sample20calls/internal/render"
	"github.com/granin/sample20calls/internal/validate"
	"github.com/granin/sample20calls/internal/verdict"
)

func addOutputFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String(config.FlagName("out_dir"), "", "directory for reports (default: each call directory)")
	f.String(config.FlagName("format"), "json", "report format: json|markdown|both")
	f.Int(config.FlagName("fail_below"), 0, "exit 2 when any final grade is below this (0 = never)")
}

func (a *app) batchOptions() batch.Options {
	return batch.Options{
		CallsDir: a.cfg.CallsDir,
		OutDir:   a.cfg.OutDir,
		Workers:  a.cfg.Workers,
		Format:   a.cfg.Format,
		Grader:   a.graderOptions(),
		Logger:   a.log,
	}
}

func (a *app) gradeDir(dir string) (*grader.Result, error) {
	res, err := grader.GradeDir(dir, a.graderOptions())
	if err != nil {
		return nil, withCode(exitCodeBadInput, err)
	}
	return res, nil
}

func (a *app) failBelow(grades map[string]int) error {
	var low []string
	for id, g := range grades {
		if verdict.BelowThreshold(g, a.cfg.FailBelow) {
			low = append(low, fmt.Sprintf("%s=%d", id, g))
		}
	}
	if len(low) == 0 {
		return nil
	}
	sort.Strings(low)
	return withCode(exitCodeFailBelow,
		fmt.Errorf("final grade below %d: %s", a.cfg.FailBelow, strings.Join(low, ", ")))
}

func newGradeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "grade <call-dir>...",
		Short: "Grade one or more call directories",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := a.batchOptions()
			grades := make(map[string]int, len(args))
			for _, dir := range args {
				res, err := a.gradeDir(dir)
				if err != nil {
					return err
				}
				files, err := batch.Write(res, dir, opts)
				if err != nil {
					return fmt.Errorf("write reports: %w", err)
				}
				r := res.Grading
				grades[r.CallMetadata.CallID] = r.FinalScoring.FinalGrade
				fmt.Fprintf(a.out, "%s: grade %d (%d violations) -> %s\n",
					r.CallMetadata.CallID, r.FinalScoring.FinalGrade, len(r.Violations), strings.Join(files, ", "))
			}
			return a.failBelow(grades)
		},
	}
	addOutputFlags(cmd)
	return cmd
}

func newBatchCmd(a *app) *cobra.Command {
	var writeTruth bool
	cmd := &cobra.Command{
		Use:   "batch [calls-dir]",
		Short: "Grade every call_* directory under a root",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := a.batchOptions()
			if len(args) == 1 {
				opts.CallsDir = args[0]
			}
			if writeTruth {
				opts.GroundTruthDir = a.cfg.GroundTruthDir
			}
			sum, err := batch.Run(cmd.Context(), opts)
			if err != nil {
				return withCode(exitCodeBadInput, err)
			}
			data, err := render.JSON(sum)
			if err != nil {
				return err
			}
			if _, err := a.out.Write(data); err != nil {
				return err
			}
			grades := make(map[string]int, len(sum.Calls))
			for _, c := range sum.Calls {
				grades[c.CallID] = c.FinalGrade
			}
			return a.failBelow(grades)
		},
	}
	addOutputFlags(cmd)
	f := cmd.Flags()
	f.String(config.FlagName("calls_dir"), "calls", "root holding call_* directories")
	f.Int(config.FlagName("workers"), 4, "calls graded in parallel")
	f.String(config.FlagName("ground_truth_dir"), "ground_truth", "directory for timing and gratitude reports")
	f.BoolVar(&writeTruth, "write-ground-truth", false, "also write <call>_timing.json and <call>_gratitude.json")
	return cmd
}

// newReportCmd builds the timing and gratitude commands, which print one
// pre-computed report and optionally save it as ground truth.
func newReportCmd(a *app, use, short string, file func(dir, callID string) string, report func(*grader.Result) any) *cobra.Command {
	var save bool
	cmd := &cobra.Command{
		Use:   use + " <call-dir>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.gradeDir(args[0])
			if err != nil {
				return err
			}
			data, err := render.JSON(report(res))
			if err != nil {
				return err
			}
			if save {
				path := file(a.cfg.GroundTruthDir, res.Grading.CallMetadata.CallID)
				if err := writeFile(path, data); err != nil {
					return err
				}
				a.log.Info("report saved", zap.String("path", path))
			}
			_, err = a.out.Write(data)
			return err
		},
	}
	cmd.Flags().String(config.FlagName("ground_truth_dir"), "ground_truth", "directory for saved reports")
	cmd.Flags().BoolVar(&save, "save", false, "save the report into the ground truth directory")
	return cmd
}

func newTimingCmd(a *app) *cobra.Command {
	return newReportCmd(a, "timing", "Print the long-search (9.1) timing report", validate.TimingFile,
		func(r *grader.Result) any { return r.Timing() })
}

func newGratitudeCmd(a *app) *cobra.Command {
	return newReportCmd(a, "gratitude", "Print the thanks-for-waiting (9.3) report", validate.GratitudeFile,
		func(r *grader.Result) any { return r.Gratitude() })
}

func newContextCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "context <call-dir>",
		Short: "Print the consolidated grading context for an external grader",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.gradeDir(args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(a.out, res.Context())
			return err
		},
	}
}

// LLMReportFile is the base name of callID's LLM review.
func LLMReportFile(callID string) string {
	return strings.ToUpper(callID) + "_LLM.json"
}

func newReviewCmd(a *app) *cobra.Command {
	var debug bool
	cmd := &cobra.Command{
		Use:   "review <call-dir>",
		Short: "Ask an LLM provider for a second-opinion grading",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := args[0]
			res, err := a.gradeDir(dir)
			if err != nil {
				return err
			}
			callID := res.Grading.CallMetadata.CallID
			opts := llm.Options{
				Provider:    a.cfg.LLM.Provider,
				Model:       a.cfg.LLM.Model,
				MaxTokens:   a.cfg.LLM.MaxTokens,
				Temperature: a.cfg.LLM.Temperature,
			}
			if debug {
				opts.Debug = cmd.ErrOrStderr()
			}

			a.log.Info("requesting review", zap.String("call_id", callID), zap.String("provider", opts.Provider))
			out, err := llm.Review(cmd.Context(), callID, res.Context(), opts)
			if errors.Is(err, llm.ErrInvalidModelOutput) {
				return withCode(exitCodeBadOutput, err)
			}
			if err != nil {
				return withCode(exitCodeAPIError, err)
			}

			data, err := render.JSON(out)
			if err != nil {
				return err
			}
			outDir := a.cfg.OutDir
			if outDir == "" {
				outDir = dir
			}
			path := filepath.Join(outDir, LLMReportFile(callID))
			if err := writeFile(path, data); err != nil {
				return err
			}
			a.log.Info("review saved", zap.String("path", path))
			_, err = a.out.Write(data)
			return err
		},
	}
	f := cmd.Flags()
	f.String(config.FlagName("out_dir"), "", "directory for the review (default: the call directory)")
	f.String(config.FlagName("llm.provider"), "anthropic", "LLM provider: anthropic|openai|google")
	f.String(config.FlagName("llm.model"), "", "model name (default per provider)")
	f.Int(config.FlagName("llm.max_tokens"), 8192, "maximum output tokens")
	f.Float64(config.FlagName("llm.temperature"), 0, "sampling temperature")
	f.BoolVar(&debug, "debug", false, "print prompts to stderr")
	return cmd
}

func newValidateCmd(a *app) *cobra.Command {
	var (
		graderFlags []string
		asJSON      bool
	)
	cmd := &cobra.Command{
		Use:   "validate <call-id>...",
		Short: "Compare grader outputs with ground truth for 9.1 and 9.3",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			graders := validate.DefaultGraders(a.cfg.CallsDir)
			if len(graderFlags) > 0 {
				graders = graders[:0]
				for _, s := range graderFlags {
					g, err := validate.ParseGrader(s)
					if err != nil {
						return withCode(exitCodeBadInput, err)
					}
					graders = append(graders, g)
				}
			}

			sum, err := validate.Run(args, validate.Options{GroundTruthDir: a.cfg.GroundTruthDir, Graders: graders})
			if err != nil {
				return withCode(exitCodeBadInput, err)
			}
			data, err := render.JSON(sum)
			if err != nil {
				return err
			}
			path := filepath.Join(a.cfg.GroundTruthDir, "validation_report.json")
			if err := writeFile(path, data); err != nil {
				return err
			}
			a.log.Info("validation report saved", zap.String("path", path))

			if asJSON {
				_, err = a.out.Write(data)
				return err
			}
			return validate.WriteReport(a.out, sum, validate.Names(graders))
		},
	}
	f := cmd.Flags()
	f.String(config.FlagName("calls_dir"), "calls", "root holding call_* directories")
	f.String(config.FlagName("ground_truth_dir"), "ground_truth", "directory holding ground truth reports")
	f.StringArrayVar(&graderFlags, "grader", nil, "grader as name=path-template with {call}/{CALL} (repeatable)")
	f.BoolVar(&asJSON, "json", false, "print the JSON summary instead of the text report")
	return cmd
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
