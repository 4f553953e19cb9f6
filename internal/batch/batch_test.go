package batch

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/granin/sample20calls/internal/schema"
	"github.com/granin/sample20calls/internal/validate"
)

const callsDir = "../../testdata/calls"

func TestDiscover(t *testing.T) {
	dirs, err := Discover(callsDir)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	var names []string
	for _, d := range dirs {
		names = append(names, filepath.Base(d))
	}
	if got := strings.Join(names, ","); got != "call_01,call_02,call_03,call_04" {
		t.Errorf("Discover = %s", got)
	}
}

func TestReportFile(t *testing.T) {
	if got := ReportFile("call_07", "json"); got != "CALL_07_GRADING.json" {
		t.Errorf("ReportFile = %q, want CALL_07_GRADING.json", got)
	}
}

func TestRun(t *testing.T) {
	out := t.TempDir()
	gt := filepath.Join(out, "ground_truth")
	core, logs := observer.New(zap.InfoLevel)

	sum, err := Run(context.Background(), Options{
		CallsDir:       callsDir,
		OutDir:         out,
		GroundTruthDir: gt,
		Workers:        2,
		Format:         FormatBoth,
		Logger:         zap.New(core),
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(sum.Calls) != 3 {
		t.Fatalf("graded = %d, want 3", len(sum.Calls))
	}
	for i, want := range []string{"call_01", "call_02", "call_03"} {
		if sum.Calls[i].CallID != want {
			t.Errorf("calls[%d] = %s, want %s", i, sum.Calls[i].CallID, want)
		}
	}
	if len(sum.Skipped) != 1 || sum.Skipped[0].CallID != "call_04" {
		t.Errorf("skipped = %+v, want call_04", sum.Skipped)
	}
	if sum.Distribution[10] != 2 || sum.Distribution[9] != 1 {
		t.Errorf("distribution = %v, want 10:2 9:1", sum.Distribution)
	}

	data, err := os.ReadFile(filepath.Join(out, "CALL_02_GRADING.json"))
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	var r schema.GradingResult
	if err := json.Unmarshal(data, &r); err != nil {
		t.Fatalf("unmarshal report: %v", err)
	}
	if r.FinalScoring.FinalGrade != 9 {
		t.Errorf("CALL_02 final_grade = %d, want 9", r.FinalScoring.FinalGrade)
	}
	if _, err := os.Stat(filepath.Join(out, "CALL_02_GRADING.md")); err != nil {
		t.Errorf("markdown report: %v", err)
	}
	if _, err := os.Stat(validate.TimingFile(gt, "call_02")); err != nil {
		t.Errorf("timing ground truth: %v", err)
	}

	if n := logs.FilterMessage("call skipped").Len(); n != 1 {
		t.Errorf("skip logs = %d, want 1", n)
	}
	if n := logs.FilterMessage("call graded").Len(); n != 3 {
		t.Errorf("graded logs = %d, want 3", n)
	}
}

func TestRun_MarkdownOnly(t *testing.T) {
	out := t.TempDir()
	sum, err := Run(context.Background(), Options{CallsDir: callsDir, OutDir: out, Format: FormatMarkdown})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	for _, c := range sum.Calls {
		if len(c.Files) != 1 || !strings.HasSuffix(c.Files[0], ".md") {
			t.Errorf("%s files = %v, want one markdown report", c.CallID, c.Files)
		}
	}
}

func TestRun_Errors(t *testing.T) {
	if _, err := Run(context.Background(), Options{CallsDir: callsDir, Format: "xml"}); err == nil {
		t.Error("expected error for unknown format")
	}
	if _, err := Run(context.Background(), Options{CallsDir: filepath.Join(t.TempDir(), "none")}); err == nil {
		t.Error("expected error for missing calls dir")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Run(ctx, Options{CallsDir: callsDir, OutDir: t.TempDir()}); err == nil {
		t.Error("expected error for cancelled context")
	}
}
