// Package validate compares grader outputs against the ground-truth timing
// and gratitude extractions for criteria 9.1 and 9.3.
package validate

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/granin/sample20calls/internal/rules"
	"github.com/granin/sample20calls/internal/schema"
)

// Criteria are the codes with ground truth.
var Criteria = []string{"9.1", "9.3"}

// NoData is the accuracy label of a grader with no usable output.
const NoData = "NO_DATA"

// NormalizeStatus maps any grader's status string onto the comparison
// vocabulary. Matching is by substring, so "VIOLATION_CONFIRMED" is a
// violation and "N/A" is a pass.
func NormalizeStatus(s string) schema.NormalizedStatus {
	u := strings.ToUpper(strings.TrimSpace(s))
	switch {
	case u == "":
		return schema.NormUnknown
	case strings.Contains(u, "VIOLATION"):
		return schema.NormViolation
	case strings.Contains(u, "BORDERLINE"), strings.Contains(u, "FLAG"):
		return schema.NormBorderline
	case strings.Contains(u, "PASS"), strings.Contains(u, "N/A"):
		return schema.NormPass
	}
	return schema.NormUnknown
}

// Grader is one source of grading output. Path is a file path template in
// which {call} is replaced by the call id and {CALL} by its upper-case form.
type Grader struct {
	Name string
	Path string
}

// File returns the grader's output path for callID.
func (g Grader) File(callID string) string {
	r := strings.NewReplacer("{call}", callID, "{CALL}", strings.ToUpper(callID))
	return r.Replace(g.Path)
}

// DefaultGraders returns this engine and the LLM reviewer, both reading the
// files written beside each call under callsDir.
func DefaultGraders(callsDir string) []Grader {
	return []Grader{
		{Name: "engine", Path: filepath.Join(callsDir, "{call}", "{CALL}_GRADING.json")},
		{Name: "llm", Path: filepath.Join(callsDir, "{call}", "{CALL}_LLM.json")},
	}
}

// ParseGrader parses a "name=path-template" flag value.
func ParseGrader(s string) (Grader, error) {
	name, path, ok := strings.Cut(s, "=")
	if !ok || name == "" || path == "" {
		return Grader{}, fmt.Errorf("validate: grader %q: want name=path", s)
	}
	return Grader{Name: name, Path: path}, nil
}

// Options configures a validation run.
type Options struct {
	// GroundTruthDir holds <call>_timing.json and <call>_gratitude.json.
	GroundTruthDir string
	Graders        []Grader
}

// TimingFile is the ground-truth timing report path of callID.
func TimingFile(dir, callID string) string {
	return filepath.Join(dir, callID+"_timing.json")
}

// GratitudeFile is the ground-truth gratitude report path of callID.
func GratitudeFile(dir, callID string) string {
	return filepath.Join(dir, callID+"_gratitude.json")
}

// LoadGroundTruth reads the final 9.1 and 9.3 statuses of callID. A missing
// report leaves its code out of the map.
func LoadGroundTruth(dir, callID string) (map[string]schema.NormalizedStatus, error) {
	gt := make(map[string]schema.NormalizedStatus, len(Criteria))

	var timing struct {
		Final *struct {
			Status string `json:"status"`
		} `json:"final_9_1_assessment"`
	}
	ok, err := readJSON(TimingFile(dir, callID), &timing)
	if err != nil {
		return nil, err
	}
	if ok && timing.Final != nil {
		gt["9.1"] = NormalizeStatus(timing.Final.Status)
	}

	var gratitude struct {
		Final *struct {
			Status string `json:"status"`
		} `json:"final_9_3_assessment"`
	}
	ok, err = readJSON(GratitudeFile(dir, callID), &gratitude)
	if err != nil {
		return nil, err
	}
	if ok && gratitude.Final != nil {
		gt["9.3"] = NormalizeStatus(gratitude.Final.Status)
	}
	return gt, nil
}

// looseCriterion accepts either "status" or "assessment".
type looseCriterion struct {
	Status     string                 `json:"status"`
	Assessment string                 `json:"assessment"`
	Confidence schema.ConfidenceLevel `json:"confidence"`
	Evidence   string                 `json:"evidence"`
	Note       *string                `json:"note"`
}

type looseOutput struct {
	Grader       string                    `json:"grader"`
	CallID       string                    `json:"call_id"`
	FinalGrade   *int                      `json:"final_grade"`
	Criteria     map[string]looseCriterion `json:"criteria_assessment"`
	CriteriaAlt  map[string]looseCriterion `json:"criteria_assessments"`
	FinalScoring *struct {
		FinalGrade *int `json:"final_grade"`
	} `json:"final_scoring"`
	CallMetadata *struct {
		CallID string `json:"call_id"`
	} `json:"call_metadata"`
}

// LoadGraderOutput reads any grader's JSON result. Both criteria_assessment
// and criteria_assessments keys are accepted, as are status and assessment
// fields. It returns nil and no error when the file does not exist.
func LoadGraderOutput(path string) (*schema.GraderOutput, error) {
	var lo looseOutput
	ok, err := readJSON(path, &lo)
	if err != nil || !ok {
		return nil, err
	}

	out := &schema.GraderOutput{Grader: lo.Grader, CallID: lo.CallID, FinalGrade: lo.FinalGrade}
	if out.CallID == "" && lo.CallMetadata != nil {
		out.CallID = lo.CallMetadata.CallID
	}
	if out.FinalGrade == nil && lo.FinalScoring != nil {
		out.FinalGrade = lo.FinalScoring.FinalGrade
	}

	criteria := lo.Criteria
	if len(criteria) == 0 {
		criteria = lo.CriteriaAlt
	}
	for _, code := range orderedCodes(criteria) {
		c := criteria[code]
		status := c.Status
		if status == "" {
			status = c.Assessment
		}
		out.CriteriaAssessment = append(out.CriteriaAssessment, schema.CriterionAssessment{
			Code:       code,
			Status:     schema.Status(status),
			Confidence: c.Confidence,
			Evidence:   c.Evidence,
			Note:       c.Note,
		})
	}
	return out, nil
}

// orderedCodes returns rubric codes first in rubric order, then any others
// sorted.
func orderedCodes(m map[string]looseCriterion) []string {
	codes := make([]string, 0, len(m))
	for _, code := range rules.Codes() {
		if _, ok := m[code]; ok {
			codes = append(codes, code)
		}
	}
	var extra []string
	for code := range m {
		if !rules.IsCode(code) {
			extra = append(extra, code)
		}
	}
	sort.Strings(extra)
	return append(codes, extra...)
}

// Compare scores one grader's output against ground truth. A nil output, or
// one without criteria, has no data.
func Compare(gt map[string]schema.NormalizedStatus, out *schema.GraderOutput) schema.GraderComparison {
	if out == nil || len(out.CriteriaAssessment) == 0 {
		return schema.GraderComparison{NoData: true, OverallAccuracy: NoData}
	}

	cmp := schema.GraderComparison{Criteria: make(map[string]schema.CriterionMatch, len(Criteria))}
	for _, code := range Criteria {
		truth, hasTruth := gt[code]
		a, graded := out.CriteriaAssessment.Get(code)
		if !hasTruth || !graded {
			cmp.Criteria[code] = schema.CriterionMatch{GraderStatus: "N/A"}
			continue
		}
		status := string(a.Status)
		if status == "" {
			status = string(schema.NormUnknown)
		}
		norm := NormalizeStatus(status)
		match := norm != schema.NormUnknown && norm == truth
		cmp.Criteria[code] = schema.CriterionMatch{GraderStatus: status, Match: schema.BoolPtr(match)}
		cmp.Total++
		if match {
			cmp.Correct++
		}
	}

	if cmp.Total == 0 {
		cmp.OverallAccuracy = "N/A"
	} else {
		cmp.OverallAccuracy = fmt.Sprintf("%.0f%%", float64(cmp.Correct)/float64(cmp.Total)*100)
	}
	return cmp
}

// ValidateCall compares every configured grader for callID.
func ValidateCall(callID string, opts Options) (schema.CallValidation, error) {
	gt, err := LoadGroundTruth(opts.GroundTruthDir, callID)
	if err != nil {
		return schema.CallValidation{}, fmt.Errorf("validate: %s: %w", callID, err)
	}

	v := schema.CallValidation{
		CallID:         callID,
		GroundTruth:    gt,
		GraderAccuracy: make(map[string]schema.GraderComparison, len(opts.Graders)),
	}
	for _, g := range opts.Graders {
		out, err := LoadGraderOutput(g.File(callID))
		if err != nil {
			return schema.CallValidation{}, fmt.Errorf("validate: %s: grader %s: %w", callID, g.Name, err)
		}
		v.GraderAccuracy[g.Name] = Compare(gt, out)
	}
	return v, nil
}

// Run validates each call and summarizes.
func Run(callIDs []string, opts Options) (schema.ValidationSummary, error) {
	vals := make([]schema.CallValidation, 0, len(callIDs))
	for _, id := range callIDs {
		v, err := ValidateCall(id, opts)
		if err != nil {
			return schema.ValidationSummary{}, err
		}
		vals = append(vals, v)
	}
	return Summarize(vals), nil
}

// Summarize totals accuracy per grader across calls. Calls without data for
// a grader do not count toward its total.
func Summarize(vals []schema.CallValidation) schema.ValidationSummary {
	s := schema.ValidationSummary{Calls: vals, Graders: map[string]schema.GraderTotals{}}
	for _, v := range vals {
		for name, cmp := range v.GraderAccuracy {
			tot := s.Graders[name]
			tot.Correct += cmp.Correct
			tot.Total += cmp.Total
			s.Graders[name] = tot
		}
	}
	for name, tot := range s.Graders {
		if tot.Total > 0 {
			tot.Accuracy = math.Round(float64(tot.Correct)/float64(tot.Total)*1000) / 10
		}
		s.Graders[name] = tot
	}
	return s
}

// readJSON decodes path into v. It reports false without error when the file
// does not exist.
func readJSON(path string, v any) (bool, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return true, nil
}
