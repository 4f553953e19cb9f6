package schema

// NormalizedStatus is the comparison vocabulary of the cross-grader validator.
type NormalizedStatus string

const (
	NormViolation  NormalizedStatus = "VIOLATION"
	NormBorderline NormalizedStatus = "BORDERLINE"
	NormPass       NormalizedStatus = "PASS"
	NormUnknown    NormalizedStatus = "UNKNOWN"
)

// GraderOutput is the minimal view of any grader's result that the validator
// needs. Grading results from this engine, the LLM reviewer, or third-party
// graders are all read into this shape.
type GraderOutput struct {
	Grader             string             `json:"grader"`
	CallID             string             `json:"call_id"`
	FinalGrade         *int               `json:"final_grade,omitempty"`
	CriteriaAssessment CriteriaAssessment `json:"criteria_assessment"`
}

// CallValidation compares the graders of one call against ground truth.
type CallValidation struct {
	CallID         string                      `json:"call_id"`
	GroundTruth    map[string]NormalizedStatus `json:"ground_truth"`
	GraderAccuracy map[string]GraderComparison `json:"grader_accuracy"`
}

// GraderComparison is one grader's result for one call.
type GraderComparison struct {
	NoData          bool                      `json:"no_data"`
	Criteria        map[string]CriterionMatch `json:"criteria"`
	Correct         int                       `json:"correct"`
	Total           int                       `json:"total"`
	OverallAccuracy string                    `json:"overall_accuracy"`
}

// CriterionMatch is the comparison of one code. Match is nil when ground
// truth or the grader's status is unavailable.
type CriterionMatch struct {
	GraderStatus string `json:"grader_status"`
	Match        *bool  `json:"match"`
}

// ValidationSummary aggregates accuracy per grader across calls.
type ValidationSummary struct {
	Calls   []CallValidation        `json:"calls"`
	Graders map[string]GraderTotals `json:"graders"`
}

// GraderTotals is a grader's accuracy across calls.
type GraderTotals struct {
	Correct  int     `json:"correct"`
	Total    int     `json:"total"`
	Accuracy float64 `json:"accuracy"`
}
