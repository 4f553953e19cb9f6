// Package schema defines all canonical data types for the call grading output
// format and the auxiliary ground-truth and validation reports.
package schema

// EvaluationSystem names the rubric edition the grader implements.
const EvaluationSystem = "СО 2024 ВТМ v2024.09"

// Status is the outcome of one criterion.
type Status string

const (
	StatusPass      Status = "PASS"
	StatusFlag      Status = "FLAG"
	StatusViolation Status = "VIOLATION"
)

// ConfidenceLevel is a discretized confidence.
type ConfidenceLevel string

const (
	ConfidenceLow      ConfidenceLevel = "LOW"
	ConfidenceMedium   ConfidenceLevel = "MEDIUM"
	ConfidenceHigh     ConfidenceLevel = "HIGH"
	ConfidenceVeryHigh ConfidenceLevel = "VERY_HIGH"
)

// LevelFor discretizes a numeric confidence in [0,1].
func LevelFor(confidence float64) ConfidenceLevel {
	switch {
	case confidence >= 0.90:
		return ConfidenceVeryHigh
	case confidence >= 0.75:
		return ConfidenceHigh
	case confidence >= 0.50:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// RiskLevel grades a risk dimension.
type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

// Violation severities as written to the report.
const (
	SeverityYellow   = "yellow"
	SeverityFlagOnly = "flag_only"
)

// GradingResult is the top-level output document for one call.
type GradingResult struct {
	CallMetadata         CallMetadata       `json:"call_metadata"`
	FinalScoring         FinalScoring       `json:"final_scoring"`
	Violations           []Violation        `json:"violations_detected"`
	ViolationsSummary    ViolationsSummary  `json:"violations_summary"`
	CoachingPriorities   []CoachingPriority `json:"coaching_priorities"`
	RiskAssessment       RiskAssessment     `json:"risk_assessment"`
	DetectedPatterns     DetectedPatterns   `json:"detected_patterns"`
	CriteriaAssessment   CriteriaAssessment `json:"criteria_assessment"`
	PositiveObservations []string           `json:"positive_observations"`
	DataQuality          DataQuality        `json:"data_quality"`
}

// CallMetadata identifies the call and the evaluation run.
type CallMetadata struct {
	CallID           string  `json:"call_id"`
	DurationSeconds  float64 `json:"duration_seconds"`
	CallStart        string  `json:"call_start"`
	CallEnd          string  `json:"call_end"`
	OperatorName     *string `json:"operator_name"`
	CustomerName     *string `json:"customer_name"`
	EvaluationDate   string  `json:"evaluation_date"`
	EvaluationSystem string  `json:"evaluation_system"`
	EvaluationID     string  `json:"evaluation_id"`
	Profile          string  `json:"profile"`
}

// FinalScoring holds the aggregated grade.
type FinalScoring struct {
	FinalGrade            int             `json:"final_grade"`
	Confidence            ConfidenceLevel `json:"confidence"`
	PrimaryViolation      *string         `json:"primary_violation"`
	AllViolationGrades    []int           `json:"all_violation_grades"`
	LowestCodeRuleApplied bool            `json:"lowest_code_rule_applied"`
	RequiresReview        bool            `json:"requires_review"`
	ReviewReason          *string         `json:"review_reason"`
}

// Violation is one detected rubric breach or coaching flag.
type Violation struct {
	Code           string  `json:"code"`
	Grade          int     `json:"grade"`
	Title          string  `json:"title"`
	Severity       string  `json:"severity"`
	SOTFlag        bool    `json:"sot_flag"`
	TimestampStart string  `json:"timestamp_start"`
	TimestampEnd   *string `json:"timestamp_end"`
	StartSec       float64 `json:"start_sec"`
	Evidence       string  `json:"evidence"`
	Confidence     float64 `json:"confidence"`
	// FlagWindow marks a coaching-only record with no grade impact.
	FlagWindow bool `json:"flag_window"`
	// ScoreReduction marks a record eligible to set the final grade.
	ScoreReduction bool `json:"score_reduction"`
}

// ViolationsSummary counts the violation list.
type ViolationsSummary struct {
	TotalViolations          int            `json:"total_violations"`
	ViolationsByGrade        map[string]int `json:"violations_by_grade"`
	SOTViolations            int            `json:"sot_violations"`
	FlagOnlyViolations       int            `json:"flag_only_violations"`
	ScoreAffectingViolations int            `json:"score_affecting_violations"`
}

// CoachingPriority is one ranked coaching recommendation.
type CoachingPriority struct {
	Priority         int    `json:"priority"`
	Issue            string `json:"issue"`
	Recommendation   string `json:"recommendation"`
	RelatedCriterion string `json:"related_criterion"`
}

// RiskAssessment summarizes risk tiers derived from the grade.
type RiskAssessment struct {
	ComplianceRisk            RiskLevel `json:"compliance_risk"`
	CustomerSatisfactionRisk  RiskLevel `json:"customer_satisfaction_risk"`
	DataSecurityRisk          RiskLevel `json:"data_security_risk"`
	RequiresSupervisorReview  bool      `json:"requires_supervisor_review"`
	RequiresImmediateCoaching bool      `json:"requires_immediate_coaching"`
}

// DetectedPatterns are behavior snapshots. Every block is always present;
// null fields mean "not applicable".
type DetectedPatterns struct {
	SearchPatterns     SearchPatterns     `json:"search_patterns"`
	TimingCompliance   TimingCompliance   `json:"timing_compliance"`
	EchoMethodPatterns EchoMethodPatterns `json:"echo_method_patterns"`
	ScriptCompliance   ScriptCompliance   `json:"script_compliance"`
}

// SearchPatterns describes information searches.
type SearchPatterns struct {
	SearchAnnounced     bool     `json:"search_announced"`
	SearchCount         int      `json:"search_count"`
	SearchDurationSec   *float64 `json:"search_duration_sec"`
	CustomerCheckIns    int      `json:"customer_check_ins"`
	ThankYouAfterSearch bool     `json:"thank_you_after_search"`
}

// TimingCompliance describes intro and outro latency.
type TimingCompliance struct {
	IntroTimeSec       *float64 `json:"intro_time_sec"`
	IntroWithin5s      *bool    `json:"intro_within_5s"`
	DisconnectTimeSec  *float64 `json:"disconnect_time_sec"`
	DisconnectWithin5s *bool    `json:"disconnect_within_5s"`
	MaxSilenceSec      float64  `json:"max_silence_sec"`
	MaxSilenceStartSec *float64 `json:"max_silence_start_sec"`
}

// EchoMethodPatterns describes contact-data collection.
type EchoMethodPatterns struct {
	ContactDataCaptured  bool            `json:"contact_data_captured"`
	EntitiesCollected    []string        `json:"entities_collected"`
	EchoPerformed        map[string]bool `json:"echo_performed"`
	ConfirmationReceived map[string]bool `json:"confirmation_received"`
}

// ScriptCompliance describes greeting and closing structure.
type ScriptCompliance struct {
	GreetingPresent              bool `json:"greeting_present"`
	CompanyNameMentioned         bool `json:"company_name_mentioned"`
	OperatorNameMentioned        bool `json:"operator_name_mentioned"`
	OfferOfHelp                  bool `json:"offer_of_help"`
	ClosingPresent               bool `json:"closing_present"`
	CustomerNameUsed             bool `json:"customer_name_used"`
	CustomerOrientationQuestions int  `json:"customer_orientation_questions"`
}

// CriterionAssessment is the single finalized outcome of one rubric code.
type CriterionAssessment struct {
	Code       string          `json:"code"`
	Status     Status          `json:"status"`
	Confidence ConfidenceLevel `json:"confidence"`
	Evidence   string          `json:"evidence"`
	Note       *string         `json:"note"`
}

// DataQuality records what the grading was based on.
type DataQuality struct {
	DataSourcesUsed      []string `json:"data_sources_used"`
	TranscriptionQuality string   `json:"transcription_quality"`
	UtteranceCount       int      `json:"utterance_count"`
	InferredSpeakers     int      `json:"inferred_speakers"`
	SkippedCues          int      `json:"skipped_cues"`
	ConfidenceNotes      *string  `json:"confidence_notes"`
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string { return &s }

// FloatPtr returns a pointer to f.
func FloatPtr(f float64) *float64 { return &f }

// BoolPtr returns a pointer to b.
func BoolPtr(b bool) *bool { return &b }

// IntPtr returns a pointer to n.
func IntPtr(n int) *int { return &n }
