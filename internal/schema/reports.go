package schema

// TimingReport is the standalone search-timing extraction for criterion 9.1.
// It serves as ground truth for cross-grader validation.
type TimingReport struct {
	CallID          string          `json:"call_id"`
	TotalSearches   int             `json:"total_searches"`
	Searches        []SearchRecord  `json:"searches"`
	Summary         TimingSummary   `json:"summary"`
	FinalAssessment FinalAssessment `json:"final_9_1_assessment"`
}

// SearchRecord describes one announcement-to-answer window.
type SearchRecord struct {
	SearchNumber      int              `json:"search_number"`
	StartTimestamp    string           `json:"start_timestamp"`
	StartLineNumber   int              `json:"start_line_number"`
	StartPhrase       string           `json:"start_phrase"`
	StartSpeaker      string           `json:"start_speaker"`
	EndTimestamp      string           `json:"end_timestamp"`
	EndLineNumber     int              `json:"end_line_number"`
	EndPhrase         string           `json:"end_phrase"`
	EndSpeaker        string           `json:"end_speaker"`
	DurationSeconds   float64          `json:"duration_seconds"`
	DurationFormatted string           `json:"duration_formatted"`
	CheckIns          []CheckInRecord  `json:"check_ins"`
	Assessment        SearchAssessment `json:"assessment"`
}

// CheckInRecord is an utterance observed strictly inside a search window.
type CheckInRecord struct {
	Timestamp  string  `json:"timestamp"`
	Phrase     string  `json:"phrase"`
	Speaker    string  `json:"speaker"`
	LineNumber int     `json:"line_number"`
	Note       *string `json:"note"`
}

// SearchAssessment classifies one search duration.
type SearchAssessment struct {
	Status           Status `json:"status"`
	ThresholdApplied string `json:"threshold_applied"`
	FlagWindow       bool   `json:"flag_window"`
	// GradeImpact is the grade the standalone tool attributes to the search:
	// null for PASS, 10 for FLAG, 9 for VIOLATION. It is independent of the
	// score_reduction semantics of the grading result.
	GradeImpact        *int     `json:"grade_impact"`
	ExceedsThresholdBy *float64 `json:"exceeds_threshold_by,omitempty"`
	CoachingNote       string   `json:"coaching_note"`
}

// TimingSummary aggregates a TimingReport.
type TimingSummary struct {
	TotalDurationAllSearches float64 `json:"total_duration_all_searches"`
	LongestSearch            float64 `json:"longest_search"`
	ViolationsCount          int     `json:"violations_count"`
	FlagCount                int     `json:"flag_count"`
	PassCount                int     `json:"pass_count"`
}

// FinalAssessment is the per-criterion verdict of a ground-truth report.
type FinalAssessment struct {
	Criterion       string `json:"criterion"`
	Status          Status `json:"status"`
	GradeImpact     int    `json:"grade_impact"`
	FlagForCoaching bool   `json:"flag_for_coaching,omitempty"`
	ViolationsFound int    `json:"violations_found,omitempty"`
	Note            string `json:"note,omitempty"`
}

// GratitudeReport is the standalone gratitude extraction for criterion 9.3.
type GratitudeReport struct {
	CallID          string            `json:"call_id"`
	Searches        []GratitudeRecord `json:"searches"`
	Summary         GratitudeSummary  `json:"summary"`
	FinalAssessment FinalAssessment   `json:"final_9_3_assessment"`
}

// GratitudeRecord is the gratitude check for one search.
type GratitudeRecord struct {
	SearchNumber    int            `json:"search_number"`
	DurationSeconds float64        `json:"duration_seconds"`
	EndTimestamp    string         `json:"end_timestamp"`
	EndPhrase       string         `json:"end_phrase"`
	GratitudeCheck  GratitudeCheck `json:"gratitude_check"`
}

// GratitudeCheck details whether thanks were required and found.
type GratitudeCheck struct {
	Required           bool     `json:"required"`
	Rationale          string   `json:"rationale"`
	GratitudeFound     bool     `json:"gratitude_found"`
	GratitudePhrase    *string  `json:"gratitude_phrase"`
	GratitudeTimestamp *string  `json:"gratitude_timestamp"`
	TimeAfterSearch    *float64 `json:"time_after_search"`
	Location           *string  `json:"location"`
	Assessment         Status   `json:"assessment"`
	ViolationNote      *string  `json:"violation_note"`
}

// GratitudeSummary aggregates a GratitudeReport.
type GratitudeSummary struct {
	TotalSearches              int   `json:"total_searches"`
	SearchesRequiringGratitude int   `json:"searches_requiring_gratitude"`
	SearchesWithGratitude      int   `json:"searches_with_gratitude"`
	Violations                 int   `json:"violations"`
	ViolationSearchNumbers     []int `json:"violation_search_numbers"`
}
