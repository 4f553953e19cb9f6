package verdict

import (
	"testing"

	"github.com/granin/sample20calls/internal/schema"
)

func v(code string, grade int, conf float64, affecting bool) schema.Violation {
	return schema.Violation{
		Code:           code,
		Grade:          grade,
		Title:          "title " + code,
		Confidence:     conf,
		ScoreReduction: affecting,
		FlagWindow:     !affecting,
		SOTFlag:        affecting,
	}
}

func TestFinalGrade(t *testing.T) {
	cases := []struct {
		name    string
		in      []schema.Violation
		grade   int
		primary string
	}{
		{"none", nil, 10, ""},
		{"single", []schema.Violation{v("7.1", 7, 0.8, true)}, 7, "7.1"},
		{"lowest wins", []schema.Violation{v("9.1", 9, 1, true), v("3.3", 3, 0.9, true), v("7.2", 7, 0.92, true)}, 3, "3.3"},
		{"tie keeps first", []schema.Violation{v("9.1", 9, 1, true), v("9.3", 9, 0.78, true)}, 9, "9.1"},
		{"many never compound", []schema.Violation{v("7.1", 7, 1, true), v("7.2", 7, 1, true), v("7.3", 7, 1, true), v("7.4", 7, 1, true)}, 7, "7.1"},
	}
	for _, c := range cases {
		grade, primary := FinalGrade(ScoreAffecting(c.in))
		if grade != c.grade {
			t.Errorf("%s: grade = %d, want %d", c.name, grade, c.grade)
		}
		got := ""
		if primary != nil {
			got = *primary
		}
		if got != c.primary {
			t.Errorf("%s: primary = %q, want %q", c.name, got, c.primary)
		}
	}
}

func TestAggregate_FlagOnlyDoesNotScore(t *testing.T) {
	s := Aggregate([]schema.Violation{v("9.1", 9, 1, false)}, nil, 0.75)
	if s.Final.FinalGrade != 10 || s.Final.PrimaryViolation != nil {
		t.Errorf("final = %+v, want grade 10 without primary", s.Final)
	}
	if s.Summary.FlagOnlyViolations != 1 || s.Summary.ScoreAffectingViolations != 0 || s.Summary.TotalViolations != 1 {
		t.Errorf("summary = %+v", s.Summary)
	}
	if s.Risk.ComplianceRisk != schema.RiskLow || s.Risk.RequiresImmediateCoaching {
		t.Errorf("risk = %+v", s.Risk)
	}
	if len(s.Coaching) != 0 {
		t.Errorf("coaching = %+v, want none", s.Coaching)
	}
}

func TestAggregate_Review(t *testing.T) {
	s := Aggregate([]schema.Violation{v("9.3", 9, 0.7, true)}, nil, 0.75)
	if !s.Final.RequiresReview || s.Final.Confidence != schema.ConfidenceMedium || s.Final.ReviewReason == nil {
		t.Errorf("final = %+v, want review", s.Final)
	}
	if !s.Risk.RequiresSupervisorReview {
		t.Error("RequiresSupervisorReview = false, want true")
	}
	s = Aggregate([]schema.Violation{v("9.3", 9, 0.78, true)}, nil, 0.75)
	if s.Final.RequiresReview {
		t.Error("RequiresReview = true at confidence 0.78")
	}
}

func TestAggregate_AllViolationGrades(t *testing.T) {
	s := Aggregate([]schema.Violation{v("9.1", 9, 1, true), v("7.1", 7, 1, true), v("7.2", 7, 1, true)}, nil, 0.75)
	if got := s.Final.AllViolationGrades; len(got) != 2 || got[0] != 7 || got[1] != 9 {
		t.Errorf("AllViolationGrades = %v, want [7 9]", got)
	}
	if !s.Final.LowestCodeRuleApplied {
		t.Error("LowestCodeRuleApplied = false, want true")
	}
	if s.Summary.ViolationsByGrade["7"] != 2 || s.Summary.ViolationsByGrade["9"] != 1 {
		t.Errorf("ViolationsByGrade = %v", s.Summary.ViolationsByGrade)
	}
}

func TestRisk(t *testing.T) {
	cases := []struct {
		name       string
		in         []schema.Violation
		compliance schema.RiskLevel
		csat       schema.RiskLevel
		security   schema.RiskLevel
	}{
		{"none", nil, schema.RiskLow, schema.RiskLow, schema.RiskLow},
		{"grade 9", []schema.Violation{v("9.1", 9, 1, true)}, schema.RiskMedium, schema.RiskLow, schema.RiskLow},
		{"grade 5", []schema.Violation{v("5.1", 5, 1, true)}, schema.RiskHigh, schema.RiskMedium, schema.RiskLow},
		{"grade 3 security", []schema.Violation{v("3.3", 3, 0.9, true)}, schema.RiskCritical, schema.RiskHigh, schema.RiskHigh},
	}
	for _, c := range cases {
		r := Risk(c.in, false)
		if r.ComplianceRisk != c.compliance || r.CustomerSatisfactionRisk != c.csat || r.DataSecurityRisk != c.security {
			t.Errorf("%s: risk = %+v", c.name, r)
		}
	}
}

func TestCoachingPriorities(t *testing.T) {
	in := []schema.Violation{
		v("9.1", 9, 1, true),
		v("7.2", 7, 0.92, true),
		v("4.1", 4, 0.9, true),
		v("7.3", 7, 1, true),
	}
	got := CoachingPriorities(in)
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	wantCodes := []string{"4.1", "7.2", "7.3"}
	for i, p := range got {
		if p.Priority != i+1 || p.RelatedCriterion != wantCodes[i] {
			t.Errorf("priority[%d] = %+v, want code %s", i, p, wantCodes[i])
		}
	}
	if got[0].Recommendation != fallbackRecommendation {
		t.Errorf("4.1 recommendation = %q, want fallback", got[0].Recommendation)
	}
	if got[1].Recommendation != Recommendation("7.2") || got[1].Issue != "title 7.2" {
		t.Errorf("7.2 priority = %+v", got[1])
	}
}

func TestPositiveObservations(t *testing.T) {
	var c schema.CriteriaAssessment
	for _, code := range []string{"7.1", "7.2", "7.3", "7.4", "6.1", "9.1", "9.3", "3.1", "3.3", "3.6", "5.1", "10.2", "10.3", "10.6", "2.1", "1.1", "4.1"} {
		c = append(c, schema.CriterionAssessment{Code: code, Status: schema.StatusPass, Confidence: schema.ConfidenceHigh})
	}
	got := PositiveObservations(c)
	if len(got) != MaxPositiveObservations {
		t.Fatalf("len = %d, want %d", len(got), MaxPositiveObservations)
	}
	if got[0] != positiveObservations["7.1"] || got[1] != positiveObservations["7.3"] || got[2] != positiveObservations["9.1"] {
		t.Errorf("order = %v, want assessment order", got)
	}

	c[0].Status = schema.StatusViolation
	c[2].Confidence = schema.ConfidenceMedium
	got = PositiveObservations(c)
	for _, obs := range got {
		if obs == positiveObservations["7.1"] || obs == positiveObservations["7.3"] {
			t.Errorf("unexpected observation %q", obs)
		}
	}
}

func TestBelowThreshold(t *testing.T) {
	if BelowThreshold(7, 0) {
		t.Error("threshold 0 must never fail")
	}
	if !BelowThreshold(7, 8) || BelowThreshold(8, 8) {
		t.Error("BelowThreshold boundary wrong")
	}
}
