package search

import (
	"testing"

	"github.com/granin/sample20calls/internal/profile"
	"github.com/granin/sample20calls/internal/schema"
	"github.com/granin/sample20calls/internal/transcript"
)

func agent(start float64, text string) transcript.Utterance {
	return transcript.Utterance{Speaker: transcript.SpeakerAgent, Start: start, End: start + 2, Text: text}
}

func customer(start float64, text string) transcript.Utterance {
	return transcript.Utterance{Speaker: transcript.SpeakerCustomer, Start: start, End: start + 2, Text: text}
}

func TestIsAnnouncement(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"Одну минуточку, сейчас посмотрю.", true},
		{"Секундочку.", true},
		{"Подождите, пожалуйста.", true},
		{"Давайте я посмотрю по базе.", true},
		{"Сейчас проверю наличие.", true},
		{"Ещё немного, пожалуйста.", false},
		{"Ещё секундочку.", false},
		{"Почти готово.", false},
		{"Размер 205/55 есть в наличии.", false},
		{"Доставка через пятиминутку.", false},
	}
	for _, tt := range tests {
		if got := IsAnnouncement(tt.text); got != tt.want {
			t.Errorf("IsAnnouncement(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}

func TestIsAnswer(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"Нашла, есть в наличии.", true},
		{"Так, цена 5000 рублей.", true},
		{"Спасибо за ожидание.", true},
		{"Отправим завтра.", true},
		{"Так...", false},
		{"Угу.", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsAnswer(tt.text); got != tt.want {
			t.Errorf("IsAnswer(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}

func TestClassify(t *testing.T) {
	th := profile.Standard().Search
	tests := []struct {
		d          float64
		status     schema.Status
		flagWindow bool
		grade      int
	}{
		{10, schema.StatusPass, false, 0},
		{40, schema.StatusPass, false, 0},
		{40.001, schema.StatusFlag, true, 0},
		{45, schema.StatusFlag, true, 0},
		{45.5, schema.StatusViolation, false, 9},
		{120, schema.StatusViolation, false, 9},
	}
	for _, tt := range tests {
		a := Classify(tt.d, th)
		if a.Status != tt.status || a.FlagWindow != tt.flagWindow || a.Grade != tt.grade {
			t.Errorf("Classify(%v) = %s flag=%v grade=%d, want %s flag=%v grade=%d",
				tt.d, a.Status, a.FlagWindow, a.Grade, tt.status, tt.flagWindow, tt.grade)
		}
	}
	v := Classify(52, th)
	if v.ExceedsBy == nil || *v.ExceedsBy != 7 {
		t.Errorf("ExceedsBy = %v, want 7", v.ExceedsBy)
	}
	if p := Classify(10, th); p.GradeImpact != nil {
		t.Errorf("PASS GradeImpact = %v, want nil", *p.GradeImpact)
	}
	if f := Classify(42, th); f.GradeImpact == nil || *f.GradeImpact != 10 {
		t.Errorf("FLAG GradeImpact = %v, want 10", f.GradeImpact)
	}
}

func TestExtract_SingleWindow(t *testing.T) {
	tr := transcript.New(
		agent(2, "Добрый день, компания Колеса."),
		customer(5, "Есть шины 205/55?"),
		agent(30, "Одну минуту, сейчас посмотрю."),
		customer(40, "Хорошо."),
		agent(60, "Ещё немного."),
		agent(82, "Нашла, размер 205/55 есть в наличии."),
	)
	ws := Extract(tr, profile.Standard())
	if len(ws) != 1 {
		t.Fatalf("len(windows) = %d, want 1", len(ws))
	}
	w := ws[0]
	if w.Start != 30 || w.End != 82 || w.Duration != 52 {
		t.Errorf("window = %v..%v (%v), want 30..82 (52)", w.Start, w.End, w.Duration)
	}
	if w.AnnouncementIndex != 2 || w.AnswerIndex != 5 {
		t.Errorf("indices = %d/%d, want 2/5", w.AnnouncementIndex, w.AnswerIndex)
	}
	if w.Assessment.Status != schema.StatusViolation || w.Assessment.Grade != 9 {
		t.Errorf("assessment = %+v", w.Assessment)
	}
	if len(w.CheckIns) != 2 {
		t.Fatalf("len(CheckIns) = %d, want 2", len(w.CheckIns))
	}
	if w.CheckIns[0].Note != ImpatienceNote {
		t.Errorf("customer check-in note = %q", w.CheckIns[0].Note)
	}
	if w.CheckIns[1].Note != "" || w.CheckIns[1].Speaker != transcript.SpeakerAgent {
		t.Errorf("agent check-in = %+v", w.CheckIns[1])
	}
}

func TestExtract_Merge(t *testing.T) {
	tests := []struct {
		name string
		gap  float64
		want int
	}{
		{"10s apart merge", 10, 1},
		{"30s apart merge", 30, 1},
		{"40s apart split", 40, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			second := 10 + tt.gap
			tr := transcript.New(
				agent(10, "Минуточку."),
				agent(second, "Секунду, уточню."),
				agent(second+5, "Нашла, есть в наличии."),
			)
			ws := Extract(tr, profile.Standard())
			if len(ws) != tt.want {
				t.Fatalf("len(windows) = %d, want %d", len(ws), tt.want)
			}
			if ws[0].Start != 10 {
				t.Errorf("first window start = %v, want 10", ws[0].Start)
			}
		})
	}
}

func TestExtract_MergeChains(t *testing.T) {
	tr := transcript.New(
		agent(0, "Минуточку."),
		agent(25, "Подождите."),
		agent(50, "Секундочку."),
		agent(60, "Нашла, есть."),
	)
	ws := Extract(tr, profile.Standard())
	if len(ws) != 1 {
		t.Fatalf("len(windows) = %d, want 1", len(ws))
	}
	if ws[0].Duration != 60 {
		t.Errorf("Duration = %v, want 60", ws[0].Duration)
	}
}

func TestExtract_NoAnswerDropped(t *testing.T) {
	tr := transcript.New(
		agent(0, "Добрый день."),
		agent(10, "Минуточку, сейчас посмотрю."),
		customer(20, "Жду."),
		agent(30, "Угу."),
	)
	if ws := Extract(tr, profile.Standard()); len(ws) != 0 {
		t.Errorf("len(windows) = %d, want 0", len(ws))
	}
}

func TestExtract_CustomerAnnouncementIgnored(t *testing.T) {
	tr := transcript.New(
		customer(0, "Минуточку, я найду номер заказа."),
		agent(20, "Отлично, слушаю."),
	)
	if ws := Extract(tr, profile.Standard()); len(ws) != 0 {
		t.Errorf("len(windows) = %d, want 0", len(ws))
	}
}

func TestReport(t *testing.T) {
	tr := transcript.New(
		agent(30, "Одну минуту, сейчас посмотрю."),
		customer(40, "Хорошо."),
		agent(82, "Нашла, есть в наличии."),
		agent(100, "Секунду."),
		agent(142, "Так, цена 5000."),
	)
	ws := Extract(tr, profile.Standard())
	rep := Report("call_08", tr, ws)
	if rep.TotalSearches != 2 {
		t.Fatalf("TotalSearches = %d, want 2", rep.TotalSearches)
	}
	if rep.Summary.ViolationsCount != 1 || rep.Summary.FlagCount != 1 {
		t.Errorf("summary = %+v, want 1 violation 1 flag", rep.Summary)
	}
	if rep.Summary.LongestSearch != 52 || rep.Summary.TotalDurationAllSearches != 94 {
		t.Errorf("longest/total = %v/%v, want 52/94", rep.Summary.LongestSearch, rep.Summary.TotalDurationAllSearches)
	}
	if rep.FinalAssessment.Status != schema.StatusViolation || rep.FinalAssessment.GradeImpact != 9 {
		t.Errorf("final = %+v", rep.FinalAssessment)
	}
	s := rep.Searches[0]
	if s.StartTimestamp != "0:00:30.000" || s.EndLineNumber != 3 || s.DurationFormatted != "52.0s" {
		t.Errorf("search[0] = %+v", s)
	}
	if len(s.CheckIns) != 1 || s.CheckIns[0].Note == nil {
		t.Errorf("check-ins = %+v", s.CheckIns)
	}
}

func TestReport_Empty(t *testing.T) {
	rep := Report("call_01", transcript.New(), nil)
	if rep.FinalAssessment.Status != schema.StatusPass || rep.FinalAssessment.FlagForCoaching {
		t.Errorf("final = %+v", rep.FinalAssessment)
	}
	if rep.Searches == nil {
		t.Error("Searches is nil, want empty slice")
	}
}

func TestFormatDuration(t *testing.T) {
	if got := FormatDuration(72.5); got != "1m 12.5s" {
		t.Errorf("FormatDuration(72.5) = %q", got)
	}
	if got := FormatDuration(9); got != "9.0s" {
		t.Errorf("FormatDuration(9) = %q", got)
	}
}
