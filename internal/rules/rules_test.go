package rules

import (
	"encoding/json"
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

func evaluate(utts ...transcript.Utterance) *Evaluation {
	return Evaluate(NewInput(transcript.New(utts...), profile.Standard(), 0))
}

func status(t *testing.T, ev *Evaluation, code string) schema.Status {
	t.Helper()
	a, ok := ev.Criteria.Get(code)
	if !ok {
		t.Fatalf("no assessment for %s", code)
	}
	return a.Status
}

func violationsFor(ev *Evaluation, code string) []schema.Violation {
	var out []schema.Violation
	for _, v := range ev.Violations {
		if v.Code == code {
			out = append(out, v)
		}
	}
	return out
}

// cleanCall has a greeting at 2s, customer speech every 10s and a closing
// at 118s; no gap exceeds 12s.
func cleanCall() []transcript.Utterance {
	utts := []transcript.Utterance{
		{Speaker: transcript.SpeakerAgent, Start: 2, End: 6, Text: "Добрый день, компания Колеса, меня зовут Анна, как я могу помочь?"},
	}
	for s := 10.0; s < 110; s += 10 {
		utts = append(utts, transcript.Utterance{Speaker: transcript.SpeakerCustomer, Start: s, End: s + 8, Text: "Да, я хотел уточнить."})
	}
	utts = append(utts, transcript.Utterance{Speaker: transcript.SpeakerCustomer, Start: 106, End: 116, Text: "Хорошо, понятно."})
	utts = append(utts, transcript.Utterance{Speaker: transcript.SpeakerAgent, Start: 118, End: 120, Text: "Спасибо, до свидания!"})
	return utts
}

func longSearchCall() []transcript.Utterance {
	return []transcript.Utterance{
		agent(2, "Добрый день, компания Колеса, слушаю вас."),
		customer(6, "Есть шины 205/55 R16?"),
		agent(30, "Одну минуту, сейчас посмотрю."),
		customer(50, "Жду."),
		agent(82, "Нашла, такой размер есть в наличии."),
		customer(86, "Отлично."),
		agent(90, "Спасибо за звонок, до свидания!"),
	}
}

func TestEvaluate_AllCodesAlwaysAssessed(t *testing.T) {
	tests := []struct {
		name string
		utts []transcript.Utterance
	}{
		{"empty", nil},
		{"clean", cleanCall()},
		{"all agent", []transcript.Utterance{agent(0, "Алло?"), agent(5, "Минуточку."), agent(60, "Ничего не слышно.")}},
		{"all customer", []transcript.Utterance{customer(0, "Алло?"), customer(70, "Есть кто?")}},
		{"long search", longSearchCall()},
	}
	want := Codes()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := evaluate(tt.utts...)
			got := ev.Criteria.Codes()
			if len(got) != 17 || len(got) != len(want) {
				t.Fatalf("len(criteria) = %d, want 17", len(got))
			}
			seen := map[string]bool{}
			for i, c := range got {
				if c != want[i] {
					t.Errorf("criteria[%d] = %s, want %s", i, c, want[i])
				}
				if seen[c] {
					t.Errorf("duplicate code %s", c)
				}
				seen[c] = true
				a, _ := ev.Criteria.Get(c)
				switch a.Status {
				case schema.StatusPass, schema.StatusFlag, schema.StatusViolation:
				default:
					t.Errorf("%s status = %q", c, a.Status)
				}
			}
		})
	}
}

func TestEvaluate_CleanCall(t *testing.T) {
	ev := evaluate(cleanCall()...)
	for _, code := range []string{"7.1", "7.3", "6.1", "9.1", "9.3"} {
		if got := status(t, ev, code); got != schema.StatusPass {
			t.Errorf("%s = %s, want PASS", code, got)
		}
	}
	if len(ev.Violations) != 0 {
		t.Errorf("violations = %+v, want none", ev.Violations)
	}
	a, _ := ev.Criteria.Get("9.1")
	if a.Note == nil || *a.Note != noteNotApplicable {
		t.Errorf("9.1 note = %v, want not applicable", a.Note)
	}
	sc := ev.Patterns.ScriptCompliance
	if !sc.GreetingPresent || !sc.CompanyNameMentioned || !sc.OperatorNameMentioned || !sc.OfferOfHelp || !sc.ClosingPresent {
		t.Errorf("script compliance = %+v", sc)
	}
	tc := ev.Patterns.TimingCompliance
	if tc.IntroTimeSec == nil || *tc.IntroTimeSec != 2 || tc.IntroWithin5s == nil || !*tc.IntroWithin5s {
		t.Errorf("timing compliance = %+v", tc)
	}
}

func TestEvaluate_LongSearchWithoutThanks(t *testing.T) {
	ev := evaluate(longSearchCall()...)
	if got := status(t, ev, "9.1"); got != schema.StatusViolation {
		t.Errorf("9.1 = %s, want VIOLATION", got)
	}
	if got := status(t, ev, "9.3"); got != schema.StatusViolation {
		t.Errorf("9.3 = %s, want VIOLATION", got)
	}
	v91 := violationsFor(ev, "9.1")
	if len(v91) != 1 || v91[0].Grade != 9 || !v91[0].ScoreReduction || v91[0].FlagWindow {
		t.Errorf("9.1 violations = %+v", v91)
	}
	if v91[0].TimestampStart != "0:30.000" || v91[0].TimestampEnd == nil || *v91[0].TimestampEnd != "0:40.000" {
		t.Errorf("9.1 timestamps = %s..%v", v91[0].TimestampStart, v91[0].TimestampEnd)
	}
	if v93 := violationsFor(ev, "9.3"); len(v93) != 1 || v93[0].Grade != 9 || v93[0].Confidence != 0.78 {
		t.Errorf("9.3 violations = %+v", v93)
	}
	if len(ev.Violations) != 2 {
		t.Errorf("len(violations) = %d, want 2: %+v", len(ev.Violations), ev.Violations)
	}
	sp := ev.Patterns.SearchPatterns
	if !sp.SearchAnnounced || sp.SearchCount != 1 || sp.SearchDurationSec == nil || *sp.SearchDurationSec != 52 || sp.ThankYouAfterSearch {
		t.Errorf("search patterns = %+v", sp)
	}
}

func TestEvaluate_FlagWindowSearch(t *testing.T) {
	ev := evaluate(
		agent(2, "Добрый день, компания Колеса."),
		agent(10, "Минуточку."),
		agent(52, "Спасибо за ожидание, цена 5000."),
		agent(56, "Всего доброго."),
	)
	v := violationsFor(ev, "9.1")
	if len(v) != 1 || !v[0].FlagWindow || v[0].ScoreReduction || v[0].Severity != schema.SeverityFlagOnly || v[0].SOTFlag {
		t.Fatalf("9.1 violations = %+v", v)
	}
	if got := status(t, ev, "9.1"); got != schema.StatusFlag {
		t.Errorf("9.1 = %s, want FLAG", got)
	}
	if got := status(t, ev, "9.3"); got != schema.StatusPass {
		t.Errorf("9.3 = %s, want PASS", got)
	}
}

func TestEvaluate_NoAgentSpeech(t *testing.T) {
	ev := evaluate(customer(0, "Алло?"), customer(70, "Есть кто?"))
	if got := status(t, ev, "7.1"); got != schema.StatusViolation {
		t.Errorf("7.1 = %s, want VIOLATION", got)
	}
	if got := status(t, ev, "2.1"); got != schema.StatusViolation {
		t.Errorf("2.1 = %s, want VIOLATION", got)
	}
	// 68s of silence ending on the customer reads as a hangup.
	if got := status(t, ev, "6.1"); got != schema.StatusViolation {
		t.Errorf("6.1 = %s, want VIOLATION", got)
	}
	if got := status(t, ev, "7.3"); got != schema.StatusPass {
		t.Errorf("7.3 = %s, want PASS", got)
	}
}

func TestEvaluate_ScriptViolations(t *testing.T) {
	ev := evaluate(
		agent(1, "Алло."),
		customer(4, "Здравствуйте."),
		agent(7, "Ну всё."),
	)
	v := violationsFor(ev, "7.1")
	if len(v) != 2 {
		t.Fatalf("7.1 violations = %+v, want greeting and closing", v)
	}
	if v[0].Confidence != 0.80 || v[1].Confidence != 0.75 {
		t.Errorf("confidences = %v, %v", v[0].Confidence, v[1].Confidence)
	}
	a, _ := ev.Criteria.Get("7.1")
	if a.Evidence != v[0].Evidence {
		t.Errorf("assessment evidence = %q, want first violation", a.Evidence)
	}
}

func TestEvaluate_IntroAndOutroLatency(t *testing.T) {
	tr := transcript.New(
		agent(8, "Добрый день, компания Колеса."),
		agent(20, "До свидания."),
	)
	ev := Evaluate(NewInput(tr, profile.Standard(), 40))
	v := violationsFor(ev, "7.3")
	if len(v) != 2 {
		t.Fatalf("7.3 violations = %+v, want intro and outro", v)
	}
	if v[0].StartSec != 0 || v[1].StartSec != 22 {
		t.Errorf("starts = %v, %v, want 0, 22", v[0].StartSec, v[1].StartSec)
	}
	tc := ev.Patterns.TimingCompliance
	if tc.DisconnectTimeSec == nil || *tc.DisconnectTimeSec != 18 || *tc.DisconnectWithin5s {
		t.Errorf("timing compliance = %+v", tc)
	}
}

func TestEvaluate_Interruption(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  schema.Status
	}{
		{"no apology", "Так вот, цена 5000.", schema.StatusViolation},
		{"apology", "Извините, что перебиваю, цена 5000.", schema.StatusPass},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := evaluate(
				agent(1, "Добрый день, компания Колеса."),
				transcript.Utterance{Speaker: transcript.SpeakerCustomer, Start: 4, End: 10, Text: "Я хотел спросить про доставку."},
				agent(8, tt.reply),
				agent(12, "До свидания."),
			)
			if got := status(t, ev, "7.4"); got != tt.want {
				t.Errorf("7.4 = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestEvaluate_EchoMissingConfirmation(t *testing.T) {
	ev := evaluate(
		agent(1, "Добрый день, компания Колеса."),
		agent(5, "Назовите ваш номер телефона."),
		customer(8, "87015551234."),
		agent(12, "Записала."),
		agent(14, "Как вас зовут?"),
		customer(16, "Иван."),
		agent(18, "Иван, верно?"),
		agent(22, "До свидания."),
	)
	v := violationsFor(ev, "7.2")
	if len(v) != 1 || v[0].Confidence != 0.92 || v[0].StartSec != 8 {
		t.Fatalf("7.2 violations = %+v", v)
	}
	ep := ev.Patterns.EchoMethodPatterns
	if !ep.ContactDataCaptured || !ep.ConfirmationReceived["name"] || ep.ConfirmationReceived["phone"] {
		t.Errorf("echo patterns = %+v", ep)
	}
	if !ev.Patterns.ScriptCompliance.CustomerNameUsed {
		t.Error("CustomerNameUsed = false, want true")
	}
}

func TestEvaluate_CheckInIsNotEmailRequest(t *testing.T) {
	ev := evaluate(
		agent(1, "Добрый день, компания Колеса, слушаю вас."),
		agent(5, "Одну минуту, сейчас посмотрю."),
		agent(15, "Почти готово."),
		customer(17, "Хорошо, жду."),
		agent(25, "Нашла, такой размер есть в наличии."),
		agent(28, "Спасибо за ожидание, до свидания!"),
	)
	if got := status(t, ev, "7.2"); got != schema.StatusPass {
		t.Errorf("7.2 = %s, want PASS", got)
	}
	if v := violationsFor(ev, "7.2"); len(v) != 0 {
		t.Errorf("7.2 violations = %+v, want none", v)
	}
}

func TestEvaluate_ConfidentialAndRudeness(t *testing.T) {
	ev := evaluate(
		agent(1, "Добрый день, компания Колеса."),
		agent(5, "Запишите пароль от кабинета."),
		agent(9, "Отстань, до свидания."),
	)
	v := violationsFor(ev, "3.3")
	if len(v) != 1 || v[0].Grade != 3 || v[0].Confidence != 0.90 {
		t.Errorf("3.3 violations = %+v", v)
	}
	r := violationsFor(ev, "1.1")
	if len(r) != 1 || r[0].Grade != 1 || r[0].StartSec != 9 {
		t.Errorf("1.1 violations = %+v", r)
	}
}

func TestEvaluate_Idempotent(t *testing.T) {
	tr := transcript.New(longSearchCall()...)
	a := Evaluate(NewInput(tr, profile.Standard(), 0))
	b := Evaluate(NewInput(tr, profile.Standard(), 0))
	ja, _ := json.Marshal(a)
	jb, _ := json.Marshal(b)
	if string(ja) != string(jb) {
		t.Errorf("evaluations differ:\n%s\n%s", ja, jb)
	}
}

func TestEvaluate_RecoversPanickingCheck(t *testing.T) {
	saved := Checks
	t.Cleanup(func() { Checks = saved })
	Checks = append([]Check(nil), saved...)
	Checks[0].Run = func(*Input) []Finding { panic("boom") }

	ev := evaluate(cleanCall()...)
	if len(ev.Failed) != 1 || ev.Failed[0] != "7.1" {
		t.Fatalf("Failed = %v, want [7.1]", ev.Failed)
	}
	a, _ := ev.Criteria.Get("7.1")
	if a.Status != schema.StatusPass || a.Confidence != schema.ConfidenceLow {
		t.Errorf("7.1 = %+v, want low-confidence PASS", a)
	}
	if got := status(t, ev, "7.3"); got != schema.StatusPass {
		t.Errorf("7.3 = %s, want PASS after 7.1 panicked", got)
	}
	if len(ev.Criteria) != 17 {
		t.Errorf("len(criteria) = %d, want 17", len(ev.Criteria))
	}
}

func TestLedger_Merge(t *testing.T) {
	l := NewLedger(100)
	l.Add(Pass("7.1", schema.ConfidenceHigh, "ok"))
	l.Add(Violation("7.1", 7, 5, 0.8, "first"))
	l.Add(Violation("7.1", 7, 50, 0.75, "second"))
	l.Add(Pass("7.1", schema.ConfidenceHigh, "late pass"))

	l.Add(Flag("9.1", 9, 10, 1.0, "flag"))
	l.Add(Violation("9.1", 9, 60, 1.0, "violation"))

	l.Add(Violation("9.3", 9, 95, 0.78, "near end"))

	crit := l.Criteria([]string{"7.1", "9.1", "9.3", "4.1"})
	if a, _ := crit.Get("7.1"); a.Status != schema.StatusViolation || a.Evidence != "first" {
		t.Errorf("7.1 = %+v, want first violation", a)
	}
	if a, _ := crit.Get("9.1"); a.Status != schema.StatusViolation || a.Evidence != "violation" {
		t.Errorf("9.1 = %+v, want upgraded violation", a)
	}
	if a, _ := crit.Get("4.1"); a.Status != schema.StatusPass || a.Note == nil {
		t.Errorf("4.1 = %+v, want not applicable PASS", a)
	}
	vs := l.Violations()
	if len(vs) != 5 {
		t.Fatalf("len(violations) = %d, want 5", len(vs))
	}
	if vs[4].TimestampEnd != nil {
		t.Errorf("TimestampEnd = %v, want nil past call end", *vs[4].TimestampEnd)
	}
	if vs[0].Title != "Script violations" {
		t.Errorf("Title = %q", vs[0].Title)
	}
}

func TestOperatorName(t *testing.T) {
	tr := transcript.New(
		agent(0, "Добрый день, меня зовут Анна."),
		customer(3, "Здравствуйте, Анна."),
	)
	if got := OperatorName(tr); got != "Анна" {
		t.Errorf("OperatorName = %q, want Анна", got)
	}
	if got := OperatorName(transcript.New(customer(0, "Меня зовут Иван."))); got != "" {
		t.Errorf("OperatorName = %q, want empty", got)
	}
}
