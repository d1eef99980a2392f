package specialist

import (
	"context"
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	contractx "github.com/tanpawarit/Chative-Banking-Frontline/agent/contract"
	statex "github.com/tanpawarit/Chative-Banking-Frontline/agent/state"
)

func ptr[T any](v T) *T { return &v }

func TestInterviewCollectsAcrossTurns(t *testing.T) {
	t.Parallel()

	reg := &fakeRegistry{}
	classifier := &fakeClassifier{records: []fakeRecord{
		{out: contractx.Record{"renda": 5000.0, "emprego": "formal", "despesas": nil, "dependentes": nil, "dividas": nil, "encerrar": false, "voltar": false}},
		{out: contractx.Record{"renda": nil, "despesas": "1.000,00", "dependentes": "2", "dividas": "não", "encerrar": false, "voltar": false}},
	}}
	agent := newInterview(classifier, testDeps(nil, nil, reg))
	s := authenticatedSession(t, contractx.AgentTypeInterview)
	ctx := context.Background()

	res := agent.Handle(ctx, entry(s))
	if res.Text != textInterviewStart || s.InterviewState != statex.InterviewCollecting {
		t.Fatalf("interview not started: %+v state=%s", res, s.InterviewState)
	}

	res = agent.Handle(ctx, turn(s, "ganho 5000 com carteira assinada"))
	if !strings.Contains(res.Text, "despesas fixas") || strings.Contains(res.Text, "renda mensal") {
		t.Fatalf("unexpected missing list: %q", res.Text)
	}

	res = agent.Handle(ctx, turn(s, "gasto 1.000,00, tenho 2 filhos e nenhuma dívida"))
	// 30*5000/1001 = 149.85 -> 150 + 300 + 60 + 100
	wantScore := 610
	if res.Action != contractx.ActionTransfer || res.Target != contractx.AgentTypeCredit || res.Silent {
		t.Fatalf("unexpected result: %+v", res)
	}
	if !strings.Contains(res.Text, "450 ➔ **610**") {
		t.Fatalf("unexpected text: %q", res.Text)
	}
	if reg.scores["12345678901"] != wantScore || s.Customer.Score != wantScore {
		t.Fatalf("score not persisted: registry=%v session=%d", reg.scores, s.Customer.Score)
	}
	if !s.Flags.CreditMenuOnEntry {
		t.Fatal("credit menu flag not set")
	}
	if s.InterviewState != statex.InterviewStart || s.Interview != nil {
		t.Fatalf("interview not reset: state=%s draft=%+v", s.InterviewState, s.Interview)
	}
}

func TestInterviewBareNumberFillsOneField(t *testing.T) {
	t.Parallel()

	reg := &fakeRegistry{}
	classifier := &fakeClassifier{records: []fakeRecord{
		{out: contractx.Record{"renda": 5000.0, "despesas": nil, "emprego": nil, "dependentes": nil, "dividas": nil}},
	}}
	agent := newInterview(classifier, testDeps(nil, nil, reg))
	s := authenticatedSession(t, contractx.AgentTypeInterview)
	s.InterviewState = statex.InterviewCollecting
	s.Interview = &statex.InterviewDraft{
		Employment: ptr(statex.EmploymentFormal),
		Dependents: ptr("1"),
		HasDebt:    ptr(false),
	}

	res := agent.Handle(context.Background(), turn(s, "5000"))
	if res.Action != contractx.ActionContinue || !strings.Contains(res.Text, "despesas fixas") {
		t.Fatalf("interview should still ask for expenses: %+v", res)
	}
	if s.Interview == nil || s.Interview.Income == nil || *s.Interview.Income != 5000 || s.Interview.Expenses != nil {
		t.Fatalf("unexpected draft: %+v", s.Interview)
	}
	if len(reg.scores) != 0 {
		t.Fatalf("score persisted from an incomplete interview: %v", reg.scores)
	}
}

func TestInterviewPersistFailureGoesToTriage(t *testing.T) {
	t.Parallel()

	reg := &fakeRegistry{updateErr: contractx.ErrUnavailable}
	classifier := &fakeClassifier{records: []fakeRecord{{out: contractx.Record{
		"renda": 3000.0, "emprego": "autônomo", "despesas": 500.0, "dependentes": "0", "dividas": "sim",
	}}}}
	agent := newInterview(classifier, testDeps(nil, nil, reg))
	s := authenticatedSession(t, contractx.AgentTypeInterview)
	s.InterviewState = statex.InterviewCollecting
	s.Interview = &statex.InterviewDraft{}

	res := agent.Handle(context.Background(), turn(s, "tudo"))
	if res.Action != contractx.ActionTransfer || res.Target != contractx.AgentTypeTriage || res.Text != textScoreSaveFailed {
		t.Fatalf("unexpected result: %+v", res)
	}
	if s.Customer.Score != 450 {
		t.Fatalf("session score changed after failed persist: %d", s.Customer.Score)
	}
	if s.Flags.CreditMenuOnEntry {
		t.Fatal("credit flag set after failure")
	}
}

func TestInterviewEscapes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		record     fakeRecord
		wantAction contractx.Action
		wantTarget contractx.AgentType
		wantState  statex.InterviewState
	}{
		{name: "return", record: fakeRecord{out: contractx.Record{"voltar": true}}, wantAction: contractx.ActionTransfer, wantTarget: contractx.AgentTypeTriage, wantState: statex.InterviewStart},
		{name: "close", record: fakeRecord{out: contractx.Record{"encerrar": "true"}}, wantAction: contractx.ActionClose, wantState: statex.InterviewStart},
		{name: "extract failure", record: fakeRecord{err: contractx.ErrSchemaViolation}, wantAction: contractx.ActionContinue, wantState: statex.InterviewCollecting},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			agent := newInterview(&fakeClassifier{records: []fakeRecord{tc.record}}, testDeps(nil, nil, nil))
			s := authenticatedSession(t, contractx.AgentTypeInterview)
			s.InterviewState = statex.InterviewCollecting
			s.Interview = &statex.InterviewDraft{Income: ptr(1000.0)}

			res := agent.Handle(context.Background(), turn(s, "x"))
			if res.Action != tc.wantAction || res.Target != tc.wantTarget {
				t.Fatalf("unexpected result: %+v", res)
			}
			if s.InterviewState != tc.wantState {
				t.Fatalf("state = %s, want %s", s.InterviewState, tc.wantState)
			}
			if tc.wantAction == contractx.ActionClose && !s.IsClosed() {
				t.Fatal("session not closed")
			}
			if tc.wantState == statex.InterviewCollecting && (s.Interview == nil || s.Interview.Income == nil) {
				t.Fatal("draft lost on extract failure")
			}
		})
	}
}

func TestMergeRecordKeepsEarlierAnswers(t *testing.T) {
	t.Parallel()

	d := &statex.InterviewDraft{Income: ptr(4000.0)}
	MergeRecord(d, contractx.Record{"renda": nil, "emprego": "Desempregado", "dependentes": 5.0, "dividas": "sim"})

	want := &statex.InterviewDraft{
		Income:     ptr(4000.0),
		Employment: ptr(statex.EmploymentUnemployed),
		Dependents: ptr("3+"),
		HasDebt:    ptr(true),
	}
	if diff := cmp.Diff(want, d); diff != "" {
		t.Fatalf("MergeRecord() mismatch (-want +got):\n%s", diff)
	}
}

func TestMergeTurn(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		start   *statex.InterviewDraft
		record  contractx.Record
		message string
		want    *statex.InterviewDraft
	}{
		{
			name:    "classifier income is not repeated as expenses",
			start:   &statex.InterviewDraft{},
			record:  contractx.Record{"renda": 5000.0, "despesas": nil},
			message: "5000",
			want:    &statex.InterviewDraft{Income: ptr(5000.0)},
		},
		{
			name:    "classifier dependents is not guessed into income",
			start:   &statex.InterviewDraft{Employment: ptr(statex.EmploymentFormal)},
			record:  contractx.Record{"dependentes": "2"},
			message: "2",
			want:    &statex.InterviewDraft{Employment: ptr(statex.EmploymentFormal), Dependents: ptr("2")},
		},
		{
			name:    "bare number used when classifier placed nothing",
			start:   &statex.InterviewDraft{Income: ptr(3000.0)},
			record:  contractx.Record{"renda": nil, "despesas": nil},
			message: "800",
			want:    &statex.InterviewDraft{Income: ptr(3000.0), Expenses: ptr(800.0)},
		},
		{
			name:    "classifier overrides heuristic guess",
			start:   nil,
			record:  contractx.Record{"renda": 4200.0},
			message: "renda 4000",
			want:    &statex.InterviewDraft{Income: ptr(4200.0)},
		},
		{
			name:    "both passes fill different fields",
			start:   &statex.InterviewDraft{},
			record:  contractx.Record{"emprego": "autônomo"},
			message: "sou autônomo e sem dependentes",
			want:    &statex.InterviewDraft{Employment: ptr(statex.EmploymentAutonomous), Dependents: ptr("0")},
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			var before *statex.InterviewDraft
			if tc.start != nil {
				before = tc.start.Clone()
			}
			got := MergeTurn(tc.start, tc.record, tc.message)
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Fatalf("MergeTurn() mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(before, tc.start); diff != "" {
				t.Fatalf("MergeTurn() changed its input (-want +got):\n%s", diff)
			}
		})
	}
}

func TestApplyHeuristics(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		start   statex.InterviewDraft
		message string
		want    statex.InterviewDraft
	}{
		{
			name:    "keywords with numbers",
			message: "Minha renda é R$ 4.500,00 e despesas de 1200",
			want:    statex.InterviewDraft{Income: ptr(4500.0), Expenses: ptr(1200.0)},
		},
		{
			name:    "zero phrases",
			message: "sem despesas, sem dependentes e não tenho dívidas",
			want:    statex.InterviewDraft{Expenses: ptr(0.0), Dependents: ptr("0"), HasDebt: ptr(false)},
		},
		{
			name:    "bare number fills expenses after income",
			start:   statex.InterviewDraft{Income: ptr(3000.0)},
			message: "800",
			want:    statex.InterviewDraft{Income: ptr(3000.0), Expenses: ptr(800.0)},
		},
		{
			name:    "classifier value wins",
			start:   statex.InterviewDraft{Income: ptr(3000.0), HasDebt: ptr(false)},
			message: "renda 9999, tenho dívidas",
			want:    statex.InterviewDraft{Income: ptr(3000.0), HasDebt: ptr(false)},
		},
		{
			name:    "employment and dependents words",
			message: "sou autônomo e tenho dois filhos, estou com dívidas",
			want: statex.InterviewDraft{
				Employment: ptr(statex.EmploymentAutonomous),
				Dependents: ptr("2"),
				HasDebt:    ptr(true),
			},
		},
		{
			name:    "many dependents",
			message: "4 dependentes",
			want:    statex.InterviewDraft{Dependents: ptr("3+")},
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			d := tc.start
			ApplyHeuristics(&d, tc.message)
			if diff := cmp.Diff(tc.want, d); diff != "" {
				t.Fatalf("ApplyHeuristics() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestComputeScore(t *testing.T) {
	t.Parallel()

	draft := func(income, expenses float64, emp statex.Employment, deps string, debt bool) statex.InterviewDraft {
		return statex.InterviewDraft{
			Income:     ptr(income),
			Expenses:   ptr(expenses),
			Employment: ptr(emp),
			Dependents: ptr(deps),
			HasDebt:    ptr(debt),
		}
	}

	if got := ComputeScore(draft(5000, 1000, statex.EmploymentFormal, "2", false)); got != 610 {
		t.Fatalf("ComputeScore() = %d, want 610", got)
	}
	if got := ComputeScore(draft(0, 0, statex.EmploymentUnemployed, "3+", true)); got != 0 {
		t.Fatalf("ComputeScore() = %d, want clamp to 0", got)
	}
	if got := ComputeScore(draft(1e9, 0, statex.EmploymentFormal, "0", false)); got != MaxScore {
		t.Fatalf("ComputeScore() = %d, want clamp to %d", got, MaxScore)
	}
	if got := ComputeScore(draft(math.MaxFloat64, 0, statex.EmploymentFormal, "0", false)); got != MaxScore {
		t.Fatalf("ComputeScore() on huge income = %d", got)
	}
	if got := ComputeScore(draft(-500, -3, statex.EmploymentAutonomous, "1", false)); got < MinScore || got > MaxScore {
		t.Fatalf("ComputeScore() out of range: %d", got)
	}
}

func TestComputeScoreMonotonicInIncome(t *testing.T) {
	t.Parallel()

	employments := []statex.Employment{statex.EmploymentFormal, statex.EmploymentAutonomous, statex.EmploymentUnemployed}
	dependents := []string{"0", "1", "2", "3+"}
	expenses := []float64{0, 10, 999.99, 5000, 1e7}

	for _, emp := range employments {
		for _, dep := range dependents {
			for _, exp := range expenses {
				for _, debt := range []bool{true, false} {
					prev := -1
					for income := 0.0; income <= 1e6; income = income*3 + 7 {
						score := ComputeScore(statex.InterviewDraft{
							Income: ptr(income), Expenses: ptr(exp), Employment: ptr(emp), Dependents: ptr(dep), HasDebt: ptr(debt),
						})
						if score < prev {
							t.Fatalf("score decreased: income=%v exp=%v emp=%s dep=%s debt=%v: %d < %d", income, exp, emp, dep, debt, score, prev)
						}
						if score < MinScore || score > MaxScore {
							t.Fatalf("score out of range: %d", score)
						}
						prev = score
					}
				}
			}
		}
	}
}
