package specialist

import (
	"context"
	"strings"
	"testing"

	contractx "github.com/tanpawarit/Chative-Banking-Frontline/agent/contract"
	statex "github.com/tanpawarit/Chative-Banking-Frontline/agent/state"
)

func TestCreditEntryFlagShowsMenuWithoutClassifying(t *testing.T) {
	t.Parallel()

	classifier := &fakeClassifier{}
	agent := newCredit(classifier, testDeps(nil, nil, nil))
	s := authenticatedSession(t, contractx.AgentTypeCredit)
	s.Flags.CreditMenuOnEntry = true
	s.CreditState = statex.CreditAwaitingAmount

	res := agent.Handle(context.Background(), entry(s))
	if res.Text != textCreditMenu {
		t.Fatalf("unexpected text: %q", res.Text)
	}
	if s.Flags.CreditMenuOnEntry {
		t.Fatal("entry flag not consumed")
	}
	if s.CreditState != statex.CreditMenu {
		t.Fatalf("unexpected state: %s", s.CreditState)
	}
	if classifier.callCount() != 0 {
		t.Fatal("classifier called on entry")
	}
}

func TestCreditQueryLimit(t *testing.T) {
	t.Parallel()

	agent := newCredit(&fakeClassifier{labels: labels("consultar_limite")}, testDeps(nil, nil, nil))
	s := authenticatedSession(t, contractx.AgentTypeCredit)

	res := agent.Handle(context.Background(), turn(s, "qual meu limite?"))
	if !strings.Contains(res.Text, "R$ 2000.00") {
		t.Fatalf("limit missing from reply: %q", res.Text)
	}
	if s.CreditState != statex.CreditMenu {
		t.Fatalf("unexpected state: %s", s.CreditState)
	}
}

func TestCreditRejectionOffersInterview(t *testing.T) {
	t.Parallel()

	reg := &fakeRegistry{ceiling: 3000}
	classifier := &fakeClassifier{labels: labels("aumentar_limite", "continuar")}
	agent := newCredit(classifier, testDeps(nil, nil, reg))
	s := authenticatedSession(t, contractx.AgentTypeCredit)
	ctx := context.Background()

	res := agent.Handle(ctx, turn(s, "quero aumentar meu limite"))
	if res.Text != textAskAmount || s.CreditState != statex.CreditAwaitingAmount {
		t.Fatalf("amount not requested: %+v state=%s", res, s.CreditState)
	}

	res = agent.Handle(ctx, turn(s, "5000"))
	if res.Text != textRejected {
		t.Fatalf("unexpected text: %q", res.Text)
	}
	if s.CreditState != statex.CreditOfferInterview || string(s.CreditState) != "OFFER_INTERVIEW" {
		t.Fatalf("unexpected state: %s", s.CreditState)
	}
	if len(reg.requests) != 1 {
		t.Fatalf("expected one recorded request, got %d", len(reg.requests))
	}
	got := reg.requests[0]
	if got.Status != contractx.LimitRejected || got.RequestedLimit != 5000 || got.CurrentLimit != 2000 {
		t.Fatalf("unexpected request: %+v", got)
	}
	if got.CustomerID != "12345678901" || !got.RequestedAt.Equal(testNow) || got.ID != "req-1" {
		t.Fatalf("unexpected request metadata: %+v", got)
	}
	if s.Customer.CreditLimit != 2000 {
		t.Fatalf("limit changed on rejection: %v", s.Customer.CreditLimit)
	}
}

func TestCreditApprovalUpdatesLimit(t *testing.T) {
	t.Parallel()

	reg := &fakeRegistry{ceiling: 8000}
	agent := newCredit(&fakeClassifier{labels: labels("continuar")}, testDeps(nil, nil, reg))
	s := authenticatedSession(t, contractx.AgentTypeCredit)
	s.CreditState = statex.CreditAwaitingAmount

	res := agent.Handle(context.Background(), turn(s, "R$ 5.000,00"))
	if !strings.Contains(res.Text, "APROVADA") || !strings.Contains(res.Text, "5000.00") {
		t.Fatalf("unexpected text: %q", res.Text)
	}
	if s.Customer.CreditLimit != 5000 || s.CreditState != statex.CreditMenu {
		t.Fatalf("approval not applied: limit=%v state=%s", s.Customer.CreditLimit, s.CreditState)
	}
	if reg.requests[0].Status != contractx.LimitApproved {
		t.Fatalf("unexpected status: %s", reg.requests[0].Status)
	}
}

func TestCreditAmountEdgeCases(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		message    string
		classifier *fakeClassifier
		registry   *fakeRegistry
		wantText   string
		wantAction contractx.Action
		wantTarget contractx.AgentType
		wantState  statex.CreditState
		wantRecs   int
	}{
		{
			name: "cancel is not an amount", message: "cancelar",
			classifier: &fakeClassifier{labels: labels("encerrar")}, registry: &fakeRegistry{ceiling: 1},
			wantText: textCreditCancelled, wantAction: contractx.ActionClose, wantState: statex.CreditMenu,
		},
		{
			name: "return to menu", message: "quero ver outros serviços",
			classifier: &fakeClassifier{labels: labels("voltar")}, registry: &fakeRegistry{ceiling: 1},
			wantAction: contractx.ActionTransfer, wantTarget: contractx.AgentTypeTriage, wantState: statex.CreditMenu,
		},
		{
			name: "no amount", message: "um monte",
			classifier: &fakeClassifier{labels: labels("continuar")}, registry: &fakeRegistry{ceiling: 1},
			wantText: textAmountMissing, wantAction: contractx.ActionContinue, wantState: statex.CreditAwaitingAmount,
		},
		{
			name: "zero is not positive", message: "0",
			classifier: &fakeClassifier{labels: labels("continuar")}, registry: &fakeRegistry{ceiling: 1},
			wantText: textAmountMissing, wantAction: contractx.ActionContinue, wantState: statex.CreditAwaitingAmount,
		},
		{
			name: "classifier down without amount", message: "hmm",
			classifier: &fakeClassifier{labels: []fakeLabel{{err: errBoom}}}, registry: &fakeRegistry{ceiling: 1},
			wantText: textAmountNLUDown, wantAction: contractx.ActionContinue, wantState: statex.CreditAwaitingAmount,
		},
		{
			name: "classifier down with amount", message: "3000",
			classifier: &fakeClassifier{labels: []fakeLabel{{err: errBoom}}}, registry: &fakeRegistry{ceiling: 4000},
			wantAction: contractx.ActionContinue, wantState: statex.CreditMenu, wantRecs: 1,
		},
		{
			name: "ceiling lookup unavailable", message: "3000",
			classifier: &fakeClassifier{labels: labels("continuar")}, registry: &fakeRegistry{ceilingErr: contractx.ErrUnavailable},
			wantText: textScoreDown, wantAction: contractx.ActionContinue, wantState: statex.CreditAwaitingAmount,
		},
		{
			name: "no tier rejects", message: "3000",
			classifier: &fakeClassifier{labels: labels("continuar")}, registry: &fakeRegistry{ceilingErr: contractx.ErrNotFound},
			wantText: textRejected, wantAction: contractx.ActionContinue, wantState: statex.CreditOfferInterview, wantRecs: 1,
		},
		{
			name: "record failure does not change reply", message: "3000",
			classifier: &fakeClassifier{labels: labels("continuar")}, registry: &fakeRegistry{ceiling: 4000, recordErr: errBoom},
			wantAction: contractx.ActionContinue, wantState: statex.CreditMenu, wantRecs: 1,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			agent := newCredit(tc.classifier, testDeps(nil, nil, tc.registry))
			s := authenticatedSession(t, contractx.AgentTypeCredit)
			s.CreditState = statex.CreditAwaitingAmount

			res := agent.Handle(context.Background(), turn(s, tc.message))
			if tc.wantText != "" && res.Text != tc.wantText {
				t.Fatalf("unexpected text: %q", res.Text)
			}
			if res.Action != tc.wantAction || res.Target != tc.wantTarget {
				t.Fatalf("unexpected result: %+v", res)
			}
			if s.CreditState != tc.wantState {
				t.Fatalf("state = %s, want %s", s.CreditState, tc.wantState)
			}
			if len(tc.registry.requests) != tc.wantRecs {
				t.Fatalf("recorded %d requests, want %d", len(tc.registry.requests), tc.wantRecs)
			}
			if tc.wantAction == contractx.ActionClose && !s.IsClosed() {
				t.Fatal("session not closed")
			}
		})
	}
}

func TestCreditOfferInterview(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		message    string
		classifier *fakeClassifier
		wantAction contractx.Action
		wantTarget contractx.AgentType
		wantText   string
		wantState  statex.CreditState
		wantCalls  int
	}{
		{name: "literal yes", message: "Sim.", classifier: &fakeClassifier{}, wantAction: contractx.ActionTransfer, wantTarget: contractx.AgentTypeInterview, wantState: statex.CreditMenu},
		{name: "literal no", message: "não", classifier: &fakeClassifier{}, wantAction: contractx.ActionContinue, wantText: textOfferDeclined, wantState: statex.CreditMenu},
		{name: "classified yes", message: "pode ser, vamos lá", classifier: &fakeClassifier{labels: labels("sim")}, wantAction: contractx.ActionTransfer, wantTarget: contractx.AgentTypeInterview, wantState: statex.CreditMenu, wantCalls: 1},
		{name: "classified close", message: "chega, quero ir embora", classifier: &fakeClassifier{labels: labels("encerrar")}, wantAction: contractx.ActionClose, wantText: textCreditCancelled, wantState: statex.CreditMenu, wantCalls: 1},
		{name: "classifier down", message: "talvez", classifier: &fakeClassifier{labels: []fakeLabel{{err: errBoom}}}, wantAction: contractx.ActionContinue, wantText: textOfferNLUDown, wantState: statex.CreditOfferInterview, wantCalls: 1},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			agent := newCredit(tc.classifier, testDeps(nil, nil, nil))
			s := authenticatedSession(t, contractx.AgentTypeCredit)
			s.CreditState = statex.CreditOfferInterview

			res := agent.Handle(context.Background(), turn(s, tc.message))
			if res.Action != tc.wantAction || res.Target != tc.wantTarget {
				t.Fatalf("unexpected result: %+v", res)
			}
			if tc.wantText != "" && res.Text != tc.wantText {
				t.Fatalf("unexpected text: %q", res.Text)
			}
			if s.CreditState != tc.wantState {
				t.Fatalf("state = %s, want %s", s.CreditState, tc.wantState)
			}
			if got := tc.classifier.callCount(); got != tc.wantCalls {
				t.Fatalf("classifier calls = %d, want %d", got, tc.wantCalls)
			}
		})
	}
}

func TestCreditMenuOthersLabelRePrompts(t *testing.T) {
	t.Parallel()

	agent := newCredit(&fakeClassifier{labels: labels("outros")}, testDeps(nil, nil, nil))
	s := authenticatedSession(t, contractx.AgentTypeCredit)

	res := agent.Handle(context.Background(), turn(s, "banana"))
	if res.Text != textCreditRephrase || res.Action != contractx.ActionContinue {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestCreditRequiresAuthentication(t *testing.T) {
	t.Parallel()

	agent := newCredit(&fakeClassifier{}, testDeps(nil, nil, nil))
	s := statex.NewSession("s1", testNow)

	res := agent.Handle(context.Background(), turn(s, "limite"))
	if res.Action != contractx.ActionTransfer || res.Target != contractx.AgentTypeTriage || res.Silent {
		t.Fatalf("unexpected result: %+v", res)
	}
}
