package specialist

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	contractx "github.com/tanpawarit/Chative-Banking-Frontline/agent/contract"
	statex "github.com/tanpawarit/Chative-Banking-Frontline/agent/state"
)

var errBoom = errors.New("boom")

// fakeClassifier replays scripted answers in order. An entry with err set fails that call.
type fakeClassifier struct {
	mu      sync.Mutex
	labels  []fakeLabel
	records []fakeRecord
	calls   []contractx.ClassifyRequest
}

type fakeLabel struct {
	out string
	err error
}

type fakeRecord struct {
	out contractx.Record
	err error
}

func (f *fakeClassifier) Classify(ctx context.Context, req contractx.ClassifyRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req)
	if len(f.labels) == 0 {
		return "", errors.New("no fake label left")
	}
	next := f.labels[0]
	f.labels = f.labels[1:]
	return next.out, next.err
}

func (f *fakeClassifier) Extract(ctx context.Context, req contractx.ClassifyRequest) (contractx.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req)
	if len(f.records) == 0 {
		return nil, errors.New("no fake record left")
	}
	next := f.records[0]
	f.records = f.records[1:]
	return next.out, next.err
}

func (f *fakeClassifier) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func labels(out ...string) []fakeLabel {
	res := make([]fakeLabel, 0, len(out))
	for _, o := range out {
		res = append(res, fakeLabel{out: o})
	}
	return res
}

type fakeDirectory struct {
	customers map[string]statex.Customer
	err       error
	calls     int
}

func (f *fakeDirectory) Lookup(ctx context.Context, customerID string, birthDate string) (statex.Customer, error) {
	f.calls++
	if f.err != nil {
		return statex.Customer{}, f.err
	}
	c, ok := f.customers[customerID]
	if !ok || c.BirthDate != birthDate {
		return statex.Customer{}, contractx.ErrNotFound
	}
	return c, nil
}

type fakeRates struct {
	quotes map[string]contractx.Quote
	err    error
	home   string
}

func (f *fakeRates) Quote(ctx context.Context, code string, homeCurrency string) (contractx.Quote, error) {
	f.home = homeCurrency
	if f.err != nil {
		return contractx.Quote{}, f.err
	}
	q, ok := f.quotes[code]
	if !ok {
		return contractx.Quote{}, contractx.ErrNotFound
	}
	return q, nil
}

type fakeRegistry struct {
	ceiling    float64
	ceilingErr error
	recordErr  error
	updateErr  error
	requests   []contractx.LimitRequest
	scores     map[string]int
}

func (f *fakeRegistry) MaxLimit(ctx context.Context, score int) (float64, error) {
	if f.ceilingErr != nil {
		return 0, f.ceilingErr
	}
	return f.ceiling, nil
}

func (f *fakeRegistry) RecordLimitRequest(ctx context.Context, req contractx.LimitRequest) error {
	f.requests = append(f.requests, req)
	return f.recordErr
}

func (f *fakeRegistry) UpdateScore(ctx context.Context, customerID string, score int) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	if f.scores == nil {
		f.scores = make(map[string]int)
	}
	f.scores[customerID] = score
	return nil
}

var testNow = time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)

func testDeps(dir *fakeDirectory, rates *fakeRates, reg *fakeRegistry) Deps {
	if dir == nil {
		dir = &fakeDirectory{}
	}
	if rates == nil {
		rates = &fakeRates{}
	}
	if reg == nil {
		reg = &fakeRegistry{}
	}
	return Deps{
		Directory: dir,
		Rates:     rates,
		Registry:  reg,
		Timeout:   time.Second,
		NewID:     func() string { return "req-1" },
	}.withDefaults()
}

func authenticatedSession(t *testing.T, active contractx.AgentType) *statex.Session {
	t.Helper()

	s := statex.NewSession("s1", testNow)
	s.GlobalState = statex.StateAuthenticated
	s.ActiveAgent = active
	s.Customer = &statex.Customer{
		ID:          "12345678901",
		Name:        "Ana Souza",
		BirthDate:   "01/01/1990",
		CreditLimit: 2000,
		Score:       450,
	}
	return s
}

func turn(s *statex.Session, msg string) contractx.TurnRequest {
	s.Append(statex.RoleUser, msg)
	return contractx.TurnRequest{Session: s, Message: msg, Now: testNow}
}

func entry(s *statex.Session) contractx.TurnRequest {
	return contractx.TurnRequest{Session: s, Entry: true, Now: testNow}
}
