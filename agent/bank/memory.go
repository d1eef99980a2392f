package bank

import (
	"context"
	"sort"
	"sync"

	contractx "github.com/tanpawarit/Chative-Banking-Frontline/agent/contract"
	statex "github.com/tanpawarit/Chative-Banking-Frontline/agent/state"
	toolx "github.com/tanpawarit/Chative-Banking-Frontline/agent/tool"
)

// MemoryLedger serves the same contracts as Ledger from process memory.
type MemoryLedger struct {
	mu        sync.RWMutex
	customers map[string]statex.Customer
	tiers     []Tier
	requests  []contractx.LimitRequest
}

var (
	_ contractx.CustomerDirectory = (*MemoryLedger)(nil)
	_ contractx.ScoreRegistry     = (*MemoryLedger)(nil)
)

func NewMemoryLedger(customers []statex.Customer, tiers []Tier) *MemoryLedger {
	l := &MemoryLedger{
		customers: make(map[string]statex.Customer, len(customers)),
		tiers:     append([]Tier(nil), tiers...),
	}
	for _, c := range customers {
		c.ID = toolx.Digits(c.ID)
		l.customers[c.ID] = c
	}
	sort.Slice(l.tiers, func(i, j int) bool { return l.tiers[i].MinScore < l.tiers[j].MinScore })
	return l
}

// NewDemoLedger is the ledger used when no database is configured.
func NewDemoLedger() *MemoryLedger {
	return NewMemoryLedger(DemoCustomers(), DefaultTiers())
}

func (l *MemoryLedger) Lookup(ctx context.Context, customerID string, birthDate string) (statex.Customer, error) {
	if err := ctx.Err(); err != nil {
		return statex.Customer{}, err
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	c, ok := l.customers[toolx.Digits(customerID)]
	if !ok || c.BirthDate != birthDate {
		return statex.Customer{}, contractx.ErrNotFound
	}
	return c, nil
}

func (l *MemoryLedger) MaxLimit(ctx context.Context, score int) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	for _, t := range l.tiers {
		if t.covers(score) {
			return t.MaxLimit, nil
		}
	}
	return 0, contractx.ErrNotFound
}

func (l *MemoryLedger) RecordLimitRequest(ctx context.Context, req contractx.LimitRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.requests = append(l.requests, req)
	return nil
}

func (l *MemoryLedger) UpdateScore(ctx context.Context, customerID string, score int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	id := toolx.Digits(customerID)
	c, ok := l.customers[id]
	if !ok {
		return contractx.ErrNotFound
	}
	c.Score = score
	l.customers[id] = c
	return nil
}

// Requests returns a copy of the recorded limit requests, oldest first.
func (l *MemoryLedger) Requests() []contractx.LimitRequest {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]contractx.LimitRequest(nil), l.requests...)
}
