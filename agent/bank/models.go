package bank

import (
	"time"

	"github.com/uptrace/bun"

	contractx "github.com/tanpawarit/Chative-Banking-Frontline/agent/contract"
	statex "github.com/tanpawarit/Chative-Banking-Frontline/agent/state"
)

type customerRow struct {
	bun.BaseModel `bun:"table:customers,alias:c"`

	CPF         string  `bun:"cpf,pk"`
	Name        string  `bun:"name,notnull"`
	BirthDate   string  `bun:"birth_date,notnull"` // DD/MM/YYYY
	CreditLimit float64 `bun:"credit_limit,notnull"`
	Score       int     `bun:"score,notnull"`
}

func (r customerRow) toCustomer() statex.Customer {
	return statex.Customer{
		ID:          r.CPF,
		Name:        r.Name,
		BirthDate:   r.BirthDate,
		CreditLimit: r.CreditLimit,
		Score:       r.Score,
	}
}

type scoreTierRow struct {
	bun.BaseModel `bun:"table:score_tiers,alias:t"`

	ID       int64   `bun:"id,pk,autoincrement"`
	MinScore int     `bun:"min_score,notnull"`
	MaxScore int     `bun:"max_score,notnull"`
	MaxLimit float64 `bun:"max_limit,notnull"`
}

type limitRequestRow struct {
	bun.BaseModel `bun:"table:limit_requests,alias:lr"`

	ID             string    `bun:"id,pk"`
	CustomerCPF    string    `bun:"customer_cpf,notnull"`
	RequestedAt    time.Time `bun:"requested_at,notnull"`
	CurrentLimit   float64   `bun:"current_limit,notnull"`
	RequestedLimit float64   `bun:"requested_limit,notnull"`
	Status         string    `bun:"status,notnull"`
}

func newLimitRequestRow(req contractx.LimitRequest) *limitRequestRow {
	return &limitRequestRow{
		ID:             req.ID,
		CustomerCPF:    req.CustomerID,
		RequestedAt:    req.RequestedAt.UTC(),
		CurrentLimit:   req.CurrentLimit,
		RequestedLimit: req.RequestedLimit,
		Status:         string(req.Status),
	}
}

// Tier is an inclusive score range and the largest limit it approves automatically.
type Tier struct {
	MinScore int
	MaxScore int
	MaxLimit float64
}

func (t Tier) covers(score int) bool {
	return t.MinScore <= score && score <= t.MaxScore
}

// DemoCustomers is the seed used when no database is configured.
func DemoCustomers() []statex.Customer {
	return []statex.Customer{
		{ID: "12345678901", Name: "Ana Souza", BirthDate: "01/01/1990", CreditLimit: 2000, Score: 450},
		{ID: "98765432100", Name: "Bruno Lima", BirthDate: "15/05/1985", CreditLimit: 5000, Score: 720},
		{ID: "11122233344", Name: "Carla Mendes", BirthDate: "30/11/1978", CreditLimit: 800, Score: 210},
	}
}

func DefaultTiers() []Tier {
	return []Tier{
		{MinScore: 0, MaxScore: 299, MaxLimit: 1000},
		{MinScore: 300, MaxScore: 499, MaxLimit: 3000},
		{MinScore: 500, MaxScore: 699, MaxLimit: 8000},
		{MinScore: 700, MaxScore: 899, MaxLimit: 15000},
		{MinScore: 900, MaxScore: 1000, MaxLimit: 30000},
	}
}
