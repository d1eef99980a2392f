package bank

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"

	contractx "github.com/tanpawarit/Chative-Banking-Frontline/agent/contract"
	statex "github.com/tanpawarit/Chative-Banking-Frontline/agent/state"
	toolx "github.com/tanpawarit/Chative-Banking-Frontline/agent/tool"
)

// Ledger is the customer directory and score registry backed by Postgres.
type Ledger struct {
	db *bun.DB
}

var (
	_ contractx.CustomerDirectory = (*Ledger)(nil)
	_ contractx.ScoreRegistry     = (*Ledger)(nil)
)

func NewLedger(db *bun.DB) (*Ledger, error) {
	if db == nil {
		return nil, errors.New("bun db is required")
	}
	return &Ledger{db: db}, nil
}

func (l *Ledger) Lookup(ctx context.Context, customerID string, birthDate string) (statex.Customer, error) {
	row := new(customerRow)
	err := l.db.NewSelect().
		Model(row).
		Where("c.cpf = ?", toolx.Digits(customerID)).
		Limit(1).
		Scan(ctx)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return statex.Customer{}, contractx.ErrNotFound
	case err != nil:
		return statex.Customer{}, unavailable("lookup customer", err)
	}

	if row.BirthDate != birthDate {
		return statex.Customer{}, contractx.ErrNotFound
	}
	return row.toCustomer(), nil
}

func (l *Ledger) MaxLimit(ctx context.Context, score int) (float64, error) {
	row := new(scoreTierRow)
	err := l.db.NewSelect().
		Model(row).
		Where("t.min_score <= ?", score).
		Where("t.max_score >= ?", score).
		Order("t.min_score ASC").
		Limit(1).
		Scan(ctx)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return 0, contractx.ErrNotFound
	case err != nil:
		return 0, unavailable("select score tier", err)
	}
	return row.MaxLimit, nil
}

func (l *Ledger) RecordLimitRequest(ctx context.Context, req contractx.LimitRequest) error {
	if _, err := l.db.NewInsert().Model(newLimitRequestRow(req)).Exec(ctx); err != nil {
		return unavailable("insert limit request", err)
	}
	return nil
}

func (l *Ledger) UpdateScore(ctx context.Context, customerID string, score int) error {
	res, err := l.db.NewUpdate().
		Model((*customerRow)(nil)).
		Set("score = ?", score).
		Where("cpf = ?", toolx.Digits(customerID)).
		Exec(ctx)
	if err != nil {
		return unavailable("update score", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return contractx.ErrNotFound
	}
	return nil
}

// EnsureSchema creates the ledger tables when they do not exist.
func (l *Ledger) EnsureSchema(ctx context.Context) error {
	models := []any{
		(*customerRow)(nil),
		(*scoreTierRow)(nil),
		(*limitRequestRow)(nil),
	}
	for _, model := range models {
		if _, err := l.db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	return nil
}

// Seed inserts customers and tiers. Existing customers are left untouched and tiers
// are only written into an empty table.
func (l *Ledger) Seed(ctx context.Context, customers []statex.Customer, tiers []Tier) error {
	return l.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if len(customers) > 0 {
			rows := make([]customerRow, 0, len(customers))
			for _, c := range customers {
				rows = append(rows, customerRow{
					CPF:         toolx.Digits(c.ID),
					Name:        c.Name,
					BirthDate:   c.BirthDate,
					CreditLimit: c.CreditLimit,
					Score:       c.Score,
				})
			}
			if _, err := tx.NewInsert().Model(&rows).On("CONFLICT (cpf) DO NOTHING").Exec(ctx); err != nil {
				return fmt.Errorf("seed customers: %w", err)
			}
		}

		count, err := tx.NewSelect().Model((*scoreTierRow)(nil)).Count(ctx)
		if err != nil {
			return fmt.Errorf("count score tiers: %w", err)
		}
		if count > 0 || len(tiers) == 0 {
			return nil
		}

		rows := make([]scoreTierRow, 0, len(tiers))
		for _, t := range tiers {
			rows = append(rows, scoreTierRow{MinScore: t.MinScore, MaxScore: t.MaxScore, MaxLimit: t.MaxLimit})
		}
		if _, err := tx.NewInsert().Model(&rows).Exec(ctx); err != nil {
			return fmt.Errorf("seed score tiers: %w", err)
		}
		log.Info().Int("customers", len(customers)).Int("tiers", len(tiers)).Msg("ledger seeded")
		return nil
	})
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", contractx.ErrUnavailable, op, err)
}
