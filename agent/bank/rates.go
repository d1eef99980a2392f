package bank

import (
	"context"
	"errors"
	"fmt"

	contractx "github.com/tanpawarit/Chative-Banking-Frontline/agent/contract"
	quotex "github.com/tanpawarit/Chative-Banking-Frontline/pkg/quote"
)

type latestRates interface {
	Latest(ctx context.Context, code string, home string) (quotex.Rate, error)
}

// Rates adapts the quote client to the agents' RateQuote contract.
type Rates struct {
	client latestRates
}

var _ contractx.RateQuote = (*Rates)(nil)

func NewRates(client *quotex.Client) (*Rates, error) {
	if client == nil {
		return nil, errors.New("quote client is required")
	}
	return &Rates{client: client}, nil
}

func (r *Rates) Quote(ctx context.Context, code string, homeCurrency string) (contractx.Quote, error) {
	rate, err := r.client.Latest(ctx, code, homeCurrency)
	switch {
	case errors.Is(err, quotex.ErrNotFound):
		return contractx.Quote{}, fmt.Errorf("%w: %v", contractx.ErrNotFound, err)
	case err != nil:
		return contractx.Quote{}, fmt.Errorf("%w: %v", contractx.ErrUnavailable, err)
	}
	return contractx.Quote{Code: rate.Code, Name: rate.Name, Rate: rate.Bid}, nil
}
