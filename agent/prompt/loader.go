package prompt

import (
	_ "embed"
	"strings"
)

var (
	//go:embed template/guard.txt
	guardRaw string

	//go:embed template/triage.txt
	triageRaw string

	//go:embed template/credit_menu.txt
	creditMenuRaw string

	//go:embed template/credit_amount.txt
	creditAmountRaw string

	//go:embed template/credit_offer.txt
	creditOfferRaw string

	//go:embed template/exchange.txt
	exchangeRaw string

	//go:embed template/interview.txt
	interviewRaw string
)

// PromptSet holds the classifier instructions, one per agent task.
// Guard is appended to every instruction by the classifier.
type PromptSet struct {
	Guard        string
	Triage       string
	CreditMenu   string
	CreditAmount string
	CreditOffer  string
	Exchange     string
	Interview    string
}

// LoadPromptSet returns a PromptSet with trimmed prompt strings.
func LoadPromptSet() PromptSet {
	return PromptSet{
		Guard:        strings.TrimSpace(guardRaw),
		Triage:       strings.TrimSpace(triageRaw),
		CreditMenu:   strings.TrimSpace(creditMenuRaw),
		CreditAmount: strings.TrimSpace(creditAmountRaw),
		CreditOffer:  strings.TrimSpace(creditOfferRaw),
		Exchange:     strings.TrimSpace(exchangeRaw),
		Interview:    strings.TrimSpace(interviewRaw),
	}
}
