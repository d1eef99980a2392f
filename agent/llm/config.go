package llm

import (
	"fmt"
	"strings"
	"time"

	contractx "github.com/tanpawarit/Chative-Banking-Frontline/agent/contract"
	openrouterx "github.com/tanpawarit/Chative-Banking-Frontline/pkg/openrouter"
)

// Config is the OPENROUTER_* section. Each agent may override the default model
// and temperature; a negative override temperature means "use the default".
type Config struct {
	BaseURL            string        `envconfig:"BASE_URL" split_words:"true" default:"https://openrouter.ai/api/v1"`
	APIKey             string        `envconfig:"API_KEY" split_words:"true" required:"true"`
	Model              string        `envconfig:"MODEL" split_words:"true" required:"true"`
	MaxCompletionToken int           `envconfig:"MAX_COMPLETION_TOKEN" split_words:"true" default:"256"`
	Temperature        float32       `envconfig:"TEMPERATURE" split_words:"true" default:"0"`
	Timeout            time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"30s"`
	ClassifierTimeout  time.Duration `envconfig:"CLASSIFIER_TIMEOUT" split_words:"true" default:"20s"`
	SiteURL            string        `envconfig:"SITE_URL" split_words:"true"`
	SiteName           string        `envconfig:"SITE_NAME" split_words:"true"`

	TriageModel          string  `envconfig:"TRIAGE_MODEL" split_words:"true"`
	CreditModel          string  `envconfig:"CREDIT_MODEL" split_words:"true"`
	ExchangeModel        string  `envconfig:"EXCHANGE_MODEL" split_words:"true"`
	InterviewModel       string  `envconfig:"INTERVIEW_MODEL" split_words:"true"`
	TriageTemperature    float32 `envconfig:"TRIAGE_TEMPERATURE" split_words:"true" default:"-1"`
	CreditTemperature    float32 `envconfig:"CREDIT_TEMPERATURE" split_words:"true" default:"-1"`
	ExchangeTemperature  float32 `envconfig:"EXCHANGE_TEMPERATURE" split_words:"true" default:"-1"`
	InterviewTemperature float32 `envconfig:"INTERVIEW_TEMPERATURE" split_words:"true" default:"-1"`
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("%w: openrouter api key is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("%w: default model is required", contractx.ErrValidation)
	}
	return nil
}

func (c Config) OpenRouterFor(agentType contractx.AgentType) openrouterx.Config {
	modelName := strings.TrimSpace(c.Model)
	temp := c.Temperature

	override := func(name string, t float32) {
		if v := strings.TrimSpace(name); v != "" {
			modelName = v
		}
		if t >= 0 {
			temp = t
		}
	}

	switch agentType {
	case contractx.AgentTypeTriage:
		override(c.TriageModel, c.TriageTemperature)
	case contractx.AgentTypeCredit:
		override(c.CreditModel, c.CreditTemperature)
	case contractx.AgentTypeExchange:
		override(c.ExchangeModel, c.ExchangeTemperature)
	case contractx.AgentTypeInterview:
		override(c.InterviewModel, c.InterviewTemperature)
	}

	maxCompletionToken := c.MaxCompletionToken
	return openrouterx.Config{
		BaseURL:            strings.TrimSpace(c.BaseURL),
		APIKey:             strings.TrimSpace(c.APIKey),
		Model:              modelName,
		MaxCompletionToken: &maxCompletionToken,
		Temperature:        temp,
		Timeout:            c.Timeout,
		SiteURL:            strings.TrimSpace(c.SiteURL),
		SiteName:           strings.TrimSpace(c.SiteName),
	}
}

// Endpoint is the default model config, used for model listing.
func (c Config) Endpoint() openrouterx.Config {
	return c.OpenRouterFor("")
}
