package specialist

import (
	"context"
	"fmt"

	contractx "github.com/tanpawarit/Chative-Banking-Frontline/agent/contract"
	llmx "github.com/tanpawarit/Chative-Banking-Frontline/agent/llm"
	"github.com/tanpawarit/Chative-Banking-Frontline/agent/nlu"
)

// Classifiers gives each agent its own classifier, so each can run on its own model.
type Classifiers struct {
	Triage    contractx.Classifier
	Credit    contractx.Classifier
	Exchange  contractx.Classifier
	Interview contractx.Classifier
}

type registryImpl struct {
	agents map[contractx.AgentType]contractx.Agent
}

func (r *registryImpl) Agent(agentType contractx.AgentType) (contractx.Agent, error) {
	agent, ok := r.agents[agentType]
	if !ok {
		return nil, fmt.Errorf("%w: unknown agent %q", contractx.ErrValidation, agentType)
	}
	return agent, nil
}

// NewRegistry builds one chat model and classifier per agent from cfg and wires the agents.
func NewRegistry(ctx context.Context, cfg llmx.Config, deps Deps) (contractx.Registry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	deps = deps.withDefaults()

	build := func(agentType contractx.AgentType) (contractx.Classifier, error) {
		modelCfg := cfg.OpenRouterFor(agentType)
		chatModel, err := modelCfg.New(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: create %s model: %v", contractx.ErrModelInvoke, agentType, err)
		}
		return nlu.New(ctx, chatModel, deps.Prompts.Guard, nlu.WithTimeout(cfg.ClassifierTimeout))
	}

	var classifiers Classifiers
	var err error
	if classifiers.Triage, err = build(contractx.AgentTypeTriage); err != nil {
		return nil, err
	}
	if classifiers.Credit, err = build(contractx.AgentTypeCredit); err != nil {
		return nil, err
	}
	if classifiers.Exchange, err = build(contractx.AgentTypeExchange); err != nil {
		return nil, err
	}
	if classifiers.Interview, err = build(contractx.AgentTypeInterview); err != nil {
		return nil, err
	}

	return Assemble(classifiers, deps)
}

// Assemble wires the four agents around already-built classifiers.
func Assemble(classifiers Classifiers, deps Deps) (contractx.Registry, error) {
	switch {
	case classifiers.Triage == nil, classifiers.Credit == nil, classifiers.Exchange == nil, classifiers.Interview == nil:
		return nil, fmt.Errorf("%w: every agent needs a classifier", contractx.ErrValidation)
	case deps.Directory == nil:
		return nil, fmt.Errorf("%w: customer directory is required", contractx.ErrValidation)
	case deps.Rates == nil:
		return nil, fmt.Errorf("%w: rate quote is required", contractx.ErrValidation)
	case deps.Registry == nil:
		return nil, fmt.Errorf("%w: score registry is required", contractx.ErrValidation)
	}
	deps = deps.withDefaults()

	return &registryImpl{
		agents: map[contractx.AgentType]contractx.Agent{
			contractx.AgentTypeTriage:    newTriage(classifiers.Triage, deps),
			contractx.AgentTypeCredit:    newCredit(classifiers.Credit, deps),
			contractx.AgentTypeExchange:  newExchange(classifiers.Exchange, deps),
			contractx.AgentTypeInterview: newInterview(classifiers.Interview, deps),
		},
	}, nil
}
