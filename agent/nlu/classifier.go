package nlu

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	einoprompt "github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	contractx "github.com/tanpawarit/Chative-Banking-Frontline/agent/contract"
)

const defaultTimeout = 20 * time.Second

const userTemplate = `Histórico recente:
---
{history}
---

Mensagem do Usuário: "{message}"

Sua Resposta:`

// LLMClassifier implements contract.Classifier with two compiled eino graphs:
// prompt -> model for labels, prompt -> model -> tolerant JSON decode for records.
type LLMClassifier struct {
	textRunner compose.Runnable[map[string]any, *schema.Message]
	jsonRunner compose.Runnable[map[string]any, contractx.Record]
	guard      string
	timeout    time.Duration
}

var _ contractx.Classifier = (*LLMClassifier)(nil)

type Option func(*LLMClassifier)

// WithTimeout bounds every model call. A timed out call is reported as a failure.
func WithTimeout(d time.Duration) Option {
	return func(c *LLMClassifier) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// New compiles the classifier graphs. guard is appended to every instruction.
func New(ctx context.Context, chatModel einomodel.BaseChatModel, guard string, opts ...Option) (*LLMClassifier, error) {
	if chatModel == nil {
		return nil, fmt.Errorf("%w: chat model is required", contractx.ErrValidation)
	}

	c := &LLMClassifier{
		guard:   strings.TrimSpace(guard),
		timeout: defaultTimeout,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	textRunner, err := compileTextGraph(ctx, chatModel)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", contractx.ErrModelInvoke, err)
	}
	jsonRunner, err := compileRecordGraph(ctx, chatModel)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", contractx.ErrModelInvoke, err)
	}
	c.textRunner = textRunner
	c.jsonRunner = jsonRunner
	return c, nil
}

func (c *LLMClassifier) Classify(ctx context.Context, req contractx.ClassifyRequest) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	msg, err := c.textRunner.Invoke(ctx, c.variables(req))
	if err != nil {
		return "", fmt.Errorf("%w: classify: %v", contractx.ErrModelInvoke, err)
	}
	if msg == nil {
		return "", fmt.Errorf("%w: empty classification", contractx.ErrSchemaViolation)
	}

	out := strings.ToLower(strings.TrimSpace(msg.Content))
	if out == "" {
		return "", fmt.Errorf("%w: empty classification", contractx.ErrSchemaViolation)
	}
	return out, nil
}

func (c *LLMClassifier) Extract(ctx context.Context, req contractx.ClassifyRequest) (contractx.Record, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	rec, err := c.jsonRunner.Invoke(ctx, c.variables(req))
	if err != nil {
		if errors.Is(err, contractx.ErrSchemaViolation) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: extract: %v", contractx.ErrModelInvoke, err)
	}
	return rec, nil
}

func (c *LLMClassifier) variables(req contractx.ClassifyRequest) map[string]any {
	return map[string]any{
		"instruction": strings.TrimSpace(req.Instruction),
		"guard":       c.guard,
		"history":     FormatHistory(req.History),
		"message":     strings.TrimSpace(req.Utterance),
	}
}

func chatTemplate() einoprompt.ChatTemplate {
	return einoprompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{instruction}\n\n{guard}"),
		schema.UserMessage(userTemplate),
	)
}

func compileTextGraph(
	ctx context.Context,
	chatModel einomodel.BaseChatModel,
) (compose.Runnable[map[string]any, *schema.Message], error) {
	graph := compose.NewGraph[map[string]any, *schema.Message]()
	if err := graph.AddChatTemplateNode("prompt", chatTemplate()); err != nil {
		return nil, fmt.Errorf("add label prompt node: %w", err)
	}
	if err := graph.AddChatModelNode("model", chatModel); err != nil {
		return nil, fmt.Errorf("add label model node: %w", err)
	}
	if err := graph.AddEdge(compose.START, "prompt"); err != nil {
		return nil, fmt.Errorf("add label edge start->prompt: %w", err)
	}
	if err := graph.AddEdge("prompt", "model"); err != nil {
		return nil, fmt.Errorf("add label edge prompt->model: %w", err)
	}
	if err := graph.AddEdge("model", compose.END); err != nil {
		return nil, fmt.Errorf("add label edge model->end: %w", err)
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("nlu.label_graph"))
	if err != nil {
		return nil, fmt.Errorf("compile label graph: %w", err)
	}
	return runner, nil
}

func compileRecordGraph(
	ctx context.Context,
	chatModel einomodel.BaseChatModel,
) (compose.Runnable[map[string]any, contractx.Record], error) {
	graph := compose.NewGraph[map[string]any, contractx.Record]()
	if err := graph.AddChatTemplateNode("prompt", chatTemplate()); err != nil {
		return nil, fmt.Errorf("add record prompt node: %w", err)
	}
	if err := graph.AddChatModelNode("model", chatModel); err != nil {
		return nil, fmt.Errorf("add record model node: %w", err)
	}
	if err := graph.AddLambdaNode("decode_record",
		compose.InvokableLambda(func(ctx context.Context, msg *schema.Message) (contractx.Record, error) {
			if msg == nil {
				return nil, fmt.Errorf("%w: empty model response", contractx.ErrSchemaViolation)
			}
			return DecodeRecord(msg.Content)
		}),
	); err != nil {
		return nil, fmt.Errorf("add record decode node: %w", err)
	}

	edges := [][2]string{
		{compose.START, "prompt"},
		{"prompt", "model"},
		{"model", "decode_record"},
		{"decode_record", compose.END},
	}
	for _, edge := range edges {
		if err := graph.AddEdge(edge[0], edge[1]); err != nil {
			return nil, fmt.Errorf("add record edge %s->%s: %w", edge[0], edge[1], err)
		}
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("nlu.record_graph"))
	if err != nil {
		return nil, fmt.Errorf("compile record graph: %w", err)
	}
	return runner, nil
}
