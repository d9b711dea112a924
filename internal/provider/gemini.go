package provider

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

const geminiDefaultModel = "gemini-2.5-pro"

// GeminiClient implements Client on the Google GenAI SDK.
type GeminiClient struct {
	client      *genai.Client
	model       string
	maxTokens   int
	temperature float64
	timeout     time.Duration
	logger      *zap.Logger
}

// NewGeminiClient creates a Gemini client.
func NewGeminiClient(ctx context.Context, opts Options, logger *zap.Logger) (*GeminiClient, error) {
	if opts.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	opts.applyDefaults(geminiDefaultModel)

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: opts.APIKey})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &GeminiClient{
		client:      client,
		model:       opts.Model,
		maxTokens:   opts.MaxTokens,
		temperature: opts.Temperature,
		timeout:     opts.Timeout,
		logger:      logger,
	}, nil
}

func (c *GeminiClient) Name() string  { return "gemini" }
func (c *GeminiClient) Model() string { return c.model }

// CompleteTurn sends the conversation and returns the next model turn.
func (c *GeminiClient) CompleteTurn(ctx context.Context, req TurnRequest) (*TurnResponse, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()

	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(c.temperature)),
		MaxOutputTokens: int32(c.maxTokens),
	}
	if req.System != "" {
		config.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if len(req.Tools) > 0 {
		decls := make([]*genai.FunctionDeclaration, len(req.Tools))
		for i, t := range req.Tools {
			decls[i] = &genai.FunctionDeclaration{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  geminiSchema(t.InputSchema),
			}
		}
		config.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, geminiContents(req.Messages), config)
	if err != nil {
		return nil, fmt.Errorf("GenAI request failed: %w", err)
	}
	if len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("no candidates returned")
	}

	out := &TurnResponse{
		Text:       resp.Text(),
		StopReason: string(resp.Candidates[0].FinishReason),
	}
	for i, fc := range resp.FunctionCalls() {
		id := fc.ID
		if id == "" {
			id = fmt.Sprintf("call_%d", i)
		}
		out.ToolCalls = append(out.ToolCalls, ToolCall{
			ID:    id,
			Name:  fc.Name,
			Input: fc.Args,
		})
	}

	c.logger.Debug("gemini turn completed",
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("text_len", len(out.Text)),
		zap.Int("tool_calls", len(out.ToolCalls)),
		zap.String("stop_reason", out.StopReason))
	return out, nil
}

// geminiContents converts neutral messages to GenAI contents. Tool results
// travel as user-role function responses.
func geminiContents(messages []Message) []*genai.Content {
	out := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleUser:
			out = append(out, genai.NewContentFromText(m.Text, genai.RoleUser))
		case RoleAssistant:
			parts := make([]*genai.Part, 0, 1+len(m.ToolCalls))
			if m.Text != "" {
				parts = append(parts, &genai.Part{Text: m.Text})
			}
			for _, tc := range m.ToolCalls {
				parts = append(parts, &genai.Part{FunctionCall: &genai.FunctionCall{
					ID:   tc.ID,
					Name: tc.Name,
					Args: tc.Input,
				}})
			}
			out = append(out, &genai.Content{Role: genai.RoleModel, Parts: parts})
		case RoleTool:
			parts := make([]*genai.Part, 0, len(m.ToolResults))
			for _, tr := range m.ToolResults {
				parts = append(parts, &genai.Part{FunctionResponse: &genai.FunctionResponse{
					ID:   tr.ToolCallID,
					Name: tr.Name,
					Response: map[string]any{
						"result":   tr.Content,
						"is_error": tr.IsError,
					},
				}})
			}
			out = append(out, &genai.Content{Role: genai.RoleUser, Parts: parts})
		}
	}
	return out
}

// geminiSchema converts a JSON-Schema-shaped map into the GenAI schema type.
// Only the subset our tools declare is handled.
func geminiSchema(schema map[string]any) *genai.Schema {
	if schema == nil {
		return nil
	}

	out := &genai.Schema{Type: geminiType(schema["type"])}
	if desc, ok := schema["description"].(string); ok {
		out.Description = desc
	}
	if req, ok := schema["required"].([]string); ok {
		out.Required = req
	} else if reqAny, ok := schema["required"].([]any); ok {
		for _, r := range reqAny {
			if s, ok := r.(string); ok {
				out.Required = append(out.Required, s)
			}
		}
	}
	if props, ok := schema["properties"].(map[string]any); ok {
		out.Properties = make(map[string]*genai.Schema, len(props))
		for name, sub := range props {
			if subMap, ok := sub.(map[string]any); ok {
				out.Properties[name] = geminiSchema(subMap)
			}
		}
	}
	return out
}

func geminiType(t any) genai.Type {
	s, _ := t.(string)
	switch s {
	case "object":
		return genai.TypeObject
	case "string":
		return genai.TypeString
	case "number":
		return genai.TypeNumber
	case "integer":
		return genai.TypeInteger
	case "boolean":
		return genai.TypeBoolean
	case "array":
		return genai.TypeArray
	default:
		return genai.TypeUnspecified
	}
}
