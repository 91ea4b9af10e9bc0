// Package genai implements the reasoning gateway over the OpenAI API.
//
// Every operation is a typed request/response contract: the chat completion
// is forced into a strict JSON schema, the payload is validated at this
// boundary, and anything malformed surfaces as a gateway error so callers can
// apply their documented fail-open or fail-safe default.
package genai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/SomnoHealth/ConsultFlow/internal/models"
)

// DefaultCallTimeout bounds each outbound reasoning call. A timeout is
// treated identically to any other gateway failure.
const DefaultCallTimeout = 60 * time.Second

// ErrMalformedResponse indicates the reasoning backend returned a payload
// that does not satisfy the call's decision contract.
var ErrMalformedResponse = errors.New("malformed gateway response")

// TopicInput carries the context for one topic-relevance check.
type TopicInput struct {
	UserMessage   string
	RecentContext string
	LastQuestion  string
}

// ClientInterface defines the reasoning gateway operations the consultation
// engine depends on. Implemented by Client and by test mocks.
type ClientInterface interface {
	ClassifyTopic(ctx context.Context, in TopicInput) (*models.TopicDecision, error)
	AssessRisk(ctx context.Context, transcript string) (*models.RiskDecision, error)
	NextQuestion(ctx context.Context, history, contextNote string, isFirst bool) (string, error)
	RouteDecision(ctx context.Context, history, contextNote string) (*models.RouteDecision, error)
	Summarize(ctx context.Context, history, contextNote string, isFinal bool) (*models.SummaryResult, error)
	SummarizePlain(ctx context.Context, history string) (string, error)
	ExtractReferral(ctx context.Context, letterText string) (*models.ReferralInfo, error)
}

// chatService defines the minimal interface for chat completions, so tests
// can inject a mock backend.
type chatService interface {
	New(ctx context.Context, params openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// Client wraps the OpenAI chat completion service behind the typed gateway
// operations.
type Client struct {
	chat    chatService
	model   shared.ChatModel
	timeout time.Duration
}

// Opts holds configuration options for the gateway client.
type Opts struct {
	APIKey  string
	Model   string
	Timeout time.Duration
}

// Option configures the gateway client.
type Option func(*Opts)

// WithAPIKey sets the OpenAI API key.
func WithAPIKey(key string) Option {
	return func(o *Opts) { o.APIKey = key }
}

// WithModel overrides the chat model used for all calls.
func WithModel(model string) Option {
	return func(o *Opts) { o.Model = model }
}

// WithTimeout overrides the per-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *Opts) { o.Timeout = d }
}

// NewClient initializes a gateway client. The API key falls back to the
// OPENAI_API_KEY environment variable.
func NewClient(opts ...Option) (*Client, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY not set")
	}
	model := shared.ChatModel(cfg.Model)
	if model == "" {
		model = openai.ChatModelGPT4o
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	cli := openai.NewClient(option.WithAPIKey(cfg.APIKey))
	slog.Debug("genai.NewClient: gateway client created", "model", model, "timeout", timeout)
	return &Client{chat: &cli.Chat.Completions, model: model, timeout: timeout}, nil
}

// ClassifyTopic runs the topic-relevance check against the last patient
// message plus rolling conversation context.
func (c *Client) ClassifyTopic(ctx context.Context, in TopicInput) (*models.TopicDecision, error) {
	user := fmt.Sprintf(topicUserPrompt, in.RecentContext, in.LastQuestion, in.UserMessage)
	var decision models.TopicDecision
	if err := c.structured(ctx, "topic_decision", topicDecisionSchema, topicSystemPrompt, user, &decision); err != nil {
		return nil, err
	}
	slog.Debug("genai.ClassifyTopic: decision received", "onTopic", decision.IsOnTopic, "confidence", decision.Confidence)
	return &decision, nil
}

// AssessRisk runs the self-harm risk check over the recent transcript.
func (c *Client) AssessRisk(ctx context.Context, transcript string) (*models.RiskDecision, error) {
	user := fmt.Sprintf(riskUserPrompt, transcript)
	var decision models.RiskDecision
	if err := c.structured(ctx, "risk_decision", riskDecisionSchema, riskSystemPrompt, user, &decision); err != nil {
		return nil, err
	}
	if !models.IsValidRiskLevel(decision.RiskLevel) {
		return nil, fmt.Errorf("%w: unknown risk level %q", ErrMalformedResponse, decision.RiskLevel)
	}
	slog.Debug("genai.AssessRisk: decision received", "detected", decision.RiskDetected, "level", decision.RiskLevel, "confidence", decision.Confidence)
	return &decision, nil
}

// NextQuestion produces the next clinical question. The prompt variant
// differs between the opening question and follow-ups.
func (c *Client) NextQuestion(ctx context.Context, history, contextNote string, isFirst bool) (string, error) {
	variant := followupQuestionPrompt
	if isFirst {
		variant = initialQuestionPrompt
	}
	user := fmt.Sprintf(variant, history, orNoContext(contextNote))
	question, err := c.generate(ctx, questionSystemPrompt, user)
	if err != nil {
		return "", err
	}
	slog.Debug("genai.NextQuestion: question generated", "isFirst", isFirst, "length", len(question))
	return question, nil
}

// RouteDecision asks the reasoning backend whether enough information has
// been gathered to move to summarization.
func (c *Client) RouteDecision(ctx context.Context, history, contextNote string) (*models.RouteDecision, error) {
	user := fmt.Sprintf(routerUserPrompt, history, orNoContext(contextNote))
	var decision models.RouteDecision
	if err := c.structured(ctx, "route_decision", routeDecisionSchema, routerSystemPrompt, user, &decision); err != nil {
		return nil, err
	}
	switch decision.Decision {
	case models.RouteAskQuestion, models.RouteGenerateSummary:
	default:
		return nil, fmt.Errorf("%w: unknown route %q", ErrMalformedResponse, decision.Decision)
	}
	slog.Debug("genai.RouteDecision: decision received", "decision", decision.Decision)
	return &decision, nil
}

// Summarize produces the structured two-audience summary. The final variant
// covers the transcript extended by the patient's one round of additions.
func (c *Client) Summarize(ctx context.Context, history, contextNote string, isFinal bool) (*models.SummaryResult, error) {
	system := summarySystemPrompt
	if isFinal {
		system = finalSummarySystemPrompt
	}
	user := fmt.Sprintf(summaryUserPrompt, history, orNoContext(contextNote))
	var result models.SummaryResult
	if err := c.structured(ctx, "consultation_summary", summarySchema, system, user, &result); err != nil {
		return nil, err
	}
	if !models.IsValidUrgencyLevel(result.UrgencyLevel) {
		return nil, fmt.Errorf("%w: unknown urgency level %q", ErrMalformedResponse, result.UrgencyLevel)
	}
	if result.DoctorSummary == "" || result.PatientSummary == "" {
		return nil, fmt.Errorf("%w: empty summary fields", ErrMalformedResponse)
	}
	slog.Debug("genai.Summarize: summary generated", "isFinal", isFinal, "urgency", result.UrgencyLevel)
	return &result, nil
}

// SummarizePlain is the unstructured fallback summary used when the
// structured call fails.
func (c *Client) SummarizePlain(ctx context.Context, history string) (string, error) {
	user := fmt.Sprintf("Conversation: %s", history)
	return c.generate(ctx, plainSummarySystemPrompt, user)
}

// ExtractReferral pulls the structured referral fields out of referral-letter
// text.
func (c *Client) ExtractReferral(ctx context.Context, letterText string) (*models.ReferralInfo, error) {
	user := fmt.Sprintf(referralUserPrompt, letterText)
	var info models.ReferralInfo
	if err := c.structured(ctx, "referral_info", referralInfoSchema, referralSystemPrompt, user, &info); err != nil {
		return nil, err
	}
	if info.PatientName == "" {
		return nil, fmt.Errorf("%w: no patient name extracted", ErrMalformedResponse)
	}
	slog.Debug("genai.ExtractReferral: referral extracted", "patient", info.PatientName)
	return &info, nil
}

// structured issues a chat completion constrained to a strict JSON schema and
// unmarshals the payload into out.
func (c *Client) structured(ctx context.Context, name string, schema map[string]any, system, user string, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	params := openai.ChatCompletionNewParams{
		Model:       c.model,
		Temperature: openai.Float(0),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &shared.ResponseFormatJSONSchemaParam{
				JSONSchema: shared.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   name,
					Schema: schema,
					Strict: openai.Bool(true),
				},
			},
		},
	}

	resp, err := c.chat.New(ctx, params)
	if err != nil {
		slog.Error("genai.structured: completion failed", "call", name, "error", err)
		return fmt.Errorf("gateway call %s: %w", name, err)
	}
	if len(resp.Choices) == 0 {
		slog.Error("genai.structured: no choices returned", "call", name)
		return fmt.Errorf("gateway call %s: %w: no choices returned", name, ErrMalformedResponse)
	}
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), out); err != nil {
		slog.Error("genai.structured: payload did not match contract", "call", name, "error", err)
		return fmt.Errorf("gateway call %s: %w: %v", name, ErrMalformedResponse, err)
	}
	return nil
}

// generate issues a plain-text chat completion.
func (c *Client) generate(ctx context.Context, system, user string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	params := openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
	}
	resp, err := c.chat.New(ctx, params)
	if err != nil {
		slog.Error("genai.generate: completion failed", "error", err)
		return "", fmt.Errorf("gateway generation: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("gateway generation: %w: no choices returned", ErrMalformedResponse)
	}
	return resp.Choices[0].Message.Content, nil
}

func orNoContext(note string) string {
	if note == "" {
		return "No referral context provided."
	}
	return note
}
