package groq

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/invopop/jsonschema"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/fokus-assistant/fokus-core/core/llms"
)

const (
	chatCompletionsURL = "https://api.groq.com/openai/v1/chat/completions"

	defaultModel = "llama-3.3-70b-versatile"
)

// Client prompts Groq's chat completions endpoint with a json_schema
// response format and maps the structured reply onto llms.Response.
type Client struct {
	apiKey     string
	model      string
	httpClient *http.Client
}

type ClientOption func(*Client)

func WithModel(model string) ClientOption {
	return func(c *Client) {
		c.model = model
	}
}

func NewClient(opts ...ClientOption) (*Client, error) {
	apiKey := os.Getenv("GROQ_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("GROQ_API_KEY is not set")
	}

	client := &Client{
		apiKey:     apiKey,
		model:      defaultModel,
		httpClient: &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Infer sends one transcribed utterance to the model and returns its reply.
// A response that cannot be decoded against the reply schema is reported as
// llms.ErrMalformedReply so callers can fall back gracefully.
func (c *Client) Infer(ctx context.Context, transcript string, opts ...llms.PromptOption) (*llms.Response, error) {
	ctx, span := tracer.Start(ctx, "prompt llm structured")
	defer span.End()

	var options llms.PromptOptions
	for _, opt := range opts {
		opt(&options)
	}

	messages := []message{}
	if systemPrompt := buildSystemPrompt(options); systemPrompt != "" {
		messages = append(messages, message{Role: messageRoleSystem, Content: systemPrompt})
	}
	messages = append(messages, message{Role: messageRoleUser, Content: transcript})

	reflector := jsonschema.Reflector{DoNotReference: true}
	schema := reflector.Reflect(assistantReply{})

	reqBody := schemaRequestBody{
		Model:    c.model,
		Messages: messages,
		ResponseFormat: &ChatResponseFormat{
			Type: "json_schema",
			JSONSchema: &JSONSchema{
				Name:   "assistantReply",
				Schema: *schema,
				Strict: true,
			},
		},
	}

	span.SetAttributes(attribute.String("request.model", c.model))

	requestBodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		err = fmt.Errorf("error marshalling JSON: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, chatCompletionsURL, bytes.NewBuffer(requestBodyBytes))
	if err != nil {
		err = fmt.Errorf("error creating HTTP request: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		err = fmt.Errorf("error sending request: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("response.status_code", resp.StatusCode))
	if resp.StatusCode != http.StatusOK {
		errorBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		span.SetAttributes(attribute.String("response.error", string(errorBody)))
		err := fmt.Errorf("non-OK HTTP status: %s", resp.Status)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	respBodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		err = fmt.Errorf("error reading response body: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	var responseBody schemaResponseBody
	if err := json.Unmarshal(respBodyBytes, &responseBody); err != nil {
		err = fmt.Errorf("error unmarshalling response: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if len(responseBody.Choices) == 0 {
		return nil, fmt.Errorf("%w: response has no choices", llms.ErrMalformedReply)
	}

	content := responseBody.Choices[0].Message.Content
	// Some models wrap structured output in a markdown fence regardless of
	// the response format.
	if split := strings.Split(content, "```"); len(split) > 1 {
		content = split[1]
	}

	var reply assistantReply
	if err := json.Unmarshal([]byte(content), &reply); err != nil {
		err = fmt.Errorf("%w: %v", llms.ErrMalformedReply, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	response := &llms.Response{AssistantText: reply.AssistantText}
	if reply.ToolCall != nil && reply.ToolCall.Name != "" {
		arguments := make(map[string]any, len(reply.ToolCall.Arguments))
		for name, value := range reply.ToolCall.Arguments {
			arguments[name] = value
		}
		response.ToolCall = &llms.ToolCall{
			ID:        uuid.NewString(),
			Name:      reply.ToolCall.Name,
			Arguments: arguments,
		}
	}

	logger.Debug("assistant reply received",
		"characters", len(response.AssistantText),
		"tool_call", response.ToolCall != nil,
	)
	return response, nil
}
