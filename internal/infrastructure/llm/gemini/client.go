package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	genai "github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/Yashshah0502/Expense-AI/internal/infrastructure/resilience"
)

// Same generation limits as the other providers so switching backends does
// not change answer length.
const (
	genMaxTokens   = 300
	genTemperature = 0.2
)

// Client wraps the official Gemini SDK for generation and query embeddings.
// The SDK manages its own connection pool, so one client is shared by the
// embedder and the generator and closed once on shutdown.
type Client struct {
	client     *genai.Client
	genModel   string
	embedModel string
	executor   *resilience.Executor
}

func New(ctx context.Context, apiKey, genModel, embedModel string, executor *resilience.Executor) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Client{
		client:     client,
		genModel:   genModel,
		embedModel: embedModel,
		executor:   executor,
	}, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

type Embedder struct {
	client *Client
}

func NewEmbedder(client *Client) *Embedder {
	return &Embedder{client: client}
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	model := e.client.client.EmbeddingModel(e.client.embedModel)

	vector, err := resilience.Do(ctx, e.client.executor, "gemini.embed", func(ctx context.Context) ([]float32, error) {
		resp, err := model.EmbedContent(ctx, genai.Text(text))
		if err != nil {
			return nil, sdkError("gemini embed", err)
		}
		if resp.Embedding == nil || len(resp.Embedding.Values) == 0 {
			return nil, fmt.Errorf("empty embedding result")
		}
		return resp.Embedding.Values, nil
	}, resilience.ClassifyHTTPError)
	if err != nil {
		return nil, resilience.WrapTemporary("gemini embed", err)
	}
	return vector, nil
}

type Generator struct {
	client *Client
}

func NewGenerator(client *Client) *Generator {
	return &Generator{client: client}
}

func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	model := g.client.client.GenerativeModel(g.client.genModel)
	model.SetTemperature(genTemperature)
	model.SetMaxOutputTokens(genMaxTokens)

	answer, err := resilience.Do(ctx, g.client.executor, "gemini.generate", func(ctx context.Context) (string, error) {
		resp, err := model.GenerateContent(ctx, genai.Text(prompt))
		if err != nil {
			return "", sdkError("gemini generate", err)
		}
		return candidateText(resp)
	}, resilience.ClassifyHTTPError)
	if err != nil {
		return "", resilience.WrapTemporary("gemini generate", err)
	}
	return answer, nil
}

// candidateText flattens the text parts of the first candidate. Safety blocks
// and empty candidates surface as errors so the caller can emit its warning.
func candidateText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("empty completion result")
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	out := strings.TrimSpace(b.String())
	if out == "" {
		return "", fmt.Errorf("empty completion result")
	}
	return out, nil
}

// sdkError converts googleapi failures into the shared status error so the
// retry classifier and breaker treat the SDK like the other HTTP backends.
func sdkError(operation string, err error) error {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return err
	}
	return &resilience.HTTPStatusError{
		Operation:  operation,
		StatusCode: apiErr.Code,
		Status:     fmt.Sprintf("%d %s", apiErr.Code, http.StatusText(apiErr.Code)),
		Body:       strings.TrimSpace(apiErr.Message),
	}
}
