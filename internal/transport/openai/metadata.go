package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/askinvoice/internal/domain"
	"github.com/kailas-cloud/askinvoice/internal/metrics"
)

const metadataPrompt = `Extract the following invoice details from the document content provided below.
Ensure 'invoice_date' is in format DD-MM-YYYY, 'invoice_number' and 'customer_name'
are strings and 'total_value' is a number.
Respond with a single JSON object with exactly these keys:
{"invoice_date": "", "invoice_number": "", "total_value": 0, "customer_name": ""}

Document content:
%s
`

// MetadataExtractor pulls structured invoice fields out of document text via
// a JSON-mode chat completion.
type MetadataExtractor struct {
	client   *openai.Client
	model    string
	provider string
	logger   *zap.Logger
}

// NewMetadataExtractor creates an invoice metadata extractor sharing the
// completer configuration.
func NewMetadataExtractor(cfg *CompleterConfig) *MetadataExtractor {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &MetadataExtractor{
		client:   openai.NewClientWithConfig(clientCfg),
		model:    cfg.Model,
		provider: cfg.Provider,
		logger:   cfg.Logger,
	}
}

// Extract asks the model for the invoice fields of the given page text and
// validates the result before it is attached to chunks.
func (m *MetadataExtractor) Extract(ctx context.Context, text string) (*domain.InvoiceMetadata, error) {
	req := openai.ChatCompletionRequest{
		Model: m.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf(metadataPrompt, text)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	start := time.Now()

	resp, err := m.client.CreateChatCompletion(ctx, req)

	duration := time.Since(start)

	if err != nil {
		metrics.CompletionRequestsTotal.WithLabelValues(m.provider, m.model, "error").Inc()
		return nil, parseAPIError(err, domain.ErrCompletionProvider)
	}
	if len(resp.Choices) == 0 {
		metrics.CompletionRequestsTotal.WithLabelValues(m.provider, m.model, "error").Inc()
		return nil, fmt.Errorf("empty metadata response: %w", domain.ErrCompletionProvider)
	}

	metrics.CompletionRequestsTotal.WithLabelValues(m.provider, m.model, "success").Inc()
	metrics.CompletionRequestDuration.WithLabelValues(m.provider, m.model).Observe(duration.Seconds())

	var meta domain.InvoiceMetadata
	content := stripCodeFence(resp.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(content), &meta); err != nil {
		return nil, fmt.Errorf("parse metadata response: %v: %w", err, domain.ErrInvalidMetadata)
	}
	if err := meta.Validate(); err != nil {
		return nil, fmt.Errorf("extracted metadata: %w", err)
	}
	return &meta, nil
}

// stripCodeFence removes a markdown code fence some models wrap JSON in.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
