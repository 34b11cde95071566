// Package ask implements the question-answering read path. Aggregation
// questions are answered deterministically from invoice metadata; everything
// else goes through the language model with retrieved context.
package ask

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/askinvoice/internal/domain"
	"github.com/kailas-cloud/askinvoice/internal/index"
)

const (
	emptyQuestionMsg   = "Please enter a question to answer."
	noKnowledgeBaseMsg = "There is no knowledge base to answer from yet. Please add documents first."
)

const answerPrompt = `Use the given context from the uploaded documents to answer the question at the end.
If you don't know the answer based on the given context just say so, don't make up an answer.
Keep the answer precise and helpful.

Context:
%s

Question:
%s

Helpful answer:`

// Answer is the result of one question.
type Answer struct {
	Answer  string   `json:"answer"`
	Sources []string `json:"sources,omitempty"`
	Kind    string   `json:"kind"`
}

// Service answers questions against the knowledge base.
type Service struct {
	embedder  Embedder
	completer Completer
	idx       Index
	topK      int
	logger    *zap.Logger
}

// New creates an answering service. topK bounds retrieval; zero or negative
// falls back to the index default.
func New(embedder Embedder, completer Completer, idx Index, topK int, logger *zap.Logger) *Service {
	if topK <= 0 {
		topK = index.DefaultTopK
	}
	return &Service{
		embedder:  embedder,
		completer: completer,
		idx:       idx,
		topK:      topK,
		logger:    logger,
	}
}

// Ask answers one question. An empty question and an empty knowledge base
// each produce a fixed user-facing message rather than an error.
func (s *Service) Ask(ctx context.Context, question string) (Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return Answer{Answer: emptyQuestionMsg}, nil
	}
	if s.idx.Len() == 0 {
		return Answer{Answer: noKnowledgeBaseMsg}, nil
	}

	result, err := s.embedder.Embed(ctx, question)
	if err != nil {
		return Answer{}, fmt.Errorf("embed question: %w", err)
	}

	matches, err := s.idx.Search(result.Embedding, s.topK)
	if err != nil {
		// The index can drain between the Len check and the search.
		if errors.Is(err, domain.ErrEmptyIndex) {
			return Answer{Answer: noKnowledgeBaseMsg}, nil
		}
		return Answer{}, fmt.Errorf("search index: %w", err)
	}

	kind := domain.ClassifyQuery(question)
	var answer string
	switch kind {
	case domain.QueryAggregation:
		answer = s.aggregate(matches)
	default:
		answer, err = s.generate(ctx, question, matches)
		if err != nil {
			return Answer{}, err
		}
	}

	return Answer{
		Answer:  answer,
		Sources: sources(matches),
		Kind:    kind.String(),
	}, nil
}

// aggregate sums invoice totals across the retrieved chunks, counting each
// (invoice number, source) pair once so multiple chunks of the same invoice
// are not double-counted. Never calls the language model.
func (s *Service) aggregate(matches []domain.Match) string {
	type invoiceKey struct {
		number string
		source string
	}
	seen := make(map[invoiceKey]struct{})

	var total float64
	count := 0
	for _, m := range matches {
		if m.Chunk.Invoice == nil {
			continue
		}
		key := invoiceKey{number: m.Chunk.Invoice.InvoiceNumber, source: m.Chunk.Source}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		total += m.Chunk.Invoice.TotalValue
		count++
	}
	return fmt.Sprintf("Found %d invoices. The total value is %.2f.", count, total)
}

// generate composes the retrieval-augmented prompt and asks the model.
func (s *Service) generate(ctx context.Context, question string, matches []domain.Match) (string, error) {
	parts := make([]string, len(matches))
	for i, m := range matches {
		parts[i] = m.Chunk.Text
	}
	prompt := fmt.Sprintf(answerPrompt, strings.Join(parts, "\n\n"), question)

	answer, err := s.completer.Complete(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("generate answer: %w", err)
	}
	return strings.TrimSpace(answer), nil
}

// sources lists the distinct source documents of the matches, best first.
func sources(matches []domain.Match) []string {
	seen := make(map[string]struct{}, len(matches))
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		if _, ok := seen[m.Chunk.Source]; ok {
			continue
		}
		seen[m.Chunk.Source] = struct{}{}
		out = append(out, m.Chunk.Source)
	}
	return out
}
