package domain

import "strings"

// QueryKind selects one of the two mutually exclusive answer modes.
type QueryKind int

const (
	// QueryFreeText routes the question through the language model.
	QueryFreeText QueryKind = iota
	// QueryAggregation rolls up invoice metadata without a model call.
	QueryAggregation
)

func (k QueryKind) String() string {
	if k == QueryAggregation {
		return "aggregation"
	}
	return "free_text"
}

// aggregationKeywords trigger the deterministic roll-up mode.
var aggregationKeywords = []string{"total", "sum", "count", "average"}

// ClassifyQuery decides the answer mode for a question. Pure function so the
// dispatch is testable independently of both downstream handlers.
func ClassifyQuery(question string) QueryKind {
	q := strings.ToLower(question)
	for _, kw := range aggregationKeywords {
		if strings.Contains(q, kw) {
			return QueryAggregation
		}
	}
	return QueryFreeText
}
