// Package chunker splits extracted document text into bounded-size,
// sentence-respecting chunks for embedding and retrieval.
package chunker

import "strings"

// DefaultMaxChunkSize is the chunk budget in characters.
const DefaultMaxChunkSize = 1000

// Split cuts text into chunks of at most maxChunkSize characters without
// breaking sentences. A single sentence longer than the budget becomes its
// own oversized chunk. Empty input yields no chunks. Pure and deterministic.
func Split(text string, maxChunkSize int) []string {
	if maxChunkSize < 1 {
		maxChunkSize = DefaultMaxChunkSize
	}

	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return nil
	}

	var chunks []string
	var buf strings.Builder
	for _, sentence := range sentences {
		if buf.Len() > 0 && buf.Len()+len(sentence) > maxChunkSize {
			chunks = append(chunks, strings.TrimSpace(buf.String()))
			buf.Reset()
		}
		buf.WriteString(sentence)
		buf.WriteByte(' ')
	}
	if tail := strings.TrimSpace(buf.String()); tail != "" {
		chunks = append(chunks, tail)
	}
	return chunks
}

// splitSentences splits on sentence terminators (. ! ?) followed by
// whitespace, keeping the terminators with their sentence. Trailing text
// without a terminator counts as a final sentence.
func splitSentences(text string) []string {
	var sentences []string
	start := 0
	for i := 0; i < len(text); i++ {
		if !isTerminator(text[i]) {
			continue
		}
		// Swallow runs of terminators ("..." / "?!").
		end := i + 1
		for end < len(text) && isTerminator(text[end]) {
			end++
		}
		if end < len(text) && !isSpace(text[end]) {
			// Mid-token punctuation (e.g. "3.14"), not a boundary.
			i = end - 1
			continue
		}
		if s := strings.TrimSpace(text[start:end]); s != "" {
			sentences = append(sentences, s)
		}
		for end < len(text) && isSpace(text[end]) {
			end++
		}
		start = end
		i = end - 1
	}
	if s := strings.TrimSpace(text[start:]); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

func isTerminator(c byte) bool {
	return c == '.' || c == '!' || c == '?'
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
