package askinvoice

import "go.uber.org/zap"

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

// OpenAIConfig holds provider settings for WithOpenAI. BaseURL may point at
// any OpenAI-compatible endpoint (OpenAI, Gemini, Nebius, a local gateway).
type OpenAIConfig struct {
	APIKey         string
	BaseURL        string
	EmbeddingModel string
	Dimensions     int
	LLMModel       string
}

type clientConfig struct {
	dataDir      string
	maxChunkSize int
	topK         int

	openai    *OpenAIConfig
	embedder  Embedder
	completer Completer
	extractor Extractor

	cacheAddr     string
	cachePassword string

	logger *zap.Logger
}

// WithDataDir sets the directory holding the document store and index
// artifact. Default: "data".
func WithDataDir(dir string) Option {
	return optionFunc(func(c *clientConfig) {
		c.dataDir = dir
	})
}

// WithMaxChunkSize bounds document chunk length in bytes. Default: 1000.
func WithMaxChunkSize(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.maxChunkSize = n
	})
}

// WithTopK sets how many chunks retrieval returns per question. Default: 5.
func WithTopK(k int) Option {
	return optionFunc(func(c *clientConfig) {
		c.topK = k
	})
}

// WithOpenAI wires embedding, completion and invoice metadata extraction
// through one OpenAI-compatible provider.
func WithOpenAI(cfg OpenAIConfig) Option {
	return optionFunc(func(c *clientConfig) {
		c.openai = &cfg
	})
}

// WithEmbedder sets a custom embedding provider, overriding WithOpenAI's
// embedder.
func WithEmbedder(e Embedder) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedder = e
	})
}

// WithCompleter sets a custom language model, overriding WithOpenAI's
// completer.
func WithCompleter(lm Completer) Option {
	return optionFunc(func(c *clientConfig) {
		c.completer = lm
	})
}

// WithExtractor sets a custom document text extractor. Default: PDF.
func WithExtractor(e Extractor) Option {
	return optionFunc(func(c *clientConfig) {
		c.extractor = e
	})
}

// WithRedisCache caches embeddings in Redis so repeated text is never
// embedded twice.
func WithRedisCache(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.cacheAddr = addr
		c.cachePassword = password
	})
}

// WithLogger enables structured logging for client operations.
// Default: no logging.
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}
