package domain

// Document is the ordered per-page text extracted from one source file.
// It lives only between extraction and chunking and is not retained.
type Document struct {
	Name  string
	Pages []string
}

// Text concatenates the pages in order. Pages without a text layer are
// empty strings and contribute only their separator.
func (d Document) Text() string {
	switch len(d.Pages) {
	case 0:
		return ""
	case 1:
		return d.Pages[0]
	}
	n := 0
	for _, p := range d.Pages {
		n += len(p) + 1
	}
	buf := make([]byte, 0, n)
	for i, p := range d.Pages {
		if i > 0 {
			buf = append(buf, '\n')
		}
		buf = append(buf, p...)
	}
	return string(buf)
}

// InvoiceMetadata is the structured record attached to every chunk derived
// from the same invoice document.
type InvoiceMetadata struct {
	InvoiceDate   string  `json:"invoice_date"`
	InvoiceNumber string  `json:"invoice_number"`
	TotalValue    float64 `json:"total_value"`
	CustomerName  string  `json:"customer_name"`
}

// Validate checks the extracted record before it is attached to chunks.
func (m InvoiceMetadata) Validate() error {
	if m.InvoiceNumber == "" {
		return ErrInvalidMetadata
	}
	if m.TotalValue < 0 {
		return ErrInvalidMetadata
	}
	return nil
}

// Chunk is a bounded-length span of one document's text, the unit of
// retrieval. Immutable once created.
type Chunk struct {
	Text    string
	Source  string
	Invoice *InvoiceMetadata
}

// Match pairs a retrieved chunk with its similarity score.
type Match struct {
	Chunk Chunk
	Score float64
}
