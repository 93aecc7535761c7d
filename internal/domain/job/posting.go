// Package job holds the immutable job posting aggregate.
package job

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/jobmatch/internal/domain/label"
)

// MaxIDLength bounds job ids; they become part of storage keys.
const MaxIDLength = 256

// Posting is one job in the corpus. It is created at ingestion and never mutated.
type Posting struct {
	id        string
	companyID string
	title     string
	text      string
	domain    label.Label
	embedding []float32
}

// New validates a posting. text is the indexed body (title and description).
func New(id, companyID, title, text string, domain label.Label, embedding []float32) (Posting, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Posting{}, fmt.Errorf("job id is required")
	}
	if len(id) > MaxIDLength {
		return Posting{}, fmt.Errorf("job id too long (max %d)", MaxIDLength)
	}
	if strings.TrimSpace(text) == "" {
		return Posting{}, fmt.Errorf("job %s: text is required", id)
	}
	if !domain.IsValid() {
		return Posting{}, fmt.Errorf("job %s: %w", id, label.ErrUnknown)
	}
	if len(embedding) == 0 {
		return Posting{}, fmt.Errorf("job %s: embedding is required", id)
	}
	return Posting{
		id:        id,
		companyID: companyID,
		title:     title,
		text:      text,
		domain:    domain,
		embedding: embedding,
	}, nil
}

// ComposeText joins title and description the way postings are indexed.
func ComposeText(title, description string) string {
	title = strings.TrimSpace(title)
	description = strings.TrimSpace(description)
	switch {
	case title == "":
		return description
	case description == "":
		return title
	default:
		return title + "\n" + description
	}
}

// ID returns the unique job identifier.
func (p *Posting) ID() string { return p.id }

// CompanyID returns the employer identifier, possibly empty.
func (p *Posting) CompanyID() string { return p.companyID }

// Title returns the display title.
func (p *Posting) Title() string { return p.title }

// Text returns the indexed body.
func (p *Posting) Text() string { return p.text }

// Domain returns the label assigned at ingestion.
func (p *Posting) Domain() label.Label { return p.domain }

// Embedding returns the posting vector. Callers must not modify it.
func (p *Posting) Embedding() []float32 { return p.embedding }

// Dimensions returns the embedding length.
func (p *Posting) Dimensions() int { return len(p.embedding) }
