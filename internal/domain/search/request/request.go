// Package request validates incoming recommendation queries.
package request

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/jobmatch/internal/domain/label"
)

// DefaultMaxResumeBytes bounds resume text when no limit is configured.
const DefaultMaxResumeBytes = 64 << 10

// Recommendation is a validated resume query.
type Recommendation struct {
	resumeText string
	domainHint label.Label
}

// New trims and validates resume text. maxBytes <= 0 selects
// DefaultMaxResumeBytes. An empty hint means none was extracted.
func New(resumeText, domainHint string, maxBytes int) (Recommendation, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxResumeBytes
	}
	text := strings.TrimSpace(resumeText)
	if text == "" {
		return Recommendation{}, fmt.Errorf("resume_text is required")
	}
	if len(text) > maxBytes {
		return Recommendation{}, fmt.Errorf("resume_text too long (max %d bytes)", maxBytes)
	}

	r := Recommendation{resumeText: text}
	if strings.TrimSpace(domainHint) != "" {
		l, err := label.Parse(domainHint)
		if err != nil {
			return Recommendation{}, fmt.Errorf("domain_hint: %w", err)
		}
		r.domainHint = l
	}
	return r, nil
}

// ResumeText returns the trimmed resume body.
func (r *Recommendation) ResumeText() string { return r.resumeText }

// DomainHint returns the extracted domain hint and whether one was given.
func (r *Recommendation) DomainHint() (label.Label, bool) {
	return r.domainHint, r.domainHint.IsValid()
}
