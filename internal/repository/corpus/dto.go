package corpus

import (
	"fmt"
	"strconv"
	"time"

	"github.com/kailas-cloud/jobmatch/internal/db/redis"
	"github.com/kailas-cloud/jobmatch/internal/domain/job"
	"github.com/kailas-cloud/jobmatch/internal/domain/label"
)

// Hash field names. The RediSearch schema indexes text, label and vector.
const (
	FieldID        = "id"
	FieldCompanyID = "company_id"
	FieldTitle     = "title"
	FieldText      = "text"
	FieldLabel     = "label"
	FieldVector    = "vector"
)

func postingFields(p job.Posting) map[string]string {
	return map[string]string{
		FieldID:        p.ID(),
		FieldCompanyID: p.CompanyID(),
		FieldTitle:     p.Title(),
		FieldText:      p.Text(),
		FieldLabel:     p.Domain().String(),
		FieldVector:    redis.VectorToBytes(p.Embedding()),
	}
}

func parsePosting(m map[string]string) (job.Posting, error) {
	id := m[FieldID]
	l, err := label.Parse(m[FieldLabel])
	if err != nil {
		return job.Posting{}, fmt.Errorf("job %s: %w", id, err)
	}
	vec, err := redis.BytesToVector(m[FieldVector])
	if err != nil {
		return job.Posting{}, fmt.Errorf("job %s: %w", id, err)
	}
	return job.New(id, m[FieldCompanyID], m[FieldTitle], m[FieldText], l, vec)
}

// Meta describes one stored corpus version.
type Meta struct {
	Version    string
	Dimensions int
	Documents  int
	Model      string
	CreatedAt  time.Time
}

func metaFields(m Meta) map[string]string {
	return map[string]string{
		"version":    m.Version,
		"dimensions": strconv.Itoa(m.Dimensions),
		"documents":  strconv.Itoa(m.Documents),
		"model":      m.Model,
		"created_at": m.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func parseMeta(h map[string]string) (Meta, error) {
	dim, err := strconv.Atoi(h["dimensions"])
	if err != nil {
		return Meta{}, fmt.Errorf("meta dimensions: %w", err)
	}
	docs, err := strconv.Atoi(h["documents"])
	if err != nil {
		return Meta{}, fmt.Errorf("meta documents: %w", err)
	}
	created, err := time.Parse(time.RFC3339, h["created_at"])
	if err != nil {
		return Meta{}, fmt.Errorf("meta created_at: %w", err)
	}
	return Meta{
		Version:    h["version"],
		Dimensions: dim,
		Documents:  docs,
		Model:      h["model"],
		CreatedAt:  created,
	}, nil
}
