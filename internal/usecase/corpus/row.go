package corpus

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// maxLineBytes bounds one JSON Lines record; long descriptions run to tens of KiB.
const maxLineBytes = 4 << 20

// Row is one raw posting as it appears in the dataset.
type Row struct {
	JobID       string `json:"job_id"`
	CompanyID   string `json:"company_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Industry    string `json:"industry,omitempty"`

	line int
}

// Skip reasons reported by ingestion.
const (
	SkipMalformed  = "malformed"
	SkipMissingID  = "missing_id"
	SkipEmptyText  = "empty_text"
	SkipDuplicate  = "duplicate"
	SkipUnlabeled  = "unlabeled"
	SkipClassifier = "classifier_failed"
	SkipInvalid    = "invalid"
)

// Skip records a row left out of the corpus.
type Skip struct {
	Line   int    `json:"line"`
	JobID  string `json:"job_id,omitempty"`
	Reason string `json:"reason"`
	Detail string `json:"detail,omitempty"`
}

// ReadRows decodes JSON Lines. Blank lines are ignored; malformed ones are
// reported as skips rather than aborting the read.
func ReadRows(r io.Reader) ([]Row, []Skip, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineBytes)

	var (
		rows  []Row
		skips []Skip
		line  int
	)
	for sc.Scan() {
		line++
		raw := strings.TrimSpace(sc.Text())
		if raw == "" {
			continue
		}
		var row Row
		if err := json.Unmarshal([]byte(raw), &row); err != nil {
			skips = append(skips, Skip{Line: line, Reason: SkipMalformed, Detail: err.Error()})
			continue
		}
		row.line = line
		rows = append(rows, row)
	}
	if err := sc.Err(); err != nil {
		return nil, nil, fmt.Errorf("read line %d: %w", line+1, err)
	}
	return rows, skips, nil
}
