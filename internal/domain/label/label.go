// Package label defines the closed set of industry domains used to classify
// job postings and resumes.
package label

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknown signals a label name or ordinal outside the closed set.
var ErrUnknown = errors.New("unknown domain label")

// Label is an industry domain. The zero value is not a valid label.
type Label uint8

// Domain labels. Order is significant: it breaks ties in Distribution.Primary.
const (
	Technology Label = iota + 1
	Finance
	Healthcare
	Education
	Engineering
	Manufacturing
	Retail
	Marketing
	Sales
	Legal
	HumanResources
	Hospitality
	Logistics
	Construction
	Media
	Government
)

// Count is the number of valid labels.
const Count = int(Government)

var names = [...]string{
	Technology:     "technology",
	Finance:        "finance",
	Healthcare:     "healthcare",
	Education:      "education",
	Engineering:    "engineering",
	Manufacturing:  "manufacturing",
	Retail:         "retail",
	Marketing:      "marketing",
	Sales:          "sales",
	Legal:          "legal",
	HumanResources: "human_resources",
	Hospitality:    "hospitality",
	Logistics:      "logistics",
	Construction:   "construction",
	Media:          "media",
	Government:     "government",
}

// All returns every valid label in enum order.
func All() []Label {
	out := make([]Label, 0, Count)
	for l := Technology; l <= Government; l++ {
		out = append(out, l)
	}
	return out
}

// IsValid reports whether l belongs to the closed set.
func (l Label) IsValid() bool {
	return l >= Technology && l <= Government
}

func (l Label) String() string {
	if !l.IsValid() {
		return fmt.Sprintf("label(%d)", uint8(l))
	}
	return names[l]
}

// Parse maps a name to its label. Matching ignores case and treats spaces
// and hyphens as underscores, so "Human Resources" parses.
func Parse(s string) (Label, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.NewReplacer(" ", "_", "-", "_").Replace(key)
	for l := Technology; l <= Government; l++ {
		if names[l] == key {
			return l, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknown, s)
}

// MarshalText implements encoding.TextMarshaler.
func (l Label) MarshalText() ([]byte, error) {
	if !l.IsValid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknown, uint8(l))
	}
	return []byte(names[l]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Label) UnmarshalText(b []byte) error {
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}
