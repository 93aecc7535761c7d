package text

import (
	"reflect"
	"testing"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"basic", "Senior Go Engineer", []string{"senior", "go", "engineer"}},
		{"punctuation", "C++/Java, SQL; k8s!", []string{"java", "sql", "k8s"}},
		{"stopwords", "The nurse is on the ward", []string{"nurse", "ward"}},
		{"unicode", "Ingénieur réseau", []string{"ingénieur", "réseau"}},
		{"duplicates kept", "sales sales", []string{"sales", "sales"}},
		{"empty", "", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokenize(tt.in)
			if len(got) == 0 && len(tt.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Tokenize(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestUniqueTerms(t *testing.T) {
	got := UniqueTerms("data data engineer data pipelines engineer")
	want := []string{"data", "engineer", "pipelines"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("UniqueTerms = %v, want %v", got, want)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"abcdef", 3, "abc"},
		{"abc", 10, "abc"},
		{"héllo", 2, "hé"},
		{"abc", 0, "abc"},
	}
	for _, tt := range tests {
		if got := Truncate(tt.in, tt.n); got != tt.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}
