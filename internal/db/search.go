package db

// KNNQuery is the input for vector similarity search.
// Entry scores carry the raw __vector_score (a distance for COSINE/L2).
type KNNQuery struct {
	IndexName    string
	Field        string // vector field, defaults to "vector"
	Vector       []float32
	K            int
	ReturnFields []string
}

// TextQuery is the input for full-text search.
type TextQuery struct {
	IndexName    string
	Field        string   // TEXT field the terms are matched against
	Terms        []string // OR'ed together; each term is escaped
	TopK         int
	Scorer       string // e.g. "BM25"; empty keeps the server default
	ReturnFields []string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit from a search.
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}
