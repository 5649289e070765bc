package db

// KNNQuery is the input for vector similarity search.
type KNNQuery struct {
	IndexName    string
	VectorField  string // alias of the vector field; "vector" when empty
	Vector       []float32
	K            int
	EFRuntime    int // HNSW query-time candidate list size; index default when 0
	ReturnFields []string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single hit. Score is cosine similarity in [0, 1], best first.
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}
