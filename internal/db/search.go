package db

// KNNQuery is the input for vector similarity search.
type KNNQuery struct {
	IndexName string
	// VectorField is the indexed vector attribute (default "__vector").
	VectorField string
	// TagFilters pre-filter candidates: every field must equal its value.
	TagFilters   map[string]string
	Vector       []float32
	K            int
	ReturnFields []string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit. Distance is the raw metric value
// reported by the engine (smaller is closer).
type SearchEntry struct {
	Key      string
	Distance float64
	Fields   map[string]string
}
