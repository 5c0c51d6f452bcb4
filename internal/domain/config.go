package domain

// KeyPrefix namespaces every key the service writes to the key-value store.
// Overridden from storage.key_prefix at startup.
var KeyPrefix = "ragq:"

// VectorConfig holds query vectorization settings, not exposed to clients.
type VectorConfig struct {
	Model            string
	Dimensions       int
	DistanceMetric   string
	QueryInstruction string
}

// DefaultVectorConfig returns defaults tuned for bge-m3 style 1024-dim embeddings.
func DefaultVectorConfig() VectorConfig {
	return VectorConfig{
		Model:          "bge-m3",
		Dimensions:     1024,
		DistanceMetric: "cosine",
	}
}
