package dto

// RunIndexingRequest triggers a bulk indexing run over a CSV corpus on the
// server's filesystem.
type RunIndexingRequest struct {
	IndexType string `json:"index_type" validate:"required"` // "knowledge" | "intent"
	CsvPath   string `json:"csv_path" validate:"required"`
}

type RunIndexingResponse struct {
	IndexType    string `json:"index_type"`
	TotalRows    int    `json:"total_rows"`
	TotalChunks  int    `json:"total_chunks"`
	IndexedCount int64  `json:"indexed_count"`
	SkippedCount int64  `json:"skipped_count"`
	DurationMs   int64  `json:"duration_ms"`
}
