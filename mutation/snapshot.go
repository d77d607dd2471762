package mutation

// Snapshot is the full serialised document at a point in time. Batches carry
// the ID of the latest snapshot so a consumer can rebuild state from it.
type Snapshot struct {
	ID         string `json:"id"` // UUIDv7
	DocumentID string `json:"document_id"`
	HTML       []byte `json:"html"`      // full serialised document
	HTMLHash   string `json:"html_hash"` // SHA-256 hex
	Timestamp  int64  `json:"timestamp"` // epoch milliseconds
}
