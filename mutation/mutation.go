// Package mutation defines the records a journaled dom.Tree emits for each
// structural, attribute and text edit. Consumers replay or persist them as
// JSON batches.
package mutation

// Op is the type of edit recorded.
type Op string

const (
	OpInsert   Op = "insert"    // node attached (includes serialised subtree HTML)
	OpRemove   Op = "remove"    // node detached
	OpText     Op = "text"      // text content replaced
	OpAttr     Op = "attr"      // attribute set
	OpAttrDel  Op = "attr_del"  // attribute removed
	OpDocReset Op = "doc_reset" // document (re)loaded
)

// Record is a single edit.
type Record struct {
	Op       Op     `json:"op"`
	XPath    string `json:"xpath"`
	NodeType int    `json:"node_type,omitempty"` // 1=element, 3=text, 8=comment
	Tag      string `json:"tag,omitempty"`
	Name     string `json:"name,omitempty"`      // attribute name for attr/attr_del
	Value    string `json:"value,omitempty"`     // new value
	OldValue string `json:"old_value,omitempty"` // previous value
	HTML     string `json:"html,omitempty"`      // serialised subtree for insert
}

// Batch is the unit returned by a journal flush: every record collected since
// the previous flush.
type Batch struct {
	ID          string   `json:"id"`          // UUIDv7
	DocumentID  string   `json:"document_id"` // id of the tree the records belong to
	Seq         uint64   `json:"seq"`         // monotonically increasing per document
	Records     []Record `json:"records"`
	Timestamp   int64    `json:"timestamp"`    // epoch milliseconds at flush
	SnapshotRef string   `json:"snapshot_ref"` // ID of the last snapshot, if any
}

// Empty reports whether the batch carries no records.
func (b *Batch) Empty() bool {
	return b == nil || len(b.Records) == 0
}
