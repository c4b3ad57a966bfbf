package ast

// Register names a hardware register a variable should prefer.
type Register string

const (
	RegNone Register = ""
	RegA    Register = "A" // accumulator
	RegX    Register = "X" // index register X
	RegY    Register = "Y" // index register Y
)

// Metadata is the per-node side record written by the analysis tiers.
// Each tier owns a disjoint field subset: usage analysis writes the
// counters, GVN writes the value-number fields, the call-graph analyzer
// writes the call fields, and the target-aware hint analyzer writes the
// placement fields. No tier touches another tier's fields.
type Metadata struct {
	// Usage analysis (tier 1).
	ReadCount   int
	WriteCount  int
	LoopDepth   int
	HotPath     bool
	ArrayIndex  bool
	Induction   bool
	ReadModify  bool
	PointerBase bool

	// Global value numbering (tier 2).
	ValueNumber   int
	HasValue      bool
	Redundant     bool
	RedundantWith string

	// Call-graph analysis (tier 3).
	CallCount    int
	IsRecursive  bool
	DeadFunction bool

	// Target-aware hints (tier 3).
	ZeroPagePriority int
	RegisterPref     Register
}

// MetaTable maps node identities to their metadata records. Records are
// created lazily on first access and live as long as the owning tree.
type MetaTable struct {
	records map[NodeID]*Metadata
}

// NewMetaTable creates an empty metadata table.
func NewMetaTable() *MetaTable {
	return &MetaTable{records: make(map[NodeID]*Metadata)}
}

// Get returns the metadata record for a node, creating it if absent.
func (t *MetaTable) Get(id NodeID) *Metadata {
	rec, ok := t.records[id]
	if !ok {
		rec = &Metadata{}
		t.records[id] = rec
	}
	return rec
}

// Lookup returns the record for a node without creating one.
func (t *MetaTable) Lookup(id NodeID) (*Metadata, bool) {
	rec, ok := t.records[id]
	return rec, ok
}

// Len returns the number of records in the table.
func (t *MetaTable) Len() int {
	return len(t.records)
}
