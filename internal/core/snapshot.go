package core

// SnapshotVersion tags the on-disk layout of saved snapshots.
const SnapshotVersion = "1"

// SnapshotMeta describes a saved snapshot.
type SnapshotMeta struct {
	SavedAt          string `json:"savedAt"` // RFC3339
	Version          string `json:"version"`
	TransactionCount int    `json:"transactionCount"`
	RuleCount        int    `json:"ruleCount"`
}

// Snapshot is the full persisted state: everything the store owns, as plain
// copies. Maps serialize as arrays so key uniqueness survives a round-trip.
type Snapshot struct {
	Transactions   []Transaction  `json:"transactions"`
	MainCategories []MainCategory `json:"mainCategories"`
	SubCategories  []SubCategory  `json:"subCategories"`
	Rules          []Rule         `json:"rules"`
	Locks          []Lock         `json:"locks"`
	Meta           SnapshotMeta   `json:"meta"`
}
