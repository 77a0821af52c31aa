package domain

import "time"

// AuditEvent is one append-only row in the audit log, written alongside
// every insert or replace. Events are never mutated or deleted.
type AuditEvent struct {
	ID        int64
	Action    string // "INSERT" or "UPDATE"
	TableName string
	RecordID  string
	Details   string // JSON payload of the written row
	Timestamp time.Time
}

// CategoryCount is one row of the per-category distribution.
type CategoryCount struct {
	Category string  `json:"category"`
	Count    int     `json:"count"`
	Amount   float64 `json:"amount"`
}

// RangeCount is one row of the per-amount-range distribution.
type RangeCount struct {
	Range string `json:"range"`
	Count int    `json:"count"`
}

// RegionCount is one row of the per-region distribution.
type RegionCount struct {
	Region string `json:"region"`
	Count  int    `json:"count"`
}

// AggregateMetrics is the materialized view recomputed from the full set
// of stored transactions. It is never a source of truth on its own.
type AggregateMetrics struct {
	TotalTransactions    int
	TotalAmount          float64
	SuccessRate          float64
	CategoryDistribution []CategoryCount
	AmountDistribution   []RangeCount
	RegionDistribution   []RegionCount
}

// SnapshotRow is one transaction in the denormalized reporting sample.
type SnapshotRow struct {
	ID       string  `json:"id"`
	Date     string  `json:"date"`
	Amount   float64 `json:"amount"`
	Category string  `json:"category"`
	Status   string  `json:"status"`
	Phone    *string `json:"phone"`
}

// SnapshotSummary is the headline block of a reporting snapshot.
type SnapshotSummary struct {
	TotalTransactions int     `json:"totalTransactions"`
	TotalAmount       float64 `json:"totalAmount"`
	SuccessRate       float64 `json:"successRate"`
	// ActiveUsers counts distinct phone numbers within the sampled
	// transactions, not the whole store.
	ActiveUsers int `json:"activeUsers"`
}

// SnapshotAnalytics carries the three distribution breakdowns.
type SnapshotAnalytics struct {
	CategoryDistribution []CategoryCount `json:"categoryDistribution"`
	AmountDistribution   []RangeCount    `json:"amountDistribution"`
	GeographicData       []RegionCount   `json:"geographicData"`
}

// Snapshot is the point-in-time export consumed by the reporting layer.
type Snapshot struct {
	Summary       SnapshotSummary   `json:"summary"`
	Transactions  []SnapshotRow     `json:"transactions"`
	Analytics     SnapshotAnalytics `json:"analytics"`
	ExportedAt    time.Time         `json:"exported_at"`
	ExportVersion string            `json:"export_version"`
}
