package models

import "time"

// RevenueByKind aggregates confirmed enrollments for one subject kind.
type RevenueByKind struct {
	Kind      SubjectKind `db:"kind" json:"kind"`
	Confirmed int         `db:"confirmed" json:"confirmed"`
	Pending   int         `db:"pending" json:"pending"`
	Cancelled int         `db:"cancelled" json:"cancelled"`
	Revenue   float64     `db:"revenue" json:"revenue"`
}

// AdminStats is the back-office dashboard payload. Revenue rows come out of
// a single UNION ALL statement so the three kinds share one read snapshot.
type AdminStats struct {
	ByKind       []RevenueByKind `json:"by_kind"`
	TotalRevenue float64         `json:"total_revenue"`
	Currency     string          `json:"currency"`
	ComputedAt   time.Time       `json:"computed_at"`
	FromCache    bool            `json:"-"`
}
