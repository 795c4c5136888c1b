package models

import (
	"strings"
	"time"
)

// Profile holds the identity and contact fields a member must provide
// before enrolling. One row per user, keyed by user_id.
type Profile struct {
	UserID    string     `db:"user_id" json:"user_id"`
	FullName  string     `db:"full_name" json:"full_name"`
	Phone     string     `db:"phone" json:"phone"`
	IDNumber  string     `db:"id_number" json:"id_number"`
	BirthDate *time.Time `db:"birth_date" json:"birth_date,omitempty"`
	Address   string     `db:"address" json:"address"`
	Province  string     `db:"province" json:"province"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
}

// Complete reports whether every field required to enroll is present.
func (p *Profile) Complete() bool {
	if p == nil {
		return false
	}
	for _, v := range []string{p.FullName, p.Phone, p.IDNumber, p.Address, p.Province} {
		if strings.TrimSpace(v) == "" {
			return false
		}
	}
	return p.BirthDate != nil && !p.BirthDate.IsZero()
}
