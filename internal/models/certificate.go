package models

import "time"

// Certificate attests completion of a confirmed enrollment. The
// verification code is the public lookup key.
type Certificate struct {
	ID           string      `db:"id" json:"id"`
	EnrollmentID string      `db:"enrollment_id" json:"enrollment_id"`
	SubjectKind  SubjectKind `db:"subject_kind" json:"subject_kind"`
	UserID       string      `db:"user_id" json:"user_id"`
	MemberName   string      `db:"member_name" json:"member_name"`
	SubjectTitle string      `db:"subject_title" json:"subject_title"`
	Code         string      `db:"code" json:"code"`
	IssuedAt     time.Time   `db:"issued_at" json:"issued_at"`
}
