package models

import "time"

// SubjectKind identifies which purchasable subject an enrollment targets.
// Each kind is backed by its own enrollment table.
type SubjectKind string

// Supported subject kinds.
const (
	SubjectClass      SubjectKind = "class"
	SubjectCourse     SubjectKind = "course"
	SubjectMentorship SubjectKind = "mentorship"
)

// Valid reports whether the kind is one of the three supported values.
func (k SubjectKind) Valid() bool {
	switch k {
	case SubjectClass, SubjectCourse, SubjectMentorship:
		return true
	}
	return false
}

// EnrollmentTable maps a subject kind to its physical enrollment table.
func (k SubjectKind) EnrollmentTable() string {
	switch k {
	case SubjectClass:
		return "class_enrollments"
	case SubjectCourse:
		return "course_enrollments"
	case SubjectMentorship:
		return "mentorship_enrollments"
	}
	return ""
}

// PaymentStatus is the normalized lifecycle state of an enrollment.
// PENDING is the only state with outgoing transitions; PAID and CANCELLED
// are terminal.
type PaymentStatus string

// Possible payment statuses.
const (
	PaymentPending   PaymentStatus = "PENDING"
	PaymentPaid      PaymentStatus = "PAID"
	PaymentCancelled PaymentStatus = "CANCELLED"
)

// WireStatus renders the status in the vocabulary historically used for the
// subject kind: classes and courses say "paid", mentorships say "confirmed".
func (s PaymentStatus) WireStatus(kind SubjectKind) string {
	switch s {
	case PaymentPending:
		return "pending"
	case PaymentCancelled:
		return "cancelled"
	case PaymentPaid:
		if kind == SubjectMentorship {
			return "confirmed"
		}
		return "paid"
	}
	return string(s)
}

// ParseWireStatus normalizes an inbound status value. Both "paid" and
// "confirmed" map to PAID regardless of kind; filters stay tolerant of the
// old vocabulary split.
func ParseWireStatus(raw string) (PaymentStatus, bool) {
	switch raw {
	case "pending", "PENDING":
		return PaymentPending, true
	case "paid", "confirmed", "PAID", "CONFIRMED":
		return PaymentPaid, true
	case "cancelled", "CANCELLED":
		return PaymentCancelled, true
	}
	return "", false
}

// Enrollment links a member to one subject with a payment lifecycle.
// PaymentAmount snapshots the subject price at creation time and never
// changes afterwards. Version guards admin transitions against concurrent
// writers.
type Enrollment struct {
	ID               string        `db:"id" json:"id"`
	SubjectID        string        `db:"subject_id" json:"subject_id"`
	UserID           string        `db:"user_id" json:"user_id"`
	PaymentStatus    PaymentStatus `db:"payment_status" json:"-"`
	PaymentReference string        `db:"payment_reference" json:"payment_reference"`
	PaymentAmount    float64       `db:"payment_amount" json:"payment_amount"`
	PaymentMethod    string        `db:"payment_method" json:"payment_method"`
	EnrolledAt       time.Time     `db:"enrolled_at" json:"enrolled_at"`
	PaidAt           *time.Time    `db:"paid_at" json:"paid_at,omitempty"`
	Version          int           `db:"version" json:"version"`
}

// EnrollmentView is the JSON shape served to clients, carrying the kind and
// the per-kind wire status vocabulary.
type EnrollmentView struct {
	Enrollment
	SubjectKind SubjectKind `json:"subject_kind"`
	Status      string      `json:"payment_status"`
}

// NewEnrollmentView builds the outward representation of an enrollment.
func NewEnrollmentView(e Enrollment, kind SubjectKind) EnrollmentView {
	return EnrollmentView{
		Enrollment:  e,
		SubjectKind: kind,
		Status:      e.PaymentStatus.WireStatus(kind),
	}
}

// EnrollmentDetail enriches an enrollment with member and subject info for
// the admin reconciliation view.
type EnrollmentDetail struct {
	Enrollment
	MemberName   string `db:"member_name" json:"member_name"`
	MemberEmail  string `db:"member_email" json:"member_email"`
	SubjectTitle string `db:"subject_title" json:"subject_title"`
}

// EnrollmentDetailView is the JSON shape of a reconciliation row, carrying
// the kind and the per-kind wire status vocabulary.
type EnrollmentDetailView struct {
	EnrollmentDetail
	SubjectKind SubjectKind `json:"subject_kind"`
	Status      string      `json:"payment_status"`
}

// NewEnrollmentDetailView builds the outward representation of a
// reconciliation row.
func NewEnrollmentDetailView(d EnrollmentDetail, kind SubjectKind) EnrollmentDetailView {
	return EnrollmentDetailView{
		EnrollmentDetail: d,
		SubjectKind:      kind,
		Status:           d.PaymentStatus.WireStatus(kind),
	}
}

// EnrollmentFilter provides filters for listing enrollments.
type EnrollmentFilter struct {
	UserID    string
	SubjectID string
	Status    PaymentStatus
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
