package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWireStatusVocabularyPerKind(t *testing.T) {
	cases := []struct {
		status PaymentStatus
		kind   SubjectKind
		want   string
	}{
		{PaymentPending, SubjectClass, "pending"},
		{PaymentPending, SubjectMentorship, "pending"},
		{PaymentPaid, SubjectClass, "paid"},
		{PaymentPaid, SubjectCourse, "paid"},
		{PaymentPaid, SubjectMentorship, "confirmed"},
		{PaymentCancelled, SubjectCourse, "cancelled"},
		{PaymentCancelled, SubjectMentorship, "cancelled"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.status.WireStatus(tc.kind), "%s/%s", tc.status, tc.kind)
	}
}

func TestParseWireStatusAcceptsBothVocabularies(t *testing.T) {
	cases := map[string]PaymentStatus{
		"pending":   PaymentPending,
		"paid":      PaymentPaid,
		"confirmed": PaymentPaid,
		"CONFIRMED": PaymentPaid,
		"cancelled": PaymentCancelled,
		"CANCELLED": PaymentCancelled,
	}
	for raw, want := range cases {
		got, ok := ParseWireStatus(raw)
		require.True(t, ok, "raw %q", raw)
		assert.Equal(t, want, got, "raw %q", raw)
	}

	_, ok := ParseWireStatus("refunded")
	assert.False(t, ok)
}

func TestEnrollmentDetailViewSerializesStatus(t *testing.T) {
	detail := EnrollmentDetail{
		Enrollment: Enrollment{
			ID:               "enr-1",
			PaymentStatus:    PaymentPending,
			PaymentReference: "JU10-X-AAAAAA",
		},
		MemberName:   "Maria dos Santos",
		MemberEmail:  "maria@example.com",
		SubjectTitle: "Algebra",
	}

	raw, err := json.Marshal(NewEnrollmentDetailView(detail, SubjectClass))
	require.NoError(t, err)

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &payload))
	assert.Equal(t, "pending", payload["payment_status"])
	assert.Equal(t, "class", payload["subject_kind"])
	assert.Equal(t, "Maria dos Santos", payload["member_name"])

	detail.PaymentStatus = PaymentPaid
	raw, err = json.Marshal(NewEnrollmentDetailView(detail, SubjectMentorship))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &payload))
	assert.Equal(t, "confirmed", payload["payment_status"])
}

func TestSubjectKindTables(t *testing.T) {
	assert.Equal(t, "class_enrollments", SubjectClass.EnrollmentTable())
	assert.Equal(t, "course_enrollments", SubjectCourse.EnrollmentTable())
	assert.Equal(t, "mentorship_enrollments", SubjectMentorship.EnrollmentTable())
	assert.Empty(t, SubjectKind("webinar").EnrollmentTable())
	assert.False(t, SubjectKind("webinar").Valid())
}
