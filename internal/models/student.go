package models

import "time"

// EnrollmentStatus tracks how far a learner has progressed through admissions.
type EnrollmentStatus string

const (
	EnrollmentProspect  EnrollmentStatus = "PROSPECT"
	EnrollmentApplicant EnrollmentStatus = "APPLICANT"
	EnrollmentEnrolled  EnrollmentStatus = "ENROLLED"
)

// rank orders statuses so promotions never move backwards.
var enrollmentRank = map[EnrollmentStatus]int{
	EnrollmentProspect:  0,
	EnrollmentApplicant: 1,
	EnrollmentEnrolled:  2,
}

// AtLeast reports whether s is the same or a later stage than other.
func (s EnrollmentStatus) AtLeast(other EnrollmentStatus) bool {
	return enrollmentRank[s] >= enrollmentRank[other]
}

// Student extends a User with the learner profile.
type Student struct {
	ID               string           `db:"id" json:"id"`
	UserID           string           `db:"user_id" json:"user_id"`
	StudentNo        *string          `db:"student_no" json:"student_no,omitempty"`
	EnrollmentStatus EnrollmentStatus `db:"enrollment_status" json:"enrollment_status"`
	CohortID         *string          `db:"cohort_id" json:"cohort_id,omitempty"`
	Phone            string           `db:"phone" json:"phone"`
	Address          string           `db:"address" json:"address"`
	EmergencyContact string           `db:"emergency_contact" json:"emergency_contact"`
	PhotoURL         *string          `db:"photo_url" json:"photo_url,omitempty"`
	CreatedAt        time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time        `db:"updated_at" json:"updated_at"`
}

// StudentDetail joins the student profile with its user record.
type StudentDetail struct {
	Student
	Email    string   `db:"email" json:"email"`
	FullName string   `db:"full_name" json:"full_name"`
	Role     UserRole `db:"role" json:"role"`
	Active   bool     `db:"active" json:"active"`
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search           string
	CohortID         string
	EnrollmentStatus EnrollmentStatus
	Page             int
	PageSize         int
	SortBy           string
	SortOrder        string
}
