package models

import "time"

// ApplicationStatus tracks an admissions application through review.
type ApplicationStatus string

const (
	ApplicationSubmitted ApplicationStatus = "SUBMITTED"
	ApplicationReviewing ApplicationStatus = "REVIEWING"
	ApplicationAccepted  ApplicationStatus = "ACCEPTED"
	ApplicationRejected  ApplicationStatus = "REJECTED"
)

// Application is an admissions application filed by a student.
type Application struct {
	ID          string            `db:"id" json:"id"`
	StudentID   string            `db:"student_id" json:"student_id"`
	Program     string            `db:"program" json:"program"`
	Status      ApplicationStatus `db:"status" json:"status"`
	DocumentURL *string           `db:"document_url" json:"document_url,omitempty"`
	Notes       string            `db:"notes" json:"notes"`
	SubmittedAt time.Time         `db:"submitted_at" json:"submitted_at"`
	DecidedAt   *time.Time        `db:"decided_at" json:"decided_at,omitempty"`
}

// ApplicationDetail joins an application with student identity.
type ApplicationDetail struct {
	Application
	StudentName  string `db:"student_name" json:"student_name"`
	StudentEmail string `db:"student_email" json:"student_email"`
}

// Enquiry is a public contact-form submission.
type Enquiry struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Email     string    `db:"email" json:"email"`
	Message   string    `db:"message" json:"message"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
