package models

import "time"

// AttendanceStatus enumerates per-session attendance outcomes.
type AttendanceStatus string

const (
	AttendancePresent AttendanceStatus = "PRESENT"
	AttendanceAbsent  AttendanceStatus = "ABSENT"
	AttendanceLate    AttendanceStatus = "LATE"
	AttendanceExcused AttendanceStatus = "EXCUSED"
)

// AttendanceRecord marks one student's attendance for a course session.
// Identity for upserts is (course_id, student_id, date).
type AttendanceRecord struct {
	ID        string           `db:"id" json:"id"`
	CourseID  string           `db:"course_id" json:"course_id"`
	StudentID string           `db:"student_id" json:"student_id"`
	Date      time.Time        `db:"date" json:"date"`
	Status    AttendanceStatus `db:"status" json:"status"`
	Comment   string           `db:"comment" json:"comment"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt time.Time        `db:"updated_at" json:"updated_at"`
}

// AttendanceRow adds student context for course attendance listings.
type AttendanceRow struct {
	AttendanceRecord
	StudentNo   *string `db:"student_no" json:"student_no,omitempty"`
	StudentName string  `db:"student_name" json:"student_name"`
}
