package models

import (
	"time"

	"gorm.io/datatypes"
)

// Appointment statuses.
const (
	StatusScheduled = "scheduled"
	StatusCompleted = "completed"
	StatusCanceled  = "canceled"
)

// User roles.
const (
	RoleAdmin = "admin"
	RoleDemo  = "demo"
)

type User struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Username     string `gorm:"uniqueIndex;not null"`
	PasswordHash string `gorm:"not null"`
	Role         string `gorm:"size:16;not null;default:admin"`
	Active       bool   `gorm:"not null;default:true"`
}

type Student struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time

	NationalID string `gorm:"uniqueIndex;not null"` // AMKA
	Center     string `gorm:"index;not null"`

	FirstName string `gorm:"not null"`
	LastName  string `gorm:"not null"`
	BirthDate *datatypes.Date

	ParentName  string
	ParentPhone string

	// nil means scheduling is not gated by an assessment
	AssessmentExpiry *datatypes.Date
	AdminComment     string

	Entitlements []Entitlement `gorm:"constraint:OnDelete:CASCADE"`
	Appointments []Appointment `gorm:"constraint:OnDelete:CASCADE"`
	Payments     []Payment     `gorm:"constraint:OnDelete:CASCADE"`
}

func (s Student) FullName() string {
	return s.LastName + " " + s.FirstName
}

type Service struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Name string `gorm:"uniqueIndex;not null"`
}

// Entitlement is the number of sessions of a service granted to a student.
// Consumption is never stored; it is counted from appointments.
type Entitlement struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time

	StudentID     uint `gorm:"not null;uniqueIndex:uk_entitlement_pair,priority:1"`
	ServiceID     uint `gorm:"not null;uniqueIndex:uk_entitlement_pair,priority:2"`
	Service       Service
	TotalSessions int `gorm:"not null;default:0"`
}

// Status: "scheduled", "completed", "canceled"
type Appointment struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time

	StudentID uint `gorm:"not null;index:idx_appt_student_service,priority:1"`
	Student   Student
	ServiceID uint `gorm:"not null;index:idx_appt_student_service,priority:2"`
	Service   Service

	// Snapshot of the student's center when the appointment was created.
	Center      string         `gorm:"not null;index:idx_appt_center_day,priority:1"`
	Day         datatypes.Date `gorm:"not null;index:idx_appt_center_day,priority:2"`
	StartTime   string         `gorm:"size:5;not null"` // HH:MM
	DurationMin *int
	Status      string `gorm:"size:16;not null;default:scheduled"`
}

type Payment struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time

	StudentID   uint           `gorm:"not null;index"`
	PaidOn      datatypes.Date `gorm:"not null"`
	AmountCents int64          `gorm:"not null"`
	Comment     string
}

type Holiday struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Center string         `gorm:"not null;uniqueIndex:uk_holiday_center_day,priority:1"`
	Day    datatypes.Date `gorm:"not null;uniqueIndex:uk_holiday_center_day,priority:2"`
	Note   string
}
