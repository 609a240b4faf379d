package services

import "github.com/pkg/errors"

// Not-found outcomes.
var (
	ErrStudentNotFound     = errors.New("student not found")
	ErrServiceNotFound     = errors.New("service not found")
	ErrAppointmentNotFound = errors.New("appointment not found")
)

// Validation outcomes.
var (
	ErrBadDate       = errors.New("invalid date")
	ErrBadTime       = errors.New("invalid time")
	ErrBadCount      = errors.New("invalid session count")
	ErrBadDuration   = errors.New("invalid duration")
	ErrInvalidStatus = errors.New("invalid appointment status")
)

// Business-rule rejections. These are routine outcomes of a well-formed
// request, see IsRejection.
var (
	ErrAssessmentExpired   = errors.New("start date is past the assessment expiry")
	ErrServiceNotAssigned  = errors.New("service is not assigned to the student")
	ErrNoSessionsAvailable = errors.New("no sessions available")
	ErrRestDayStart        = errors.New("start date falls on a rest day")
)

// IsRejection reports whether err is a business-rule rejection rather than
// a not-found, validation or storage failure.
func IsRejection(err error) bool {
	for _, target := range []error{ErrAssessmentExpired, ErrServiceNotAssigned, ErrNoSessionsAvailable, ErrRestDayStart} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsNotFound reports whether err is one of the not-found outcomes.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrStudentNotFound) ||
		errors.Is(err, ErrServiceNotFound) ||
		errors.Is(err, ErrAppointmentNotFound)
}
