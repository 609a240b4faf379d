package events

import "github.com/kentra/backoffice/internal/models"

// OnStatusChange is called after an appointment moves between statuses.
// services will call this if it's set.
var OnStatusChange func(appt models.Appointment, from, to string)
