package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kentra/backoffice/internal/events"
	"github.com/kentra/backoffice/internal/models"
)

func TestCanTransition_AllPairs(t *testing.T) {
	all := []string{models.StatusScheduled, models.StatusCompleted, models.StatusCanceled}
	for _, from := range all {
		for _, to := range all {
			assert.True(t, CanTransition(from, to), "%s -> %s", from, to)
		}
		assert.False(t, CanTransition(from, "no_show"))
	}
}

func TestParseStatus(t *testing.T) {
	s, ok := ParseStatus("  Completed ")
	assert.True(t, ok)
	assert.Equal(t, models.StatusCompleted, s)

	_, ok = ParseStatus("done")
	assert.False(t, ok)
}

func TestSetAppointmentStatus(t *testing.T) {
	gdb := newTestDB(t)
	st := seedStudent(t, gdb, testNID, nil)
	svc := seedService(t, gdb, "Λογοθεραπεία")
	appt := book(t, gdb, st, svc, monday, models.StatusScheduled)

	type change struct{ from, to string }
	var fired []change
	events.OnStatusChange = func(_ models.Appointment, from, to string) {
		fired = append(fired, change{from, to})
	}
	t.Cleanup(func() { events.OnStatusChange = nil })

	ctx := context.Background()

	got, err := SetAppointmentStatus(ctx, gdb, appt.ID, "completed")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, got.Status)

	// same status is accepted but does not fire
	_, err = SetAppointmentStatus(ctx, gdb, appt.ID, "completed")
	require.NoError(t, err)

	_, err = SetAppointmentStatus(ctx, gdb, appt.ID, "canceled")
	require.NoError(t, err)

	var reloaded models.Appointment
	require.NoError(t, gdb.First(&reloaded, appt.ID).Error)
	assert.Equal(t, models.StatusCanceled, reloaded.Status)

	assert.Equal(t, []change{
		{models.StatusScheduled, models.StatusCompleted},
		{models.StatusCompleted, models.StatusCanceled},
	}, fired)
}

func TestSetAppointmentStatus_Errors(t *testing.T) {
	gdb := newTestDB(t)
	st := seedStudent(t, gdb, testNID, nil)
	svc := seedService(t, gdb, "Λογοθεραπεία")
	appt := book(t, gdb, st, svc, monday, models.StatusScheduled)
	ctx := context.Background()

	_, err := SetAppointmentStatus(ctx, gdb, appt.ID, "no_show")
	assert.ErrorIs(t, err, ErrInvalidStatus)

	_, err = SetAppointmentStatus(ctx, gdb, appt.ID+99, "completed")
	assert.ErrorIs(t, err, ErrAppointmentNotFound)
	assert.True(t, IsNotFound(err))

	var reloaded models.Appointment
	require.NoError(t, gdb.First(&reloaded, appt.ID).Error)
	assert.Equal(t, models.StatusScheduled, reloaded.Status)
}
