package scheduling

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockRepo(t *testing.T) (*PgRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPgRepositoryWithDB(mock), mock
}

func slotRow(s AvailabilitySlot) *pgxmock.Rows {
	return pgxmock.NewRows([]string{
		"id", "provider_id", "day_of_week", "start_time", "end_time", "active", "created_at", "updated_at",
	}).AddRow(s.ID, s.ProviderID, s.DayOfWeek, s.Start, s.End, s.Active, s.CreatedAt, s.UpdatedAt)
}

func appointmentRow(a Appointment) *pgxmock.Rows {
	return pgxmock.NewRows([]string{
		"id", "patient_id", "provider_id", "service_id", "start_time", "end_time",
		"status", "total_cents", "notes", "created_at", "updated_at",
	}).AddRow(a.ID, a.PatientID, a.ProviderID, a.ServiceID, a.StartTime, a.EndTime,
		a.Status, a.TotalCents, a.Notes, a.CreatedAt, a.UpdatedAt)
}

func TestFindOverlappingSlotNoRowsMeansFree(t *testing.T) {
	repo, mock := newMockRepo(t)
	providerID := uuid.New()

	mock.ExpectQuery(`FROM availability_slots`).
		WithArgs(providerID, 1, "09:00", "12:00", uuid.Nil).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "provider_id", "day_of_week", "start_time", "end_time", "active", "created_at", "updated_at",
		}))

	slot, err := repo.FindOverlappingSlot(context.Background(), providerID, 1, "09:00", "12:00", uuid.Nil)
	require.NoError(t, err)
	assert.Nil(t, slot, "no matching row means the window is free")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindOverlappingSlotReturnsBlocker(t *testing.T) {
	repo, mock := newMockRepo(t)
	providerID := uuid.New()
	existing := AvailabilitySlot{
		ID:         uuid.New(),
		ProviderID: providerID,
		DayOfWeek:  1,
		Start:      "08:00",
		End:        "12:00",
		Active:     true,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}

	mock.ExpectQuery(`FROM availability_slots`).
		WithArgs(providerID, 1, "10:00", "14:00", uuid.Nil).
		WillReturnRows(slotRow(existing))

	slot, err := repo.FindOverlappingSlot(context.Background(), providerID, 1, "10:00", "14:00", uuid.Nil)
	require.NoError(t, err)
	require.NotNil(t, slot)
	assert.Equal(t, existing.ID, slot.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindOverlappingAppointmentNoRowsMeansFree(t *testing.T) {
	repo, mock := newMockRepo(t)
	providerID := uuid.New()
	start := time.Date(2024, 10, 23, 9, 0, 0, 0, time.UTC)
	end := start.Add(15 * time.Minute)

	mock.ExpectQuery(`FROM appointments`).
		WithArgs(providerID, start, end).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "patient_id", "provider_id", "service_id", "start_time", "end_time",
			"status", "total_cents", "notes", "created_at", "updated_at",
		}))

	appt, err := repo.FindOverlappingAppointment(context.Background(), providerID, start, end)
	require.NoError(t, err)
	assert.Nil(t, appt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateAppointmentStatusCompareAndSwap(t *testing.T) {
	id := uuid.New()
	updated := Appointment{
		ID:         id,
		PatientID:  uuid.New(),
		ProviderID: uuid.New(),
		ServiceID:  uuid.New(),
		StartTime:  time.Now(),
		EndTime:    time.Now().Add(30 * time.Minute),
		Status:     StatusConfirmed,
		TotalCents: 9500,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}

	t.Run("swap succeeds when status matches", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectQuery(`UPDATE appointments`).
			WithArgs(id, StatusConfirmed, StatusPending).
			WillReturnRows(appointmentRow(updated))

		appt, err := repo.UpdateAppointmentStatus(context.Background(), id, StatusPending, StatusConfirmed)
		require.NoError(t, err)
		assert.Equal(t, StatusConfirmed, appt.Status)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("swap misses when status changed underneath", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectQuery(`UPDATE appointments`).
			WithArgs(id, StatusConfirmed, StatusPending).
			WillReturnRows(pgxmock.NewRows([]string{
				"id", "patient_id", "provider_id", "service_id", "start_time", "end_time",
				"status", "total_cents", "notes", "created_at", "updated_at",
			}))

		_, err := repo.UpdateAppointmentStatus(context.Background(), id, StatusPending, StatusConfirmed)
		assert.ErrorIs(t, err, ErrAppointmentNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestCountAppointmentsForService(t *testing.T) {
	repo, mock := newMockRepo(t)
	serviceID := uuid.New()

	mock.ExpectQuery(`SELECT COUNT\(\*\)`).
		WithArgs(serviceID).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(3)))

	count, err := repo.CountAppointmentsForService(context.Background(), serviceID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteSlotMapsMissingRow(t *testing.T) {
	repo, mock := newMockRepo(t)
	id := uuid.New()

	mock.ExpectExec(`DELETE FROM availability_slots`).
		WithArgs(id).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	err := repo.DeleteSlot(context.Background(), id)
	assert.ErrorIs(t, err, ErrSlotNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteServiceMapsMissingRow(t *testing.T) {
	repo, mock := newMockRepo(t)
	id := uuid.New()

	mock.ExpectExec(`DELETE FROM services`).
		WithArgs(id).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	err := repo.DeleteService(context.Background(), id)
	assert.ErrorIs(t, err, ErrServiceNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetProviderByIDNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)
	id := uuid.New()

	mock.ExpectQuery(`FROM providers`).
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "name", "specialties", "active", "created_at", "updated_at",
		}))

	_, err := repo.GetProviderByID(context.Background(), id)
	assert.ErrorIs(t, err, ErrProviderNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListAppointmentsByPatientFilters(t *testing.T) {
	repo, mock := newMockRepo(t)
	patientID := uuid.New()
	status := StatusPending
	want := "PENDING"

	mock.ExpectQuery(`FROM appointments a`).
		WithArgs(patientID, &want, true).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "patient_id", "provider_id", "service_id", "start_time", "end_time",
			"status", "total_cents", "notes", "created_at", "updated_at",
			"service_name", "provider_name",
		}))

	appts, err := repo.ListAppointmentsByPatient(context.Background(), patientID, &status, true)
	require.NoError(t, err)
	assert.Empty(t, appts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertEvent(t *testing.T) {
	repo, mock := newMockRepo(t)
	apptID := uuid.New()

	mock.ExpectExec(`INSERT INTO event_logs`).
		WithArgs("APPOINTMENT_CREATED", &apptID, []byte(`{"patient_id":"x"}`), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := repo.InsertEvent(context.Background(), EventLog{
		EventType:     "APPOINTMENT_CREATED",
		AppointmentID: &apptID,
		Payload:       []byte(`{"patient_id":"x"}`),
	})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
