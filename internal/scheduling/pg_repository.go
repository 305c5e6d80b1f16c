package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DB is the subset of pgxpool.Pool the repository needs; tests substitute a
// pgxmock pool.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type PgRepository struct {
	db DB
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{db: pool}
}

// NewPgRepositoryWithDB allows injecting mocks for tests.
func NewPgRepositoryWithDB(db DB) *PgRepository {
	return &PgRepository{db: db}
}

// Helpers

func scanProvider(row pgx.Row) (*Provider, error) {
	var p Provider

	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Specialties,
		&p.Active,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProviderNotFound
		}
		return nil, err
	}

	return &p, nil
}

func scanService(row pgx.Row) (*Service, error) {
	var s Service
	var description *string

	err := row.Scan(
		&s.ID,
		&s.Name,
		&description,
		&s.DurationMin,
		&s.PriceCents,
		&s.Category,
		&s.Active,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrServiceNotFound
		}
		return nil, err
	}

	s.Description = description
	return &s, nil
}

func scanSlot(row pgx.Row) (*AvailabilitySlot, error) {
	var s AvailabilitySlot

	err := row.Scan(
		&s.ID,
		&s.ProviderID,
		&s.DayOfWeek,
		&s.Start,
		&s.End,
		&s.Active,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSlotNotFound
		}
		return nil, err
	}

	return &s, nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var notes *string

	err := row.Scan(
		&a.ID,
		&a.PatientID,
		&a.ProviderID,
		&a.ServiceID,
		&a.StartTime,
		&a.EndTime,
		&a.Status,
		&a.TotalCents,
		&notes,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	a.Notes = notes
	return &a, nil
}

func scanAppointmentDetail(row pgx.Row) (*AppointmentDetail, error) {
	var d AppointmentDetail
	var notes *string

	err := row.Scan(
		&d.ID,
		&d.PatientID,
		&d.ProviderID,
		&d.ServiceID,
		&d.StartTime,
		&d.EndTime,
		&d.Status,
		&d.TotalCents,
		&notes,
		&d.CreatedAt,
		&d.UpdatedAt,
		&d.ServiceName,
		&d.ProviderName,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	d.Notes = notes
	return &d, nil
}

// Providers

func (r *PgRepository) GetProviderByID(ctx context.Context, id uuid.UUID) (*Provider, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, name, specialties, active, created_at, updated_at
		FROM providers
		WHERE id = $1
	`, id)
	return scanProvider(row)
}

func (r *PgRepository) ListProviders(ctx context.Context, activeOnly bool) ([]Provider, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, name, specialties, active, created_at, updated_at
		FROM providers
		WHERE (NOT $1::bool) OR active
		ORDER BY name ASC
	`, activeOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Provider
	for rows.Next() {
		p, err := scanProvider(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *p)
	}
	return result, rows.Err()
}

// Availability slots

const slotColumns = `id, provider_id, day_of_week, start_time, end_time, active, created_at, updated_at`

func (r *PgRepository) CreateSlot(ctx context.Context, s *AvailabilitySlot) (*AvailabilitySlot, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO availability_slots (id, provider_id, day_of_week, start_time, end_time, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now(), now())
		RETURNING `+slotColumns+`
	`, s.ID, s.ProviderID, s.DayOfWeek, s.Start, s.End, s.Active)
	return scanSlot(row)
}

func (r *PgRepository) GetSlotByID(ctx context.Context, id uuid.UUID) (*AvailabilitySlot, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+slotColumns+`
		FROM availability_slots
		WHERE id = $1
	`, id)
	return scanSlot(row)
}

func (r *PgRepository) UpdateSlot(ctx context.Context, s *AvailabilitySlot) (*AvailabilitySlot, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE availability_slots
		SET day_of_week = $2,
		    start_time = $3,
		    end_time = $4,
		    active = $5,
		    updated_at = now()
		WHERE id = $1
		RETURNING `+slotColumns+`
	`, s.ID, s.DayOfWeek, s.Start, s.End, s.Active)
	return scanSlot(row)
}

func (r *PgRepository) DeleteSlot(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `
		DELETE FROM availability_slots
		WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("delete slot: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSlotNotFound
	}
	return nil
}

func (r *PgRepository) ListSlots(ctx context.Context, providerID uuid.UUID, activeOnly bool) ([]AvailabilitySlot, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+slotColumns+`
		FROM availability_slots
		WHERE provider_id = $1
		  AND ((NOT $2::bool) OR active)
		ORDER BY day_of_week ASC, start_time ASC
	`, providerID, activeOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []AvailabilitySlot
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *s)
	}
	return result, rows.Err()
}

// FindOverlappingSlot applies the half-open overlap predicate in SQL;
// canonical "HH:MM" values compare correctly as text. Passing uuid.Nil for
// exclude matches no row, so creates and edits share one query.
func (r *PgRepository) FindOverlappingSlot(ctx context.Context, providerID uuid.UUID, day int, start, end string, exclude uuid.UUID) (*AvailabilitySlot, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+slotColumns+`
		FROM availability_slots
		WHERE provider_id = $1
		  AND day_of_week = $2
		  AND active
		  AND id <> $5
		  AND start_time < $4
		  AND end_time > $3
		LIMIT 1
	`, providerID, day, start, end, exclude)

	slot, err := scanSlot(row)
	if err != nil {
		if errors.Is(err, ErrSlotNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return slot, nil
}

// Service catalog

const serviceColumns = `id, name, description, duration_min, price_cents, category, active, created_at, updated_at`

func (r *PgRepository) CreateService(ctx context.Context, s *Service) (*Service, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO services (id, name, description, duration_min, price_cents, category, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
		RETURNING `+serviceColumns+`
	`, s.ID, s.Name, s.Description, s.DurationMin, s.PriceCents, s.Category, s.Active)
	return scanService(row)
}

func (r *PgRepository) GetServiceByID(ctx context.Context, id uuid.UUID) (*Service, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+serviceColumns+`
		FROM services
		WHERE id = $1
	`, id)
	return scanService(row)
}

func (r *PgRepository) UpdateService(ctx context.Context, s *Service) (*Service, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE services
		SET name = $2,
		    description = $3,
		    duration_min = $4,
		    price_cents = $5,
		    category = $6,
		    active = $7,
		    updated_at = now()
		WHERE id = $1
		RETURNING `+serviceColumns+`
	`, s.ID, s.Name, s.Description, s.DurationMin, s.PriceCents, s.Category, s.Active)
	return scanService(row)
}

func (r *PgRepository) DeleteService(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `
		DELETE FROM services
		WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("delete service: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrServiceNotFound
	}
	return nil
}

func (r *PgRepository) ListServices(ctx context.Context, activeOnly bool) ([]Service, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+serviceColumns+`
		FROM services
		WHERE (NOT $1::bool) OR active
		ORDER BY category ASC, name ASC
	`, activeOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Service
	for rows.Next() {
		s, err := scanService(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *s)
	}
	return result, rows.Err()
}

func (r *PgRepository) CountAppointmentsForService(ctx context.Context, serviceID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM appointments
		WHERE service_id = $1
	`, serviceID).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// Appointments

const appointmentColumns = `id, patient_id, provider_id, service_id, start_time, end_time, status, total_cents, notes, created_at, updated_at`

func (r *PgRepository) CreateAppointment(ctx context.Context, a *Appointment) (*Appointment, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO appointments (id, patient_id, provider_id, service_id, start_time, end_time, status, total_cents, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now(), now())
		RETURNING `+appointmentColumns+`
	`, a.ID, a.PatientID, a.ProviderID, a.ServiceID, a.StartTime, a.EndTime, a.Status, a.TotalCents, a.Notes)
	return scanAppointment(row)
}

func (r *PgRepository) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) FindOverlappingAppointment(ctx context.Context, providerID uuid.UUID, start, end time.Time) (*Appointment, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE provider_id = $1
		  AND status IN ('PENDING', 'CONFIRMED')
		  AND start_time < $3
		  AND end_time > $2
		LIMIT 1
	`, providerID, start, end)

	appt, err := scanAppointment(row)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return appt, nil
}

func (r *PgRepository) UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to AppointmentStatus) (*Appointment, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
		    updated_at = now()
		WHERE id = $1
		  AND status = $3
		RETURNING `+appointmentColumns+`
	`, id, to, from)
	return scanAppointment(row)
}

const appointmentDetailQuery = `
	SELECT a.id, a.patient_id, a.provider_id, a.service_id, a.start_time, a.end_time,
	       a.status, a.total_cents, a.notes, a.created_at, a.updated_at,
	       s.name AS service_name, p.name AS provider_name
	FROM appointments a
	JOIN services s ON s.id = a.service_id
	JOIN providers p ON p.id = a.provider_id
`

func (r *PgRepository) ListAppointmentsByPatient(ctx context.Context, patientID uuid.UUID, status *AppointmentStatus, upcomingOnly bool) ([]AppointmentDetail, error) {
	rows, err := r.db.Query(ctx, appointmentDetailQuery+`
		WHERE a.patient_id = $1
		  AND ($2::text IS NULL OR a.status = $2)
		  AND ((NOT $3::bool) OR a.start_time >= now())
		ORDER BY a.start_time ASC
	`, patientID, statusArg(status), upcomingOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectDetails(rows)
}

func (r *PgRepository) ListAppointments(ctx context.Context, status *AppointmentStatus) ([]AppointmentDetail, error) {
	rows, err := r.db.Query(ctx, appointmentDetailQuery+`
		WHERE ($1::text IS NULL OR a.status = $1)
		ORDER BY a.start_time ASC
	`, statusArg(status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectDetails(rows)
}

func collectDetails(rows pgx.Rows) ([]AppointmentDetail, error) {
	var result []AppointmentDetail
	for rows.Next() {
		d, err := scanAppointmentDetail(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *d)
	}
	return result, rows.Err()
}

func statusArg(status *AppointmentStatus) *string {
	if status == nil {
		return nil
	}
	s := string(*status)
	return &s
}

// Event logging

func (r *PgRepository) InsertEvent(ctx context.Context, ev EventLog) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO event_logs (event_type, appointment_id, payload, created_at)
		VALUES ($1, $2, $3, COALESCE($4, now()))
	`, ev.EventType, ev.AppointmentID, ev.Payload, nullableTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert event log: %w", err)
	}

	return nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
