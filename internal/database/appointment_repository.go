package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/salonflow/queue-backend/internal/models"
)

// AppointmentRepository handles appointment database operations
type AppointmentRepository struct {
	db DB
}

// NewAppointmentRepository creates a new appointment repository
func NewAppointmentRepository(db DB) *AppointmentRepository {
	return &AppointmentRepository{db: db}
}

const appointmentColumns = `id, business_id, customer_id, guest_name, phone, provider_id, status,
	appointment_date, start_time, end_time, duration_minutes, total_price, payment_status,
	checked_in_at, completed_at, delay_minutes, expected_start_at, expected_end_at, is_delayed,
	queue_entry_id, created_at, updated_at`

func scanAppointment(row rowScanner) (*models.Appointment, error) {
	var a models.Appointment
	var customerID, providerID, queueEntryID uuid.NullUUID
	var guestName, phone sql.NullString
	var checkedInAt, completedAt, expectedStartAt, expectedEndAt sql.NullTime

	err := row.Scan(
		&a.ID, &a.BusinessID, &customerID, &guestName, &phone, &providerID, &a.Status,
		&a.AppointmentDate, &a.StartTime, &a.EndTime, &a.DurationMinutes, &a.TotalPrice, &a.PaymentStatus,
		&checkedInAt, &completedAt, &a.DelayMinutes, &expectedStartAt, &expectedEndAt, &a.IsDelayed,
		&queueEntryID, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if customerID.Valid {
		a.CustomerID = &customerID.UUID
	}
	if providerID.Valid {
		a.ProviderID = &providerID.UUID
	}
	if queueEntryID.Valid {
		a.QueueEntryID = &queueEntryID.UUID
	}
	if guestName.Valid {
		a.GuestName = &guestName.String
	}
	if phone.Valid {
		a.Phone = &phone.String
	}
	if checkedInAt.Valid {
		a.CheckedInAt = &checkedInAt.Time
	}
	if completedAt.Valid {
		a.CompletedAt = &completedAt.Time
	}
	if expectedStartAt.Valid {
		a.ExpectedStartAt = &expectedStartAt.Time
	}
	if expectedEndAt.Valid {
		a.ExpectedEndAt = &expectedEndAt.Time
	}
	return &a, nil
}

// Create inserts an appointment together with its service snapshot rows.
func (r *AppointmentRepository) Create(a *models.Appointment, services []models.Service) error {
	query := `
		INSERT INTO appointments (
			id, business_id, customer_id, guest_name, phone, provider_id, status,
			appointment_date, start_time, end_time, duration_minutes, total_price, payment_status
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING created_at, updated_at`
	err := r.db.QueryRow(query,
		a.ID, a.BusinessID, nullableUUID(a.CustomerID), nullableString(a.GuestName),
		nullableString(a.Phone), nullableUUID(a.ProviderID), a.Status,
		a.AppointmentDate, a.StartTime, a.EndTime, a.DurationMinutes, a.TotalPrice, a.PaymentStatus,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create appointment: %w", err)
	}

	svcQuery := `
		INSERT INTO appointment_services (id, appointment_id, service_id, service_name, price, duration_minutes)
		VALUES ($1, $2, $3, $4, $5, $6)`
	for _, svc := range services {
		if _, err := r.db.Exec(svcQuery, uuid.New(), a.ID, svc.ID, svc.Name, svc.Price, svc.DurationMinutes); err != nil {
			return fmt.Errorf("failed to create appointment service: %w", err)
		}
		a.Services = append(a.Services, models.AppointmentService{
			AppointmentID: a.ID, ServiceID: svc.ID, ServiceName: svc.Name,
			Price: svc.Price, DurationMinutes: svc.DurationMinutes,
		})
	}
	return nil
}

// GetByID retrieves an appointment with its service rows
func (r *AppointmentRepository) GetByID(id uuid.UUID) (*models.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1`
	appointment, err := scanAppointment(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}

	services, err := r.services(id)
	if err != nil {
		return nil, err
	}
	appointment.Services = services
	return appointment, nil
}

// ListForDay returns a business's appointments for one day ordered by start time.
func (r *AppointmentRepository) ListForDay(businessID uuid.UUID, day string) ([]models.Appointment, error) {
	query := `SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE business_id = $1 AND appointment_date = $2
		ORDER BY start_time ASC`
	return r.list(query, businessID, day)
}

// ListUpcomingForProvider returns the provider's non-terminal appointments for
// a day ordered by start time, the walk order of delay propagation.
func (r *AppointmentRepository) ListUpcomingForProvider(providerID uuid.UUID, day string) ([]models.Appointment, error) {
	query := `SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE provider_id = $1 AND appointment_date = $2
		  AND status NOT IN ('completed', 'cancelled', 'no_show')
		ORDER BY start_time ASC`
	return r.list(query, providerID, day)
}

func (r *AppointmentRepository) list(query string, args ...interface{}) ([]models.Appointment, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	defer rows.Close()

	var appointments []models.Appointment
	for rows.Next() {
		appointment, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan appointment: %w", err)
		}
		appointments = append(appointments, *appointment)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range appointments {
		services, err := r.services(appointments[i].ID)
		if err != nil {
			return nil, err
		}
		appointments[i].Services = services
	}
	return appointments, nil
}

func (r *AppointmentRepository) services(appointmentID uuid.UUID) ([]models.AppointmentService, error) {
	query := `
		SELECT id, appointment_id, service_id, service_name, price, duration_minutes
		FROM appointment_services
		WHERE appointment_id = $1
		ORDER BY service_name ASC`
	rows, err := r.db.Query(query, appointmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load appointment services: %w", err)
	}
	defer rows.Close()

	var services []models.AppointmentService
	for rows.Next() {
		var s models.AppointmentService
		if err := rows.Scan(&s.ID, &s.AppointmentID, &s.ServiceID, &s.ServiceName, &s.Price, &s.DurationMinutes); err != nil {
			return nil, fmt.Errorf("failed to scan appointment service: %w", err)
		}
		services = append(services, s)
	}
	return services, rows.Err()
}

// UpdateStatus sets the appointment status, stamping checked_in_at or
// completed_at when the new status warrants it.
func (r *AppointmentRepository) UpdateStatus(id uuid.UUID, status models.AppointmentStatus, at time.Time) error {
	var query string
	switch status {
	case models.AppointmentStatusCheckedIn:
		query = `UPDATE appointments SET status = $2, checked_in_at = $3, updated_at = NOW() WHERE id = $1`
	case models.AppointmentStatusCompleted:
		query = `UPDATE appointments SET status = $2, completed_at = $3, updated_at = NOW() WHERE id = $1`
	default:
		query = `UPDATE appointments SET status = $2, updated_at = NOW() WHERE id = $1`
		return r.exec(query, id, status)
	}
	return r.exec(query, id, status, at)
}

// LinkQueueEntry records the queue entry materialized at check-in, only if no
// entry is linked yet. Zero rows affected means another check-in won the race.
func (r *AppointmentRepository) LinkQueueEntry(id, entryID uuid.UUID) error {
	query := `UPDATE appointments SET queue_entry_id = $2, updated_at = NOW() WHERE id = $1 AND queue_entry_id IS NULL`
	result, err := r.db.Exec(query, id, entryID)
	if err != nil {
		return fmt.Errorf("failed to link queue entry: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to link queue entry: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateDelay records the propagated delay projection for an appointment.
func (r *AppointmentRepository) UpdateDelay(id uuid.UUID, delayMinutes int, expectedStart, expectedEnd time.Time, isDelayed bool) error {
	query := `
		UPDATE appointments
		SET delay_minutes = $2, expected_start_at = $3, expected_end_at = $4, is_delayed = $5, updated_at = NOW()
		WHERE id = $1`
	return r.exec(query, id, delayMinutes, expectedStart, expectedEnd, isDelayed)
}

func (r *AppointmentRepository) exec(query string, args ...interface{}) error {
	result, err := r.db.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("failed to update appointment: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update appointment: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
