package database

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/salonflow/queue-backend/internal/models"
)

// BusinessRepository handles business and service catalog reads
type BusinessRepository struct {
	db DB
}

// NewBusinessRepository creates a new business repository
func NewBusinessRepository(db DB) *BusinessRepository {
	return &BusinessRepository{db: db}
}

const businessColumns = `id, owner_id, name, slug, address, phone, open_time, close_time, is_closed, created_at, updated_at`

func scanBusiness(row rowScanner) (*models.Business, error) {
	var b models.Business
	var slug, address, phone sql.NullString

	err := row.Scan(&b.ID, &b.OwnerID, &b.Name, &slug, &address, &phone,
		&b.OpenTime, &b.CloseTime, &b.IsClosed, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if slug.Valid {
		b.Slug = &slug.String
	}
	if address.Valid {
		b.Address = &address.String
	}
	if phone.Valid {
		b.Phone = &phone.String
	}
	return &b, nil
}

// GetByID retrieves a business by id
func (r *BusinessRepository) GetByID(id uuid.UUID) (*models.Business, error) {
	query := `SELECT ` + businessColumns + ` FROM businesses WHERE id = $1`
	business, err := scanBusiness(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get business: %w", err)
	}
	return business, nil
}

// GetByOwner retrieves the business owned by a user
func (r *BusinessRepository) GetByOwner(ownerID uuid.UUID) (*models.Business, error) {
	query := `SELECT ` + businessColumns + ` FROM businesses WHERE owner_id = $1`
	business, err := scanBusiness(r.db.QueryRow(query, ownerID))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get business by owner: %w", err)
	}
	return business, nil
}

// UpdateHours sets the opening hours and the manual closed flag
func (r *BusinessRepository) UpdateHours(id uuid.UUID, openTime, closeTime string, isClosed bool) error {
	query := `
		UPDATE businesses
		SET open_time = $2, close_time = $3, is_closed = $4, updated_at = NOW()
		WHERE id = $1`
	result, err := r.db.Exec(query, id, openTime, closeTime, isClosed)
	if err != nil {
		return fmt.Errorf("failed to update business hours: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update business hours: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// GetServicesByIDs loads active catalog services by id. Inactive or unknown
// ids are simply absent from the result; the caller decides whether that is
// an error.
func (r *BusinessRepository) GetServicesByIDs(businessID uuid.UUID, serviceIDs []uuid.UUID) ([]models.Service, error) {
	query := `
		SELECT id, business_id, name, description, price, duration_minutes, is_active, created_at
		FROM services
		WHERE business_id = $1 AND id = ANY($2) AND is_active = TRUE`

	ids := make([]string, 0, len(serviceIDs))
	for _, id := range serviceIDs {
		ids = append(ids, id.String())
	}

	rows, err := r.db.Query(query, businessID, pqStringArray(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to load services: %w", err)
	}
	defer rows.Close()

	var services []models.Service
	for rows.Next() {
		var s models.Service
		var description sql.NullString
		if err := rows.Scan(&s.ID, &s.BusinessID, &s.Name, &description, &s.Price,
			&s.DurationMinutes, &s.IsActive, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan service: %w", err)
		}
		if description.Valid {
			s.Description = &description.String
		}
		services = append(services, s)
	}
	return services, rows.Err()
}
