package database

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/salonflow/queue-backend/internal/models"
)

// ProviderRepository handles service provider roster, capabilities and leave
type ProviderRepository struct {
	db DB
}

// NewProviderRepository creates a new provider repository
func NewProviderRepository(db DB) *ProviderRepository {
	return &ProviderRepository{db: db}
}

const providerColumns = `id, business_id, name, phone, role, department, is_active, created_at`

func scanProvider(row rowScanner) (*models.ServiceProvider, error) {
	var p models.ServiceProvider
	var phone, role, department sql.NullString

	err := row.Scan(&p.ID, &p.BusinessID, &p.Name, &phone, &role, &department, &p.IsActive, &p.CreatedAt)
	if err != nil {
		return nil, err
	}

	if phone.Valid {
		p.Phone = &phone.String
	}
	if role.Valid {
		p.Role = &role.String
	}
	if department.Valid {
		p.Department = &department.String
	}
	return &p, nil
}

// Create inserts a new provider
func (r *ProviderRepository) Create(p *models.ServiceProvider) error {
	query := `
		INSERT INTO service_providers (id, business_id, name, phone, role, department, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`
	err := r.db.QueryRow(query, p.ID, p.BusinessID, p.Name,
		nullableString(p.Phone), nullableString(p.Role), nullableString(p.Department), p.IsActive,
	).Scan(&p.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create provider: %w", err)
	}
	return nil
}

// GetByID retrieves a provider with its capability set loaded
func (r *ProviderRepository) GetByID(id uuid.UUID) (*models.ServiceProvider, error) {
	query := `SELECT ` + providerColumns + ` FROM service_providers WHERE id = $1`
	provider, err := scanProvider(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get provider: %w", err)
	}

	serviceIDs, err := r.capabilities(id)
	if err != nil {
		return nil, err
	}
	provider.ServiceIDs = serviceIDs
	return provider, nil
}

// ListByBusiness returns all providers for a business, capabilities included,
// ordered by name.
func (r *ProviderRepository) ListByBusiness(businessID uuid.UUID) ([]models.ServiceProvider, error) {
	query := `SELECT ` + providerColumns + ` FROM service_providers WHERE business_id = $1 ORDER BY name ASC`
	rows, err := r.db.Query(query, businessID)
	if err != nil {
		return nil, fmt.Errorf("failed to list providers: %w", err)
	}
	defer rows.Close()

	var providers []models.ServiceProvider
	for rows.Next() {
		provider, err := scanProvider(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan provider: %w", err)
		}
		providers = append(providers, *provider)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range providers {
		serviceIDs, err := r.capabilities(providers[i].ID)
		if err != nil {
			return nil, err
		}
		providers[i].ServiceIDs = serviceIDs
	}
	return providers, nil
}

// Update changes the editable fields of a provider
func (r *ProviderRepository) Update(p *models.ServiceProvider) error {
	query := `
		UPDATE service_providers
		SET name = $2, phone = $3, role = $4, department = $5, is_active = $6
		WHERE id = $1`
	result, err := r.db.Exec(query, p.ID, p.Name,
		nullableString(p.Phone), nullableString(p.Role), nullableString(p.Department), p.IsActive)
	if err != nil {
		return fmt.Errorf("failed to update provider: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update provider: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a provider and its capability rows
func (r *ProviderRepository) Delete(id uuid.UUID) error {
	if _, err := r.db.Exec(`DELETE FROM provider_services WHERE provider_id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete provider capabilities: %w", err)
	}
	result, err := r.db.Exec(`DELETE FROM service_providers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete provider: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete provider: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// ReplaceCapabilities replaces the provider's capability set wholesale.
func (r *ProviderRepository) ReplaceCapabilities(providerID uuid.UUID, serviceIDs []uuid.UUID) error {
	if _, err := r.db.Exec(`DELETE FROM provider_services WHERE provider_id = $1`, providerID); err != nil {
		return fmt.Errorf("failed to clear provider capabilities: %w", err)
	}
	query := `INSERT INTO provider_services (provider_id, service_id) VALUES ($1, $2)`
	for _, serviceID := range serviceIDs {
		if _, err := r.db.Exec(query, providerID, serviceID); err != nil {
			return fmt.Errorf("failed to add provider capability: %w", err)
		}
	}
	return nil
}

func (r *ProviderRepository) capabilities(providerID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.db.Query(`SELECT service_id FROM provider_services WHERE provider_id = $1`, providerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load provider capabilities: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan capability: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// BusyProviderIDs returns providers currently occupied: bound to a serving
// entry or running an in_progress task today.
func (r *ProviderRepository) BusyProviderIDs(businessID uuid.UUID, day string) (map[uuid.UUID]bool, error) {
	query := `
		SELECT e.assigned_provider_id
		FROM queue_entries e
		JOIN queues q ON q.id = e.queue_id
		WHERE q.business_id = $1 AND e.entry_date = $2
		  AND e.status = 'serving' AND e.assigned_provider_id IS NOT NULL
		UNION
		SELECT s.assigned_provider_id
		FROM queue_entry_services s
		JOIN queue_entries e ON e.id = s.entry_id
		JOIN queues q ON q.id = e.queue_id
		WHERE q.business_id = $1 AND e.entry_date = $2
		  AND s.task_status = 'in_progress' AND s.assigned_provider_id IS NOT NULL`
	rows, err := r.db.Query(query, businessID, day)
	if err != nil {
		return nil, fmt.Errorf("failed to load busy providers: %w", err)
	}
	defer rows.Close()

	busy := make(map[uuid.UUID]bool)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan busy provider: %w", err)
		}
		busy[id] = true
	}
	return busy, rows.Err()
}

// OnLeaveProviderIDs returns providers with a leave range covering the day.
func (r *ProviderRepository) OnLeaveProviderIDs(businessID uuid.UUID, day string) (map[uuid.UUID]bool, error) {
	query := `
		SELECT l.provider_id
		FROM provider_leaves l
		JOIN service_providers p ON p.id = l.provider_id
		WHERE p.business_id = $1 AND l.start_date <= $2 AND l.end_date >= $2`
	rows, err := r.db.Query(query, businessID, day)
	if err != nil {
		return nil, fmt.Errorf("failed to load providers on leave: %w", err)
	}
	defer rows.Close()

	onLeave := make(map[uuid.UUID]bool)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan provider on leave: %w", err)
		}
		onLeave[id] = true
	}
	return onLeave, rows.Err()
}

// AddLeave records a leave range for a provider
func (r *ProviderRepository) AddLeave(leave *models.ProviderLeave) error {
	query := `
		INSERT INTO provider_leaves (id, provider_id, start_date, end_date, reason)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`
	err := r.db.QueryRow(query, leave.ID, leave.ProviderID, leave.StartDate, leave.EndDate,
		nullableString(leave.Reason)).Scan(&leave.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to add leave: %w", err)
	}
	return nil
}

// ListLeaves returns the leave history for a provider, newest first
func (r *ProviderRepository) ListLeaves(providerID uuid.UUID) ([]models.ProviderLeave, error) {
	query := `
		SELECT id, provider_id, start_date, end_date, reason, created_at
		FROM provider_leaves
		WHERE provider_id = $1
		ORDER BY start_date DESC`
	rows, err := r.db.Query(query, providerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list leaves: %w", err)
	}
	defer rows.Close()

	var leaves []models.ProviderLeave
	for rows.Next() {
		var l models.ProviderLeave
		var reason sql.NullString
		if err := rows.Scan(&l.ID, &l.ProviderID, &l.StartDate, &l.EndDate, &reason, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan leave: %w", err)
		}
		if reason.Valid {
			l.Reason = &reason.String
		}
		leaves = append(leaves, l)
	}
	return leaves, rows.Err()
}

// RemoveLeave deletes a leave record
func (r *ProviderRepository) RemoveLeave(id uuid.UUID) error {
	result, err := r.db.Exec(`DELETE FROM provider_leaves WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to remove leave: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to remove leave: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
