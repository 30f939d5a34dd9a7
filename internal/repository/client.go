package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/mfortin/barbooks/internal/domain"
)

type ClientRepository struct {
	db *sql.DB
}

func NewClientRepository(db *sql.DB) *ClientRepository {
	return &ClientRepository{db: db}
}

func (r *ClientRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Client, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, firm_id, display_name, created_at FROM clients WHERE id = $1`, id,
	)

	var c domain.Client
	err := row.Scan(&c.ID, &c.FirmID, &c.DisplayName, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByID: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByID: %w", err)
	}
	return &c, nil
}

type MatterRepository struct {
	db *sql.DB
}

func NewMatterRepository(db *sql.DB) *MatterRepository {
	return &MatterRepository{db: db}
}

func (r *MatterRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Matter, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, firm_id, client_id, title, created_at FROM matters WHERE id = $1`, id,
	)

	var m domain.Matter
	err := row.Scan(&m.ID, &m.FirmID, &m.ClientID, &m.Title, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByID: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByID: %w", err)
	}
	return &m, nil
}
