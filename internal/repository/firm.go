package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/mfortin/barbooks/internal/domain"
)

const firmColumns = `id, name, province, created_at`

type FirmRepository struct {
	db *sql.DB
}

func NewFirmRepository(db *sql.DB) *FirmRepository {
	return &FirmRepository{db: db}
}

func (r *FirmRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Firm, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+firmColumns+` FROM firms WHERE id = $1`, id,
	)
	f, err := scanFirm(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByID: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByID: %w", err)
	}
	return f, nil
}

// GetForUpdate row-locks the firm. Invoice-number generation serializes on
// this lock so two concurrent creations cannot take the same sequence.
func (r *FirmRepository) GetForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Firm, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+firmColumns+` FROM firms WHERE id = $1 FOR UPDATE`, id,
	)
	f, err := scanFirm(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetForUpdate: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetForUpdate: %w", err)
	}
	return f, nil
}

func scanFirm(s scanner) (*domain.Firm, error) {
	var f domain.Firm
	if err := s.Scan(&f.ID, &f.Name, &f.Province, &f.CreatedAt); err != nil {
		return nil, err
	}
	return &f, nil
}
