package postgres

import (
	"context"
	"fmt"

	"github.com/opengrants/councild/internal/domain/observation"
	"github.com/opengrants/councild/internal/port/database"
)

const observationColumns = `
	id, panelist_id, pattern, evidence, tags, confidence, status,
	created_at, validated_at, validated_by, times_used, times_helpful`

// CreateObservation inserts a new observation and fills its ID and creation time.
func (s *Store) CreateObservation(ctx context.Context, o *observation.Observation) error {
	const q = `
		INSERT INTO observations (panelist_id, pattern, evidence, tags, confidence, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	err := s.pool.QueryRow(ctx, q,
		o.PanelistID, o.Pattern, pgTextArray(o.Evidence), pgTextArray(o.Tags),
		o.Confidence, o.Status,
	).Scan(&o.ID, &o.CreatedAt)
	if err != nil {
		return fmt.Errorf("create observation: %w", err)
	}
	return nil
}

// GetObservation retrieves an observation by ID.
func (s *Store) GetObservation(ctx context.Context, id string) (*observation.Observation, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+observationColumns+` FROM observations WHERE id = $1`, id)

	o, err := scanObservation(row)
	if err != nil {
		return nil, notFoundWrap(err, "get observation %s", id)
	}
	return o, nil
}

// ListObservations returns observations matching the filter, newest first.
// Tags filter with array overlap: any shared tag matches.
func (s *Store) ListObservations(ctx context.Context, f database.ObservationFilter) ([]observation.Observation, error) {
	q := `SELECT ` + observationColumns + ` FROM observations WHERE 1=1`
	args := []any{}
	if f.PanelistID != "" {
		args = append(args, f.PanelistID)
		q += fmt.Sprintf(` AND panelist_id = $%d`, len(args))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		q += fmt.Sprintf(` AND status = $%d`, len(args))
	}
	if len(f.Tags) > 0 {
		args = append(args, pgTextArray(f.Tags))
		q += fmt.Sprintf(` AND tags && $%d`, len(args))
	}
	q += ` ORDER BY created_at DESC`
	if f.Limit > 0 {
		q += fmt.Sprintf(` LIMIT %d`, f.Limit)
	}

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list observations: %w", err)
	}
	defer rows.Close()

	var result []observation.Observation
	for rows.Next() {
		o, err := scanObservation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan observation: %w", err)
		}
		result = append(result, *o)
	}
	return result, rows.Err()
}

// UpdateObservation persists lifecycle and counter fields of an observation.
func (s *Store) UpdateObservation(ctx context.Context, o *observation.Observation) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE observations
		 SET pattern = $2, evidence = $3, tags = $4, confidence = $5, status = $6,
		     validated_at = $7, validated_by = $8, times_used = $9, times_helpful = $10
		 WHERE id = $1`,
		o.ID, o.Pattern, pgTextArray(o.Evidence), pgTextArray(o.Tags),
		o.Confidence, o.Status, nullTime(o.ValidatedAt), o.ValidatedBy,
		o.TimesUsed, o.TimesHelpful)
	return execExpectOne(tag, err, "update observation %s", o.ID)
}

// IncrementObservationUsage bumps the retrieval counter for the given
// observations in one statement.
func (s *Store) IncrementObservationUsage(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.pool.Exec(ctx,
		`UPDATE observations SET times_used = times_used + 1 WHERE id = ANY($1::uuid[])`,
		pgTextArray(ids))
	if err != nil {
		return fmt.Errorf("increment observation usage: %w", err)
	}
	return nil
}

func scanObservation(row scannable) (*observation.Observation, error) {
	var o observation.Observation
	err := row.Scan(
		&o.ID, &o.PanelistID, &o.Pattern, &o.Evidence, &o.Tags,
		&o.Confidence, &o.Status, &o.CreatedAt, &o.ValidatedAt, &o.ValidatedBy,
		&o.TimesUsed, &o.TimesHelpful,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}
