package registry

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"conduit/internal/constants"
	apperrors "conduit/pkg/errors"
	"conduit/pkg/metrics"
	"conduit/pkg/models"
)

const pqUniqueViolation = "23505"

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, endpoint *models.Endpoint) (err error) {
	started := time.Now()
	defer func() { metrics.ObserveDatabaseQuery("postgres", "endpoint_create", err, time.Since(started)) }()

	configJSON, err := json.Marshal(endpoint.Config)
	if err != nil {
		return apperrors.NewValidation("config", "config is not JSON serializable").WithCause(err)
	}

	query := `
		INSERT INTO ` + constants.EndpointsTable + ` (id, tenant_id, name, protocol, config, enabled, health, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err = s.db.ExecContext(ctx, query,
		endpoint.ID, endpoint.TenantID, endpoint.Name, endpoint.Protocol,
		configJSON, endpoint.Enabled, string(endpoint.Health),
		endpoint.CreatedAt, endpoint.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return apperrors.NewDuplicate("endpoint", endpoint.ID).WithCause(err)
		}
		return fmt.Errorf("failed to create endpoint: %w", err)
	}
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, endpoint *models.Endpoint) (err error) {
	started := time.Now()
	defer func() { metrics.ObserveDatabaseQuery("postgres", "endpoint_update", err, time.Since(started)) }()

	configJSON, err := json.Marshal(endpoint.Config)
	if err != nil {
		return apperrors.NewValidation("config", "config is not JSON serializable").WithCause(err)
	}

	query := `
		UPDATE ` + constants.EndpointsTable + `
		SET name = $1, protocol = $2, config = $3, enabled = $4, health = $5, last_checked_at = $6, updated_at = $7
		WHERE id = $8
	`

	res, err := s.db.ExecContext(ctx, query,
		endpoint.Name, endpoint.Protocol, configJSON, endpoint.Enabled,
		string(endpoint.Health), endpoint.LastCheckedAt, endpoint.UpdatedAt, endpoint.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update endpoint: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return apperrors.NewNotFound("endpoint", endpoint.ID)
	}
	return nil
}

func (s *PostgresStore) UpdateHealth(ctx context.Context, id string, status models.HealthStatus, checkedAt time.Time) (err error) {
	started := time.Now()
	defer func() { metrics.ObserveDatabaseQuery("postgres", "endpoint_update_health", err, time.Since(started)) }()

	res, err := s.db.ExecContext(ctx,
		`UPDATE `+constants.EndpointsTable+` SET health = $1, last_checked_at = $2 WHERE id = $3`,
		string(status), checkedAt, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update endpoint health: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return apperrors.NewNotFound("endpoint", id)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, id string) (err error) {
	started := time.Now()
	defer func() { metrics.ObserveDatabaseQuery("postgres", "endpoint_delete", err, time.Since(started)) }()

	res, err := s.db.ExecContext(ctx, `DELETE FROM `+constants.EndpointsTable+` WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete endpoint: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return apperrors.NewNotFound("endpoint", id)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context) (_ []models.Endpoint, err error) {
	started := time.Now()
	defer func() { metrics.ObserveDatabaseQuery("postgres", "endpoint_list", err, time.Since(started)) }()

	query := `
		SELECT id, tenant_id, name, protocol, config, enabled, health, last_checked_at, created_at, updated_at
		FROM ` + constants.EndpointsTable + `
		ORDER BY created_at, id
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list endpoints: %w", err)
	}
	defer rows.Close()

	var endpoints []models.Endpoint
	for rows.Next() {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("context cancelled: %w", ctx.Err())
		default:
		}

		var (
			ep          models.Endpoint
			configJSON  []byte
			health      string
			lastChecked sql.NullTime
		)
		if err := rows.Scan(
			&ep.ID, &ep.TenantID, &ep.Name, &ep.Protocol, &configJSON,
			&ep.Enabled, &health, &lastChecked, &ep.CreatedAt, &ep.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan endpoint: %w", err)
		}
		if len(configJSON) > 0 {
			if err := json.Unmarshal(configJSON, &ep.Config); err != nil {
				return nil, fmt.Errorf("failed to decode config of endpoint %s: %w", ep.ID, err)
			}
		}
		ep.Health = models.HealthStatus(health)
		if lastChecked.Valid {
			t := lastChecked.Time
			ep.LastCheckedAt = &t
		}
		endpoints = append(endpoints, ep)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate endpoints: %w", err)
	}
	return endpoints, nil
}
