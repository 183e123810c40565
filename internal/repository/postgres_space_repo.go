package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/rezerveme/internal/model"
)

// PostgresSpaceRepo はPostgreSQLを使用したスペースリポジトリ。
type PostgresSpaceRepo struct {
	db *sql.DB
}

// NewPostgresSpaceRepo はPostgresSpaceRepoを生成する。
func NewPostgresSpaceRepo(db *sql.DB) *PostgresSpaceRepo {
	return &PostgresSpaceRepo{db: db}
}

// List は全スペースをID昇順で返す。
func (r *PostgresSpaceRepo) List(ctx context.Context) ([]model.Space, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, capacity, created_at FROM spaces ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list spaces: %w", err)
	}
	defer rows.Close()

	spaces := []model.Space{}
	for rows.Next() {
		var space model.Space
		if err := rows.Scan(&space.ID, &space.Name, &space.Capacity, &space.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan space: %w", err)
		}
		spaces = append(spaces, space)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate spaces: %w", err)
	}

	return spaces, nil
}

// FindByID は指定IDのスペースを取得する。見つからない場合はnilを返す。
func (r *PostgresSpaceRepo) FindByID(ctx context.Context, id int64) (*model.Space, error) {
	space := &model.Space{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, capacity, created_at FROM spaces WHERE id = $1`,
		id,
	).Scan(&space.ID, &space.Name, &space.Capacity, &space.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find space by ID: %w", err)
	}

	return space, nil
}

// Create はスペースを作成し、採番されたIDを設定して返す。
func (r *PostgresSpaceRepo) Create(ctx context.Context, space *model.Space) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO spaces (name, capacity) VALUES ($1, $2)
		 RETURNING id, created_at`,
		space.Name, space.Capacity,
	).Scan(&space.ID, &space.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert space: %w", err)
	}
	return nil
}

// compile-time interface check
var _ SpaceRepository = (*PostgresSpaceRepo)(nil)
