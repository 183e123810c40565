package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/rezerveme/internal/model"
)

// PostgresReservationRepo はPostgreSQLを使用した予約リポジトリ。
type PostgresReservationRepo struct {
	db *sql.DB
}

// NewPostgresReservationRepo はPostgresReservationRepoを生成する。
func NewPostgresReservationRepo(db *sql.DB) *PostgresReservationRepo {
	return &PostgresReservationRepo{db: db}
}

// ListByUserEmail は指定ユーザーの予約一覧を予約日昇順で返す。
func (r *PostgresReservationRepo) ListByUserEmail(ctx context.Context, email string) ([]model.Reservation, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, space_id, user_email, reservation_date, created_at
		 FROM reservations
		 WHERE user_email = $1
		 ORDER BY reservation_date, id`,
		email,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list reservations: %w", err)
	}
	defer rows.Close()

	reservations := []model.Reservation{}
	for rows.Next() {
		var reservation model.Reservation
		if err := rows.Scan(
			&reservation.ID, &reservation.SpaceID, &reservation.UserEmail,
			&reservation.ReservationDate, &reservation.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan reservation: %w", err)
		}
		reservations = append(reservations, reservation)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate reservations: %w", err)
	}

	return reservations, nil
}

// CountBySpaceAndDate は指定スペース・指定日の予約数を返す。
func (r *PostgresReservationRepo) CountBySpaceAndDate(ctx context.Context, spaceID int64, date model.Date) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT count(*) FROM reservations WHERE space_id = $1 AND reservation_date = $2`,
		spaceID, date,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count reservations: %w", err)
	}
	return count, nil
}

// Create は予約を作成し、採番されたIDを設定して返す。
func (r *PostgresReservationRepo) Create(ctx context.Context, reservation *model.Reservation) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO reservations (space_id, user_email, reservation_date)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at`,
		reservation.SpaceID, reservation.UserEmail, reservation.ReservationDate,
	).Scan(&reservation.ID, &reservation.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert reservation: %w", err)
	}
	return nil
}

// compile-time interface check
var _ ReservationRepository = (*PostgresReservationRepo)(nil)
