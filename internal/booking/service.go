// Package booking はスペースと予約のドメインロジックを提供する。
package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/rezerveme/internal/metrics"
	"github.com/hitoshi/rezerveme/internal/model"
	"github.com/hitoshi/rezerveme/internal/repository"
	"github.com/hitoshi/rezerveme/internal/security"
)

// ErrDateRequired は予約日が指定されていないことを表す。
var ErrDateRequired = errors.New("Reservation date is required")

// ErrNameRequired はスペース名が空であることを表す。
var ErrNameRequired = errors.New("Space name is required")

// ErrInvalidCapacity は定員が1未満であることを表す。
var ErrInvalidCapacity = errors.New("Capacity must be at least 1")

// SpaceNotFoundError は指定IDのスペースが存在しないことを表す。
type SpaceNotFoundError struct {
	SpaceID int64
}

func (e *SpaceNotFoundError) Error() string {
	return fmt.Sprintf("Space not found with id: %d", e.SpaceID)
}

// CapacityError は指定日のスペースが満員であることを表す。
// メッセージには現在の予約数と定員を含める。
type CapacityError struct {
	Current  int
	Capacity int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("Space is at capacity for this date. Current reservations: %d, Capacity: %d", e.Current, e.Capacity)
}

// Service はスペースと予約のサービス層。
// 入力検証 → 定員チェック → 永続化のフローを統括する。
type Service struct {
	spaceRepo       repository.SpaceRepository
	reservationRepo repository.ReservationRepository
	sanitizer       security.NameSanitizerService
	metrics         metrics.MetricsCollector
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	spaceRepo repository.SpaceRepository,
	reservationRepo repository.ReservationRepository,
	sanitizer security.NameSanitizerService,
	collector metrics.MetricsCollector,
) *Service {
	return &Service{
		spaceRepo:       spaceRepo,
		reservationRepo: reservationRepo,
		sanitizer:       sanitizer,
		metrics:         collector,
	}
}

// ListSpaces は全スペースの一覧を返す。
func (s *Service) ListSpaces(ctx context.Context) ([]model.Space, error) {
	spaces, err := s.spaceRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("スペース一覧の取得に失敗しました: %w", err)
	}
	return spaces, nil
}

// CreateSpace はスペースを作成する。
// フロー: 名前のサニタイズ → 検証 → 保存
func (s *Service) CreateSpace(ctx context.Context, name string, capacity int) (*model.Space, error) {
	// 1. 名前のサニタイズ（HTMLタグ・制御文字の除去）
	name = s.sanitizer.Sanitize(name)

	// 2. 入力検証
	if name == "" {
		return nil, ErrNameRequired
	}
	if capacity < 1 {
		return nil, ErrInvalidCapacity
	}

	// 3. 保存
	space := &model.Space{
		Name:      name,
		Capacity:  capacity,
		CreatedAt: time.Now(),
	}
	if err := s.spaceRepo.Create(ctx, space); err != nil {
		return nil, fmt.Errorf("スペースの作成に失敗しました: %w", err)
	}

	s.metrics.RecordSpaceCreated()
	slog.Info("space created",
		slog.Int64("space_id", space.ID),
		slog.String("name", space.Name),
		slog.Int("capacity", space.Capacity),
	)

	return space, nil
}

// ListReservations は指定ユーザーの予約一覧を返す。
func (s *Service) ListReservations(ctx context.Context, userEmail string) ([]model.Reservation, error) {
	reservations, err := s.reservationRepo.ListByUserEmail(ctx, userEmail)
	if err != nil {
		return nil, fmt.Errorf("予約一覧の取得に失敗しました: %w", err)
	}
	return reservations, nil
}

// CreateReservation は予約を作成する。
// フロー: 日付検証 → スペース存在チェック → 定員チェック → 保存
func (s *Service) CreateReservation(ctx context.Context, spaceID int64, userEmail string, date model.Date) (*model.Reservation, error) {
	// 1. 予約日の検証
	if date.IsZero() {
		s.metrics.RecordReservationRejected("invalid_date")
		return nil, ErrDateRequired
	}

	// 2. スペースの存在チェック
	space, err := s.spaceRepo.FindByID(ctx, spaceID)
	if err != nil {
		return nil, fmt.Errorf("スペースの検索に失敗しました: %w", err)
	}
	if space == nil {
		s.metrics.RecordReservationRejected("unknown_space")
		return nil, &SpaceNotFoundError{SpaceID: spaceID}
	}

	// 3. 指定日の定員チェック
	current, err := s.reservationRepo.CountBySpaceAndDate(ctx, spaceID, date)
	if err != nil {
		return nil, fmt.Errorf("予約数の確認に失敗しました: %w", err)
	}
	if current >= space.Capacity {
		s.metrics.RecordReservationRejected("capacity")
		return nil, &CapacityError{Current: current, Capacity: space.Capacity}
	}

	// 4. 保存
	reservation := &model.Reservation{
		SpaceID:         spaceID,
		UserEmail:       userEmail,
		ReservationDate: date,
		CreatedAt:       time.Now(),
	}
	if err := s.reservationRepo.Create(ctx, reservation); err != nil {
		return nil, fmt.Errorf("予約の作成に失敗しました: %w", err)
	}

	s.metrics.RecordReservationCreated()
	slog.Info("reservation created",
		slog.Int64("reservation_id", reservation.ID),
		slog.Int64("space_id", spaceID),
		slog.String("user_email", userEmail),
		slog.String("date", date.String()),
	)

	return reservation, nil
}
