package repository

import (
	"testing"
)

// 各PostgresリポジトリがRepositoryインターフェースを満たすことを検証
func TestPostgresRepos_ImplementInterfaces(t *testing.T) {
	var _ UserRepository = (*PostgresUserRepo)(nil)
	var _ SessionRepository = (*PostgresSessionRepo)(nil)
	var _ AdminRepository = (*PostgresAdminRepo)(nil)
	var _ SpaceRepository = (*PostgresSpaceRepo)(nil)
	var _ ReservationRepository = (*PostgresReservationRepo)(nil)
}

func TestNewPostgresRepos_Initialize(t *testing.T) {
	if NewPostgresUserRepo(nil) == nil {
		t.Error("NewPostgresUserRepo returned nil")
	}
	if NewPostgresSessionRepo(nil) == nil {
		t.Error("NewPostgresSessionRepo returned nil")
	}
	if NewPostgresAdminRepo(nil) == nil {
		t.Error("NewPostgresAdminRepo returned nil")
	}
	if NewPostgresSpaceRepo(nil) == nil {
		t.Error("NewPostgresSpaceRepo returned nil")
	}
	if NewPostgresReservationRepo(nil) == nil {
		t.Error("NewPostgresReservationRepo returned nil")
	}
}
