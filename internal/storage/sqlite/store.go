package sqlite

import (
	"database/sql"

	"lottobot/internal/domain"
)

// Store binds the draw functions to one database handle.
type Store struct {
	DB *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{DB: db}
}

func (s *Store) UpsertDraws(draws []domain.Draw) (int, error) { return UpsertDraws(s.DB, draws) }

func (s *Store) GetDraw(round int) (domain.Draw, error) { return GetDraw(s.DB, round) }

func (s *Store) LatestRound() (int, error) { return LatestRound(s.DB) }

func (s *Store) CountDraws() (int, error) { return CountDraws(s.DB) }

func (s *Store) ListRecentDraws(limit int) ([]domain.Draw, error) { return ListRecentDraws(s.DB, limit) }
