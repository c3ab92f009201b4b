package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"lottobot/internal/domain"
)

func InitDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, err
	}

	schema := `
	CREATE TABLE IF NOT EXISTS draws (
		round         INTEGER PRIMARY KEY,
		draw_date     DATETIME,
		n1            INTEGER NOT NULL,
		n2            INTEGER NOT NULL,
		n3            INTEGER NOT NULL,
		n4            INTEGER NOT NULL,
		n5            INTEGER NOT NULL,
		n6            INTEGER NOT NULL,
		bonus         INTEGER NOT NULL,
		first_prize   INTEGER DEFAULT 0,
		first_winners INTEGER DEFAULT 0,
		total_sales   INTEGER DEFAULT 0,
		fetched_at    DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS saved_picks (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id    TEXT NOT NULL,
		numbers    TEXT NOT NULL,
		strategy   TEXT DEFAULT '',
		note       TEXT DEFAULT '',
		created_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_saved_picks_user ON saved_picks(user_id, created_at);

	CREATE TABLE IF NOT EXISTS simulation_runs (
		id           TEXT PRIMARY KEY,
		user_id      TEXT NOT NULL,
		target_round INTEGER NOT NULL,
		required     TEXT DEFAULT '',
		min_required INTEGER NOT NULL,
		max_trials   INTEGER NOT NULL,
		trials       INTEGER NOT NULL,
		outcome      TEXT NOT NULL,
		last_numbers TEXT DEFAULT '',
		elapsed_ms   INTEGER DEFAULT 0,
		created_at   DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_simulation_runs_user ON simulation_runs(user_id, created_at);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

const drawColumns = `round, draw_date, n1, n2, n3, n4, n5, n6, bonus, first_prize, first_winners, total_sales`

type scanner interface {
	Scan(dest ...any) error
}

func scanDraw(s scanner) (domain.Draw, error) {
	var d domain.Draw
	var date sql.NullTime
	err := s.Scan(
		&d.Round, &date,
		&d.Numbers[0], &d.Numbers[1], &d.Numbers[2], &d.Numbers[3], &d.Numbers[4], &d.Numbers[5],
		&d.Bonus, &d.FirstPrize, &d.FirstWinners, &d.TotalSales,
	)
	if date.Valid {
		d.Date = date.Time
	}
	return d, err
}

// UpsertDraws stores draws, replacing rows for rounds already present.
// Invalid draws are rejected before anything is written.
func UpsertDraws(db *sql.DB, draws []domain.Draw) (int, error) {
	for _, d := range draws {
		if err := d.Validate(); err != nil {
			return 0, err
		}
	}

	tx, err := db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		`INSERT INTO draws (` + drawColumns + `)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(round) DO UPDATE SET
		   draw_date = excluded.draw_date,
		   n1 = excluded.n1, n2 = excluded.n2, n3 = excluded.n3,
		   n4 = excluded.n4, n5 = excluded.n5, n6 = excluded.n6,
		   bonus = excluded.bonus,
		   first_prize = excluded.first_prize,
		   first_winners = excluded.first_winners,
		   total_sales = excluded.total_sales,
		   fetched_at = CURRENT_TIMESTAMP`,
	)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	stored := 0
	for _, d := range draws {
		var date any
		if !d.Date.IsZero() {
			date = d.Date
		}
		_, err := stmt.Exec(
			d.Round, date,
			d.Numbers[0], d.Numbers[1], d.Numbers[2], d.Numbers[3], d.Numbers[4], d.Numbers[5],
			d.Bonus, d.FirstPrize, d.FirstWinners, d.TotalSales,
		)
		if err != nil {
			return stored, err
		}
		stored++
	}
	return stored, tx.Commit()
}

// GetDraw returns domain.ErrDrawNotFound when round is not stored.
func GetDraw(db *sql.DB, round int) (domain.Draw, error) {
	d, err := scanDraw(db.QueryRow(`SELECT `+drawColumns+` FROM draws WHERE round = ?`, round))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Draw{}, fmt.Errorf("%w: round %d", domain.ErrDrawNotFound, round)
	}
	return d, err
}

// LatestRound returns 0 for an empty table.
func LatestRound(db *sql.DB) (int, error) {
	var round sql.NullInt64
	if err := db.QueryRow(`SELECT MAX(round) FROM draws`).Scan(&round); err != nil {
		return 0, err
	}
	return int(round.Int64), nil
}

func CountDraws(db *sql.DB) (int, error) {
	var count int
	err := db.QueryRow(`SELECT COUNT(*) FROM draws`).Scan(&count)
	return count, err
}

// ListRecentDraws returns up to limit draws, newest round first.
func ListRecentDraws(db *sql.DB, limit int) ([]domain.Draw, error) {
	rows, err := db.Query(`SELECT `+drawColumns+` FROM draws ORDER BY round DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var draws []domain.Draw
	for rows.Next() {
		d, err := scanDraw(rows)
		if err != nil {
			return nil, err
		}
		draws = append(draws, d)
	}
	return draws, rows.Err()
}

func InsertSavedPick(db *sql.DB, pick domain.SavedPick) (int64, error) {
	if err := domain.IsValidCombination(pick.Numbers[:]); err != nil {
		return 0, err
	}
	if pick.CreatedAt.IsZero() {
		pick.CreatedAt = time.Now().UTC()
	}
	res, err := db.Exec(
		`INSERT INTO saved_picks (user_id, numbers, strategy, note, created_at) VALUES (?, ?, ?, ?, ?)`,
		pick.UserID, joinNumbers(pick.Numbers[:]), pick.Strategy, pick.Note, pick.CreatedAt,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// ListSavedPicks returns the user's picks, newest first.
func ListSavedPicks(db *sql.DB, userID string, limit int) ([]domain.SavedPick, error) {
	rows, err := db.Query(
		`SELECT id, user_id, numbers, strategy, note, created_at
		 FROM saved_picks WHERE user_id = ?
		 ORDER BY created_at DESC, id DESC LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var picks []domain.SavedPick
	for rows.Next() {
		var p domain.SavedPick
		var numbers string
		if err := rows.Scan(&p.ID, &p.UserID, &numbers, &p.Strategy, &p.Note, &p.CreatedAt); err != nil {
			return nil, err
		}
		parsed, err := splitNumbers(numbers)
		if err != nil {
			return nil, fmt.Errorf("saved pick %d: %w", p.ID, err)
		}
		if p.Numbers, err = domain.NewNumbers(parsed); err != nil {
			return nil, fmt.Errorf("saved pick %d: %w", p.ID, err)
		}
		picks = append(picks, p)
	}
	return picks, rows.Err()
}

// DeleteSavedPick removes a pick only if it belongs to userID.
func DeleteSavedPick(db *sql.DB, id int64, userID string) (bool, error) {
	res, err := db.Exec(`DELETE FROM saved_picks WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func InsertSimulationRun(db *sql.DB, rec domain.SimulationRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	_, err := db.Exec(
		`INSERT INTO simulation_runs
		   (id, user_id, target_round, required, min_required, max_trials, trials, outcome, last_numbers, elapsed_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.UserID, rec.TargetRound, joinNumbers(rec.Required), rec.MinRequired,
		rec.MaxTrials, rec.Trials, rec.Outcome, joinNumbers(rec.Last), rec.ElapsedMS, rec.CreatedAt,
	)
	return err
}

func ListSimulationRuns(db *sql.DB, userID string, limit int) ([]domain.SimulationRecord, error) {
	rows, err := db.Query(
		`SELECT id, user_id, target_round, required, min_required, max_trials, trials, outcome, last_numbers, elapsed_ms, created_at
		 FROM simulation_runs WHERE user_id = ?
		 ORDER BY created_at DESC LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []domain.SimulationRecord
	for rows.Next() {
		var r domain.SimulationRecord
		var required, last string
		err := rows.Scan(
			&r.ID, &r.UserID, &r.TargetRound, &required, &r.MinRequired,
			&r.MaxTrials, &r.Trials, &r.Outcome, &last, &r.ElapsedMS, &r.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		if r.Required, err = splitNumbers(required); err != nil {
			return nil, fmt.Errorf("simulation run %s: %w", r.ID, err)
		}
		if r.Last, err = splitNumbers(last); err != nil {
			return nil, fmt.Errorf("simulation run %s: %w", r.ID, err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func joinNumbers(nums []int) string {
	parts := make([]string, len(nums))
	for i, n := range nums {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ",")
}

func splitNumbers(s string) ([]int, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("bad number list %q: %w", s, err)
		}
		out = append(out, n)
	}
	return out, nil
}
