package game

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/park285/riddlechess/internal/domain"
)

var ErrDuplicateGame = errors.New("game already recorded")

// Repository persists finished games.
type Repository interface {
	InsertGame(ctx context.Context, game *domain.GameRecord) (int64, error)
	GetRecentGames(ctx context.Context, limit int) ([]*domain.GameRecord, error)
	GetGame(ctx context.Context, gameID string) (*domain.GameRecord, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

const schema = `
CREATE TABLE IF NOT EXISTS riddle_games (
	id            BIGSERIAL PRIMARY KEY,
	game_uuid     TEXT NOT NULL UNIQUE,
	difficulty    TEXT NOT NULL,
	result        TEXT NOT NULL,
	result_method TEXT NOT NULL,
	moves_uci     JSONB NOT NULL,
	moves_san     JSONB NOT NULL,
	pgn           TEXT NOT NULL,
	final_fen     TEXT NOT NULL,
	opening_code  TEXT NOT NULL DEFAULT '',
	opening_name  TEXT NOT NULL DEFAULT '',
	engine_name   TEXT NOT NULL DEFAULT '',
	hints_shown   INTEGER NOT NULL DEFAULT 0,
	started_at    TIMESTAMPTZ NOT NULL,
	ended_at      TIMESTAMPTZ NOT NULL,
	duration_ms   BIGINT NOT NULL
)`

// EnsureSchema creates the games table when missing.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create riddle_games: %w", err)
	}
	return nil
}

func (r *repository) InsertGame(ctx context.Context, game *domain.GameRecord) (int64, error) {
	if game == nil {
		return 0, fmt.Errorf("nil game payload")
	}

	movesUCI, err := json.Marshal(game.MovesUCI)
	if err != nil {
		return 0, fmt.Errorf("marshal moves_uci: %w", err)
	}
	movesSAN, err := json.Marshal(game.MovesSAN)
	if err != nil {
		return 0, fmt.Errorf("marshal moves_san: %w", err)
	}

	const query = `
		INSERT INTO riddle_games (
			game_uuid,
			difficulty,
			result,
			result_method,
			moves_uci,
			moves_san,
			pgn,
			final_fen,
			opening_code,
			opening_name,
			engine_name,
			hints_shown,
			started_at,
			ended_at,
			duration_ms
		)
		VALUES ($1, $2, $3, $4, $5::jsonb, $6::jsonb, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (game_uuid) DO NOTHING
		RETURNING id`

	var id sql.NullInt64
	err = r.db.QueryRowContext(
		ctx,
		query,
		game.GameID,
		game.Difficulty,
		game.Result,
		game.ResultMethod,
		movesUCI,
		movesSAN,
		game.PGN,
		game.FinalFEN,
		game.OpeningCode,
		game.OpeningName,
		game.EngineName,
		game.HintsShown,
		game.StartedAt,
		game.EndedAt,
		game.Duration.Milliseconds(),
	).Scan(&id)
	return insertResult(id, err)
}

const uniqueViolation = pq.ErrorCode("23505")

// insertResult maps the outcome of the RETURNING scan. ON CONFLICT DO NOTHING
// returns no row for a known game; a unique violation means a concurrent
// insert won.
func insertResult(id sql.NullInt64, err error) (int64, error) {
	var pqErr *pq.Error
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return 0, ErrDuplicateGame
	case errors.As(err, &pqErr) && pqErr.Code == uniqueViolation:
		return 0, ErrDuplicateGame
	case err != nil:
		return 0, fmt.Errorf("insert game: %w", err)
	case !id.Valid:
		return 0, ErrDuplicateGame
	}
	return id.Int64, nil
}

const selectColumns = `
	id,
	game_uuid,
	difficulty,
	result,
	result_method,
	moves_uci,
	moves_san,
	pgn,
	final_fen,
	opening_code,
	opening_name,
	engine_name,
	hints_shown,
	started_at,
	ended_at,
	duration_ms`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGame(row rowScanner) (*domain.GameRecord, error) {
	var (
		game         domain.GameRecord
		movesUCIJSON []byte
		movesSANJSON []byte
		durationMS   sql.NullInt64
	)
	if err := row.Scan(
		&game.ID,
		&game.GameID,
		&game.Difficulty,
		&game.Result,
		&game.ResultMethod,
		&movesUCIJSON,
		&movesSANJSON,
		&game.PGN,
		&game.FinalFEN,
		&game.OpeningCode,
		&game.OpeningName,
		&game.EngineName,
		&game.HintsShown,
		&game.StartedAt,
		&game.EndedAt,
		&durationMS,
	); err != nil {
		return nil, err
	}
	if len(movesUCIJSON) > 0 {
		if err := json.Unmarshal(movesUCIJSON, &game.MovesUCI); err != nil {
			return nil, fmt.Errorf("decode moves_uci: %w", err)
		}
	}
	if len(movesSANJSON) > 0 {
		if err := json.Unmarshal(movesSANJSON, &game.MovesSAN); err != nil {
			return nil, fmt.Errorf("decode moves_san: %w", err)
		}
	}
	if durationMS.Valid {
		game.Duration = msToDuration(durationMS.Int64)
	}
	return &game, nil
}

func (r *repository) GetRecentGames(ctx context.Context, limit int) ([]*domain.GameRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	query := `SELECT` + selectColumns + `
		FROM riddle_games
		ORDER BY ended_at DESC
		LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("select games: %w", err)
	}
	defer rows.Close()

	games := make([]*domain.GameRecord, 0, limit)
	for rows.Next() {
		game, err := scanGame(rows)
		if err != nil {
			return nil, fmt.Errorf("scan game: %w", err)
		}
		games = append(games, game)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate games: %w", err)
	}
	return games, nil
}

func (r *repository) GetGame(ctx context.Context, gameID string) (*domain.GameRecord, error) {
	query := `SELECT` + selectColumns + `
		FROM riddle_games
		WHERE game_uuid = $1`

	game, err := scanGame(r.db.QueryRowContext(ctx, query, gameID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select game: %w", err)
	}
	return game, nil
}
