package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/cbodonnell/hexconquest/pkg/game/types"
	_ "github.com/mattn/go-sqlite3"
)

type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository opens the database file at path and applies the
// embedded migrations.
func NewSQLiteRepository(ctx context.Context, path string) (Repository, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %v", err)
	}
	// sqlite allows a single writer
	db.SetMaxOpenConns(1)

	err = applyMigrations(sqliteMigrations, "migrations/sqlite", func(name, migration string) error {
		_, err := db.ExecContext(ctx, migration)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteRepository{
		db: db,
	}, nil
}

func (r *SQLiteRepository) Close(ctx context.Context) error {
	return r.db.Close()
}

func (r *SQLiteRepository) FindGameByID(ctx context.Context, gameID string) (*types.Game, error) {
	q := `
	SELECT document, auto_play_controller_id, version FROM games WHERE id = ?;
	`
	var document []byte
	var controllerID string
	var version int64
	if err := r.db.QueryRowContext(ctx, q, gameID).Scan(&document, &controllerID, &version); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &ErrNotFound{}
		}
		return nil, fmt.Errorf("failed to scan game: %v", err)
	}

	game, err := decodeGame(document)
	if err != nil {
		return nil, err
	}
	game.ID = gameID
	game.AutoPlayControllerID = controllerID
	game.Version = version
	return game, nil
}

func (r *SQLiteRepository) SaveGame(ctx context.Context, game *types.Game) error {
	document, err := encodeGame(game)
	if err != nil {
		return err
	}

	q := `
	INSERT OR REPLACE INTO games (id, document, auto_play_controller_id, game_phase, last_activity, version)
	VALUES (?, ?, ?, ?, ?, ?);
	`
	_, err = r.db.ExecContext(ctx, q, game.ID, document, game.AutoPlayControllerID, string(game.GamePhase), game.LastActivity.UnixMilli(), game.Version)
	if err != nil {
		return fmt.Errorf("failed to insert game: %v", err)
	}

	return nil
}

func (r *SQLiteRepository) UpdateGameState(ctx context.Context, game *types.Game) error {
	document, err := encodeGame(game)
	if err != nil {
		return err
	}

	q := `
	UPDATE games SET document = ?, game_phase = ?, last_activity = ?, version = version + 1
	WHERE id = ? AND version = ?;
	`
	res, err := r.db.ExecContext(ctx, q, document, string(game.GamePhase), game.LastActivity.UnixMilli(), game.ID, game.Version)
	if err != nil {
		return fmt.Errorf("failed to update game: %v", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %v", err)
	}
	if n == 0 {
		return r.missOrConflict(ctx, game)
	}

	game.Version++
	return nil
}

func (r *SQLiteRepository) missOrConflict(ctx context.Context, game *types.Game) error {
	var exists int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM games WHERE id = ?;`, game.ID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return &ErrNotFound{}
	}
	if err != nil {
		return fmt.Errorf("failed to check game: %v", err)
	}
	return &ErrVersionConflict{GameID: game.ID, Version: game.Version}
}

func (r *SQLiteRepository) SwapAutoPlayController(ctx context.Context, gameID, from, to string) (bool, error) {
	q := `
	UPDATE games SET auto_play_controller_id = ? WHERE id = ? AND auto_play_controller_id = ?;
	`
	res, err := r.db.ExecContext(ctx, q, to, gameID, from)
	if err != nil {
		return false, fmt.Errorf("failed to update auto play controller: %v", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %v", err)
	}
	if n == 0 {
		if _, err := r.FindGameByID(ctx, gameID); err != nil {
			return false, err
		}
		return false, nil
	}
	return true, nil
}

func (r *SQLiteRepository) ResetAutoPlayControllers(ctx context.Context) (int, error) {
	q := `
	UPDATE games SET auto_play_controller_id = '' WHERE auto_play_controller_id <> '';
	`
	res, err := r.db.ExecContext(ctx, q)
	if err != nil {
		return 0, fmt.Errorf("failed to reset auto play controllers: %v", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %v", err)
	}
	return int(n), nil
}

func (r *SQLiteRepository) FindUserByID(ctx context.Context, userID string) (*types.User, error) {
	q := `
	SELECT username FROM users WHERE id = ?;
	`
	user := &types.User{ID: userID}
	if err := r.db.QueryRowContext(ctx, q, userID).Scan(&user.Username); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &ErrNotFound{}
		}
		return nil, fmt.Errorf("failed to scan user: %v", err)
	}
	return user, nil
}

func (r *SQLiteRepository) SaveUser(ctx context.Context, user *types.User) error {
	q := `
	INSERT OR REPLACE INTO users (id, username) VALUES (?, ?);
	`
	if _, err := r.db.ExecContext(ctx, q, user.ID, user.Username); err != nil {
		return fmt.Errorf("failed to insert user: %v", err)
	}
	return nil
}
