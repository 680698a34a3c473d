package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/cbodonnell/hexconquest/pkg/game/types"
	"github.com/cbodonnell/hexconquest/pkg/log"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository connects to the database and applies the embedded
// migrations. The caller is responsible for calling Close() on the repository.
func NewPostgresRepository(ctx context.Context, connStr string) (Repository, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %v", err)
	}

	var username string
	var database string
	if err := pool.QueryRow(ctx, "SELECT current_user, current_database()").Scan(&username, &database); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to query database: %v", err)
	}
	log.Info("Connected to %s as %s", database, username)

	err = applyMigrations(postgresMigrations, "migrations/postgres", func(name, migration string) error {
		_, err := pool.Exec(ctx, migration)
		return err
	})
	if err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresRepository{
		pool: pool,
	}, nil
}

func (r *PostgresRepository) Close(ctx context.Context) error {
	r.pool.Close()
	return nil
}

func (r *PostgresRepository) FindGameByID(ctx context.Context, gameID string) (*types.Game, error) {
	q := `
	SELECT document, auto_play_controller_id, last_activity, version FROM games WHERE id = $1;
	`
	var document []byte
	game := &types.Game{}
	var controllerID string
	row := r.pool.QueryRow(ctx, q, gameID)
	if err := row.Scan(&document, &controllerID, &game.LastActivity, &game.Version); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &ErrNotFound{}
		}
		return nil, fmt.Errorf("failed to scan game: %v", err)
	}

	decoded, err := decodeGame(document)
	if err != nil {
		return nil, err
	}
	decoded.ID = gameID
	decoded.AutoPlayControllerID = controllerID
	decoded.LastActivity = game.LastActivity
	decoded.Version = game.Version
	return decoded, nil
}

func (r *PostgresRepository) SaveGame(ctx context.Context, game *types.Game) error {
	document, err := encodeGame(game)
	if err != nil {
		return err
	}

	q := `
	INSERT INTO games (id, document, auto_play_controller_id, game_phase, last_activity, version)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (id) DO UPDATE SET document = $2, auto_play_controller_id = $3, game_phase = $4, last_activity = $5, version = $6;
	`
	if _, err := r.pool.Exec(ctx, q, game.ID, document, game.AutoPlayControllerID, string(game.GamePhase), game.LastActivity, game.Version); err != nil {
		return fmt.Errorf("failed to insert game: %v", err)
	}
	return nil
}

func (r *PostgresRepository) UpdateGameState(ctx context.Context, game *types.Game) error {
	document, err := encodeGame(game)
	if err != nil {
		return err
	}

	q := `
	UPDATE games SET document = $1, game_phase = $2, last_activity = $3, version = version + 1
	WHERE id = $4 AND version = $5;
	`
	tag, err := r.pool.Exec(ctx, q, document, string(game.GamePhase), game.LastActivity, game.ID, game.Version)
	if err != nil {
		return fmt.Errorf("failed to update game: %v", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM games WHERE id = $1);`, game.ID).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check game: %v", err)
		}
		if !exists {
			return &ErrNotFound{}
		}
		return &ErrVersionConflict{GameID: game.ID, Version: game.Version}
	}

	game.Version++
	return nil
}

func (r *PostgresRepository) SwapAutoPlayController(ctx context.Context, gameID, from, to string) (bool, error) {
	q := `
	UPDATE games SET auto_play_controller_id = $1 WHERE id = $2 AND auto_play_controller_id = $3;
	`
	tag, err := r.pool.Exec(ctx, q, to, gameID, from)
	if err != nil {
		return false, fmt.Errorf("failed to update auto play controller: %v", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM games WHERE id = $1);`, gameID).Scan(&exists); err != nil {
			return false, fmt.Errorf("failed to check game: %v", err)
		}
		if !exists {
			return false, &ErrNotFound{}
		}
		return false, nil
	}
	return true, nil
}

func (r *PostgresRepository) ResetAutoPlayControllers(ctx context.Context) (int, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE games SET auto_play_controller_id = '' WHERE auto_play_controller_id <> '';`)
	if err != nil {
		return 0, fmt.Errorf("failed to reset auto play controllers: %v", err)
	}
	return int(tag.RowsAffected()), nil
}

func (r *PostgresRepository) FindUserByID(ctx context.Context, userID string) (*types.User, error) {
	user := &types.User{ID: userID}
	if err := r.pool.QueryRow(ctx, `SELECT username FROM users WHERE id = $1;`, userID).Scan(&user.Username); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &ErrNotFound{}
		}
		return nil, fmt.Errorf("failed to scan user: %v", err)
	}
	return user, nil
}

func (r *PostgresRepository) SaveUser(ctx context.Context, user *types.User) error {
	q := `
	INSERT INTO users (id, username) VALUES ($1, $2)
	ON CONFLICT (id) DO UPDATE SET username = $2;
	`
	if _, err := r.pool.Exec(ctx, q, user.ID, user.Username); err != nil {
		return fmt.Errorf("failed to insert user: %v", err)
	}
	return nil
}
