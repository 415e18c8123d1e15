package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/farmville-istec/farmville/internal/models"
)

// NewPool connects a pgx pool and verifies it with a ping.
func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	return pool, nil
}

// InitSchema creates the users and terrains tables if missing.
func InitSchema(ctx context.Context, pool *pgxpool.Pool) error {
	ddl := `
		CREATE TABLE IF NOT EXISTS users (
			id BIGSERIAL PRIMARY KEY,
			username TEXT NOT NULL UNIQUE,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE TABLE IF NOT EXISTS terrains (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			name TEXT NOT NULL,
			latitude DOUBLE PRECISION NOT NULL,
			longitude DOUBLE PRECISION NOT NULL,
			crop_type TEXT,
			area_hectares DOUBLE PRECISION,
			notes TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`
	if _, err := pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("postgres: init schema: %w", err)
	}
	return nil
}

// PostgresUserStore implements UserStore on a pgx pool.
type PostgresUserStore struct {
	pool *pgxpool.Pool
}

// NewPostgresUserStore creates a PostgresUserStore.
func NewPostgresUserStore(pool *pgxpool.Pool) *PostgresUserStore {
	return &PostgresUserStore{pool: pool}
}

// Create inserts the user and returns it with ID and CreatedAt set.
func (s *PostgresUserStore) Create(ctx context.Context, user models.User) (models.User, error) {
	query := `
		INSERT INTO users (username, email, password_hash)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`
	err := s.pool.QueryRow(ctx, query, user.Username, user.Email, user.PasswordHash).
		Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return models.User{}, fmt.Errorf("user %s: %w", user.Username, ErrDuplicate)
		}
		return models.User{}, fmt.Errorf("postgres: create user: %w", err)
	}
	return user, nil
}

// ByUsername fetches a user by username.
func (s *PostgresUserStore) ByUsername(ctx context.Context, username string) (models.User, error) {
	query := `
		SELECT id, username, email, password_hash, created_at
		FROM users WHERE username = $1`
	var user models.User
	err := s.pool.QueryRow(ctx, query, username).
		Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, fmt.Errorf("postgres: user by username: %w", err)
	}
	return user, nil
}

// ByID fetches a user by primary key.
func (s *PostgresUserStore) ByID(ctx context.Context, id int64) (models.User, error) {
	query := `
		SELECT id, username, email, password_hash, created_at
		FROM users WHERE id = $1`
	var user models.User
	err := s.pool.QueryRow(ctx, query, id).
		Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, fmt.Errorf("postgres: user by id: %w", err)
	}
	return user, nil
}

// PostgresTerrainStore implements TerrainStore on a pgx pool.
type PostgresTerrainStore struct {
	pool *pgxpool.Pool
}

// NewPostgresTerrainStore creates a PostgresTerrainStore.
func NewPostgresTerrainStore(pool *pgxpool.Pool) *PostgresTerrainStore {
	return &PostgresTerrainStore{pool: pool}
}

// Create inserts the terrain and returns it with ID and timestamps set.
func (s *PostgresTerrainStore) Create(ctx context.Context, terrain models.Terrain) (models.Terrain, error) {
	query := `
		INSERT INTO terrains (user_id, name, latitude, longitude, crop_type, area_hectares, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`
	err := s.pool.QueryRow(ctx, query,
		terrain.UserID, terrain.Name, terrain.Latitude, terrain.Longitude,
		terrain.CropType, terrain.AreaHectares, terrain.Notes,
	).Scan(&terrain.ID, &terrain.CreatedAt, &terrain.UpdatedAt)
	if err != nil {
		return models.Terrain{}, fmt.Errorf("postgres: create terrain: %w", err)
	}
	return terrain, nil
}

const terrainColumns = `id, user_id, name, latitude, longitude,
	COALESCE(crop_type, ''), COALESCE(area_hectares, 0), COALESCE(notes, ''),
	created_at, updated_at`

func scanTerrain(row pgx.Row) (models.Terrain, error) {
	var t models.Terrain
	err := row.Scan(&t.ID, &t.UserID, &t.Name, &t.Latitude, &t.Longitude,
		&t.CropType, &t.AreaHectares, &t.Notes, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

// ByID fetches a terrain by primary key.
func (s *PostgresTerrainStore) ByID(ctx context.Context, id int64) (models.Terrain, error) {
	t, err := scanTerrain(s.pool.QueryRow(ctx,
		`SELECT `+terrainColumns+` FROM terrains WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Terrain{}, ErrNotFound
		}
		return models.Terrain{}, fmt.Errorf("postgres: terrain by id: %w", err)
	}
	return t, nil
}

// ByUser fetches all terrains belonging to a user, newest first.
func (s *PostgresTerrainStore) ByUser(ctx context.Context, userID int64) ([]models.Terrain, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+terrainColumns+` FROM terrains WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("postgres: terrains by user: %w", err)
	}
	defer rows.Close()

	var terrains []models.Terrain
	for rows.Next() {
		t, err := scanTerrain(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan terrain: %w", err)
		}
		terrains = append(terrains, t)
	}
	return terrains, rows.Err()
}

// Update rewrites the terrain's mutable fields.
func (s *PostgresTerrainStore) Update(ctx context.Context, terrain models.Terrain) error {
	query := `
		UPDATE terrains
		SET name = $1, latitude = $2, longitude = $3, crop_type = $4,
			area_hectares = $5, notes = $6, updated_at = now()
		WHERE id = $7`
	tag, err := s.pool.Exec(ctx, query,
		terrain.Name, terrain.Latitude, terrain.Longitude, terrain.CropType,
		terrain.AreaHectares, terrain.Notes, terrain.ID)
	if err != nil {
		return fmt.Errorf("postgres: update terrain: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the terrain.
func (s *PostgresTerrainStore) Delete(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM terrains WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("postgres: delete terrain: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
