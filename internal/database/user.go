package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jason-s-yu/baduk/internal/models"
)

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrUsernameTaken = errors.New("username already in use")
	ErrNicknameTaken = errors.New("nickname already in use")
)

const uniqueViolation = "23505"

const userColumns = `id, username, password_hash, nickname, rank_tier, rank_level, points, last_login_at, created_at`

// Users is the users table.
type Users struct {
	db *pgxpool.Pool
}

func NewUsers(db *pgxpool.Pool) *Users {
	return &Users{db: db}
}

// Create inserts user, assigning an id and the default rank when unset. user.Password must already be
// hashed.
func (u *Users) Create(ctx context.Context, user *models.User) error {
	if user.ID == uuid.Nil {
		id, err := uuid.NewRandom()
		if err != nil {
			return fmt.Errorf("failed to generate user id: %w", err)
		}
		user.ID = id
	}
	if user.RankTier == "" {
		user.RankTier = models.DefaultRankTier
	}
	if user.RankLevel == 0 {
		user.RankLevel = models.DefaultRankLevel
	}

	q := `INSERT INTO users (id, username, password_hash, nickname, rank_tier, rank_level, points)
	      VALUES ($1, $2, $3, $4, $5, $6, $7)
	      RETURNING created_at`

	err := pgx.BeginTxFunc(ctx, u.db, pgx.TxOptions{}, func(tx pgx.Tx) error {
		return tx.QueryRow(ctx, q,
			user.ID, user.Username, user.Password, user.Nickname,
			user.RankTier, user.RankLevel, user.Points,
		).Scan(&user.CreatedAt)
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			switch pgErr.ConstraintName {
			case "users_username_key":
				return ErrUsernameTaken
			case "users_nickname_key":
				return ErrNicknameTaken
			}
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

func (u *Users) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return u.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1 AND is_deleted = FALSE`, id)
}

func (u *Users) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return u.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1 AND is_deleted = FALSE`, username)
}

func (u *Users) GetByNickname(ctx context.Context, nickname string) (*models.User, error) {
	return u.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE nickname = $1 AND is_deleted = FALSE`, nickname)
}

func (u *Users) getOne(ctx context.Context, q string, arg any) (*models.User, error) {
	var user models.User
	err := u.db.QueryRow(ctx, q, arg).Scan(
		&user.ID, &user.Username, &user.Password, &user.Nickname,
		&user.RankTier, &user.RankLevel, &user.Points,
		&user.LastLoginAt, &user.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return &user, nil
}

// TouchLastLogin stamps last_login_at with the database clock.
func (u *Users) TouchLastLogin(ctx context.Context, id uuid.UUID) error {
	q := `UPDATE users SET last_login_at = NOW() WHERE id = $1`
	return pgx.BeginTxFunc(ctx, u.db, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, q, id)
		return err
	})
}
