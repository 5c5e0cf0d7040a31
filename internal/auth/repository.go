package auth

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgconn"

	"libraryadmin/internal/apperrors"
)

// Admin is a back-office account.
type Admin struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	Mobile       string    `json:"mobile,omitempty"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

type Repository interface {
	Create(ctx context.Context, a *Admin) error
	ByEmail(ctx context.Context, email string) (*Admin, error)
	ByUsername(ctx context.Context, username string) (*Admin, error)
	UpdatePassword(ctx context.Context, email, hash string) error
	Count(ctx context.Context) (int, error)
}

// PostgresRepository stores admins in the admins table.
type PostgresRepository struct {
	db *sql.DB
	sb squirrel.StatementBuilderType
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db, sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)}
}

func (r *PostgresRepository) Create(ctx context.Context, a *Admin) error {
	query, args, err := r.sb.Insert("admins").
		Columns("id", "email", "username", "mobile", "password_hash", "created_at").
		Values(a.ID, a.Email, a.Username, a.Mobile, a.PasswordHash, a.CreatedAt).
		ToSql()
	if err != nil {
		return apperrors.Storage("build insert admin query", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return apperrors.Conflict("email or username already exists")
		}
		return apperrors.Storage("failed to create admin", err)
	}
	return nil
}

func (r *PostgresRepository) ByEmail(ctx context.Context, email string) (*Admin, error) {
	return r.one(ctx, squirrel.Eq{"email": email})
}

func (r *PostgresRepository) ByUsername(ctx context.Context, username string) (*Admin, error) {
	return r.one(ctx, squirrel.Eq{"username": username})
}

func (r *PostgresRepository) Count(ctx context.Context) (int, error) {
	query, args, err := r.sb.Select("COUNT(*)").From("admins").ToSql()
	if err != nil {
		return 0, apperrors.Storage("build count admins query", err)
	}
	var n int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, apperrors.Storage("failed to count admins", err)
	}
	return n, nil
}

func (r *PostgresRepository) one(ctx context.Context, where squirrel.Eq) (*Admin, error) {
	query, args, err := r.sb.Select("id", "email", "username", "mobile", "password_hash", "created_at").
		From("admins").
		Where(where).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, apperrors.Storage("build select admin query", err)
	}
	var a Admin
	err = r.db.QueryRowContext(ctx, query, args...).Scan(&a.ID, &a.Email, &a.Username, &a.Mobile, &a.PasswordHash, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("user not found")
	}
	if err != nil {
		return nil, apperrors.Storage("failed to load admin", err)
	}
	return &a, nil
}

func (r *PostgresRepository) UpdatePassword(ctx context.Context, email, hash string) error {
	query, args, err := r.sb.Update("admins").
		Set("password_hash", hash).
		Where(squirrel.Eq{"email": email}).
		ToSql()
	if err != nil {
		return apperrors.Storage("build update admin query", err)
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.Storage("failed to update password", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperrors.NotFound("user not found")
	}
	return nil
}

// MemoryRepository is an in-process store for dev and tests.
type MemoryRepository struct {
	mu     sync.RWMutex
	admins map[string]Admin // by email
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{admins: map[string]Admin{}}
}

func (r *MemoryRepository) Create(_ context.Context, a *Admin) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.admins {
		if existing.Email == a.Email || existing.Username == a.Username {
			return apperrors.Conflict("email or username already exists")
		}
	}
	r.admins[a.Email] = *a
	return nil
}

func (r *MemoryRepository) ByEmail(_ context.Context, email string) (*Admin, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.admins[email]
	if !ok {
		return nil, apperrors.NotFound("user not found")
	}
	return &a, nil
}

func (r *MemoryRepository) ByUsername(_ context.Context, username string) (*Admin, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.admins {
		if a.Username == username {
			return &a, nil
		}
	}
	return nil, apperrors.NotFound("user not found")
}

func (r *MemoryRepository) UpdatePassword(_ context.Context, email, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.admins[email]
	if !ok {
		return apperrors.NotFound("user not found")
	}
	a.PasswordHash = hash
	r.admins[email] = a
	return nil
}

func (r *MemoryRepository) Count(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.admins), nil
}
