package student

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgconn"

	"libraryadmin/internal/apperrors"
	"libraryadmin/internal/logger"
)

// PostgresRepository stores each student as a JSONB document next to an optimistic version column.
type PostgresRepository struct {
	db *sql.DB
	sb squirrel.StatementBuilderType
}

// NewPostgresRepository creates a repo.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{
		db: db,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (r *PostgresRepository) Create(ctx context.Context, s *Student) error {
	s.Version = 1
	doc, err := json.Marshal(s)
	if err != nil {
		return apperrors.Storage("encode student", err)
	}
	query, args, err := r.sb.Insert("students").
		Columns("id", "mobile", "doc", "version", "created_at", "updated_at").
		Values(s.ID, s.Mobile, string(doc), s.Version, s.CreatedAt, s.UpdatedAt).
		ToSql()
	if err != nil {
		return apperrors.Storage("build insert student query", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return apperrors.Conflict("a student with mobile %s already exists", s.Mobile)
		}
		logger.Error().Err(err).Str("studentID", s.ID).Msg("insert student")
		return apperrors.Storage("failed to create student", err)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*Student, error) {
	return r.one(ctx, squirrel.Eq{"id": id})
}

func (r *PostgresRepository) FindByMobile(ctx context.Context, mobile string) (*Student, error) {
	return r.one(ctx, squirrel.Eq{"mobile": mobile})
}

func (r *PostgresRepository) one(ctx context.Context, where squirrel.Eq) (*Student, error) {
	query, args, err := r.sb.Select("doc", "version").
		From("students").
		Where(where).
		OrderBy("created_at ASC").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, apperrors.Storage("build select student query", err)
	}
	var (
		doc     []byte
		version int
	)
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&doc, &version); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("student not found")
		}
		return nil, apperrors.Storage("failed to load student", err)
	}
	s, err := decode(doc)
	if err != nil {
		return nil, err
	}
	s.Version = version
	return s, nil
}

func (r *PostgresRepository) List(ctx context.Context) ([]Student, error) {
	query, args, err := r.sb.Select("doc", "version").
		From("students").
		OrderBy("created_at ASC").
		ToSql()
	if err != nil {
		return nil, apperrors.Storage("build list students query", err)
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Storage("failed to list students", err)
	}
	defer rows.Close()

	out := []Student{}
	for rows.Next() {
		var (
			doc     []byte
			version int
		)
		if err := rows.Scan(&doc, &version); err != nil {
			return nil, apperrors.Storage("scan student", err)
		}
		s, err := decode(doc)
		if err != nil {
			return nil, err
		}
		s.Version = version
		out = append(out, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Storage("iterate students", err)
	}
	return out, nil
}

// Save writes the document only if the stored version still equals s.Version.
func (r *PostgresRepository) Save(ctx context.Context, s *Student) error {
	next := *s
	next.Version++
	doc, err := json.Marshal(&next)
	if err != nil {
		return apperrors.Storage("encode student", err)
	}
	query, args, err := r.sb.Update("students").
		Set("doc", string(doc)).
		Set("mobile", s.Mobile).
		Set("version", next.Version).
		Set("updated_at", s.UpdatedAt).
		Where(squirrel.Eq{"id": s.ID, "version": s.Version}).
		ToSql()
	if err != nil {
		return apperrors.Storage("build update student query", err)
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.Conflict("a student with mobile %s already exists", s.Mobile)
		}
		logger.Error().Err(err).Str("studentID", s.ID).Msg("update student")
		return apperrors.Storage("failed to save student", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return apperrors.Storage("failed to save student", err)
	}
	if n == 0 {
		var exists bool
		if err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM students WHERE id = $1)`, s.ID).Scan(&exists); err != nil {
			return apperrors.Storage("failed to save student", err)
		}
		if !exists {
			return apperrors.NotFound("student not found")
		}
		return apperrors.Conflict("student was modified concurrently, reload and retry")
	}
	s.Version = next.Version
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	query, args, err := r.sb.Delete("students").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return apperrors.Storage("build delete student query", err)
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.Storage("failed to delete student", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperrors.NotFound("student not found")
	}
	return nil
}
