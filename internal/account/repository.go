package account

import (
	"context"
	"database/sql"
	"sort"
	"sync"

	"github.com/Masterminds/squirrel"

	"libraryadmin/internal/apperrors"
	"libraryadmin/internal/logger"
)

// PostgresRepository persists expenses in the expenses table.
type PostgresRepository struct {
	db *sql.DB
	sb squirrel.StatementBuilderType
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db, sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)}
}

func (r *PostgresRepository) Add(ctx context.Context, e *Expense) error {
	query, args, err := r.sb.Insert("expenses").
		Columns("id", "category", "amount", "spent_on", "created_at").
		Values(e.ID, e.Category, e.Amount, e.Date, e.CreatedAt).
		ToSql()
	if err != nil {
		return apperrors.Storage("build insert expense query", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		logger.Error().Err(err).Msg("insert expense")
		return apperrors.Storage("failed to add expense", err)
	}
	return nil
}

func (r *PostgresRepository) List(ctx context.Context) ([]Expense, error) {
	query, args, err := r.sb.Select("id", "category", "amount", "spent_on", "created_at").
		From("expenses").
		OrderBy("spent_on DESC", "created_at DESC").
		ToSql()
	if err != nil {
		return nil, apperrors.Storage("build list expenses query", err)
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Storage("failed to list expenses", err)
	}
	defer rows.Close()

	out := []Expense{}
	for rows.Next() {
		var e Expense
		if err := rows.Scan(&e.ID, &e.Category, &e.Amount, &e.Date, &e.CreatedAt); err != nil {
			return nil, apperrors.Storage("scan expense", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Storage("iterate expenses", err)
	}
	return out, nil
}

// MemoryRepository is an in-process store for dev and tests.
type MemoryRepository struct {
	mu   sync.RWMutex
	rows []Expense
}

func NewMemoryRepository() *MemoryRepository { return &MemoryRepository{} }

func (r *MemoryRepository) Add(_ context.Context, e *Expense) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows = append(r.rows, *e)
	return nil
}

func (r *MemoryRepository) List(_ context.Context) ([]Expense, error) {
	r.mu.RLock()
	out := append([]Expense{}, r.rows...)
	r.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}
