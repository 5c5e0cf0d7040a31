package notice

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"libraryadmin/internal/apperrors"
)

// Notice is a message shown on the public board.
type Notice struct {
	ID        string    `json:"_id"`
	Text      string    `json:"text"`
	IsNew     bool      `json:"isNew"`
	CreatedAt time.Time `json:"createdAt"`
}

type Repository interface {
	Add(ctx context.Context, n *Notice) error
	List(ctx context.Context) ([]Notice, error)
	Delete(ctx context.Context, id string) error
}

// Service manages the notice board.
type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: func() time.Time { return time.Now().UTC() }}
}

// Add posts a notice; it is flagged new.
func (s *Service) Add(ctx context.Context, text string) (*Notice, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperrors.Validation("notice text is required")
	}
	n := &Notice{ID: uuid.NewString(), Text: text, IsNew: true, CreatedAt: s.now()}
	if err := s.repo.Add(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

// List returns notices newest first.
func (s *Service) List(ctx context.Context) ([]Notice, error) {
	return s.repo.List(ctx)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

// PostgresRepository stores notices in the notices table.
type PostgresRepository struct {
	db *sql.DB
	sb squirrel.StatementBuilderType
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db, sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)}
}

func (r *PostgresRepository) Add(ctx context.Context, n *Notice) error {
	query, args, err := r.sb.Insert("notices").
		Columns("id", "text", "is_new", "created_at").
		Values(n.ID, n.Text, n.IsNew, n.CreatedAt).
		ToSql()
	if err != nil {
		return apperrors.Storage("build insert notice query", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return apperrors.Storage("failed to add notice", err)
	}
	return nil
}

func (r *PostgresRepository) List(ctx context.Context) ([]Notice, error) {
	query, args, err := r.sb.Select("id", "text", "is_new", "created_at").
		From("notices").
		OrderBy("created_at DESC").
		ToSql()
	if err != nil {
		return nil, apperrors.Storage("build list notices query", err)
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Storage("failed to fetch notices", err)
	}
	defer rows.Close()

	out := []Notice{}
	for rows.Next() {
		var n Notice
		if err := rows.Scan(&n.ID, &n.Text, &n.IsNew, &n.CreatedAt); err != nil {
			return nil, apperrors.Storage("scan notice", err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Storage("iterate notices", err)
	}
	return out, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	query, args, err := r.sb.Delete("notices").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return apperrors.Storage("build delete notice query", err)
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.Storage("failed to delete notice", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperrors.NotFound("notice not found")
	}
	return nil
}

// MemoryRepository is an in-process store for dev and tests.
type MemoryRepository struct {
	mu    sync.RWMutex
	items map[string]Notice
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{items: map[string]Notice{}}
}

func (r *MemoryRepository) Add(_ context.Context, n *Notice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[n.ID] = *n
	return nil
}

func (r *MemoryRepository) List(_ context.Context) ([]Notice, error) {
	r.mu.RLock()
	out := make([]Notice, 0, len(r.items))
	for _, n := range r.items {
		out = append(out, n)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return apperrors.NotFound("notice not found")
	}
	delete(r.items, id)
	return nil
}
