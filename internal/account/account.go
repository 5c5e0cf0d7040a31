package account

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"libraryadmin/internal/apperrors"
	"libraryadmin/internal/student"
)

// Expense is one outgoing payment.
type Expense struct {
	ID        string    `json:"_id"`
	Category  string    `json:"category"`
	Amount    float64   `json:"amount"`
	Date      time.Time `json:"date"`
	CreatedAt time.Time `json:"createdAt"`
}

// MonthSummary is the profit and loss of one calendar month.
type MonthSummary struct {
	Year    int     `json:"year"`
	Month   int     `json:"month"`
	Income  float64 `json:"income"`
	Expense float64 `json:"expense"`
	Profit  float64 `json:"profit"`
}

// Repository persists expenses.
type Repository interface {
	Add(ctx context.Context, e *Expense) error
	// List returns expenses newest date first.
	List(ctx context.Context) ([]Expense, error)
}

// StudentLister supplies fee income.
type StudentLister interface {
	List(ctx context.Context) ([]student.Student, error)
}

// Service records expenses and computes monthly summaries.
type Service struct {
	repo     Repository
	students StudentLister
	now      func() time.Time
}

// NewService creates a service backed by a repository.
func NewService(repo Repository, students StudentLister) *Service {
	return &Service{repo: repo, students: students, now: func() time.Time { return time.Now().UTC() }}
}

// AddExpense validates and stores an expense. date is YYYY-MM-DD or RFC3339.
func (s *Service) AddExpense(ctx context.Context, category string, amount float64, date string) (*Expense, error) {
	category = strings.TrimSpace(category)
	if category == "" || amount == 0 || strings.TrimSpace(date) == "" {
		return nil, apperrors.Validation("all fields are required")
	}
	d, err := parseDate(date)
	if err != nil {
		return nil, err
	}
	e := &Expense{
		ID:        uuid.NewString(),
		Category:  category,
		Amount:    amount,
		Date:      d,
		CreatedAt: s.now(),
	}
	if err := s.repo.Add(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

func (s *Service) List(ctx context.Context) ([]Expense, error) {
	return s.repo.List(ctx)
}

type monthKey struct{ year, month int }

// MonthlySummary merges paid fee income (by paidOn) with expenses (by date), latest month first.
func (s *Service) MonthlySummary(ctx context.Context) ([]MonthSummary, error) {
	students, err := s.students.List(ctx)
	if err != nil {
		return nil, err
	}
	expenses, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	byMonth := map[monthKey]*MonthSummary{}
	get := func(t time.Time) *MonthSummary {
		k := monthKey{t.Year(), int(t.Month())}
		if byMonth[k] == nil {
			byMonth[k] = &MonthSummary{Year: k.year, Month: k.month}
		}
		return byMonth[k]
	}

	for _, st := range students {
		for _, f := range st.Fees {
			if f.Status != student.FeePaid || f.PaidOn == nil {
				continue
			}
			get(*f.PaidOn).Income += f.Amount
		}
	}
	for _, e := range expenses {
		get(e.Date).Expense += e.Amount
	}

	out := make([]MonthSummary, 0, len(byMonth))
	for _, m := range byMonth {
		m.Profit = m.Income - m.Expense
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year > out[j].Year
		}
		return out[i].Month > out[j].Month
	})
	return out, nil
}

func parseDate(s string) (time.Time, error) {
	d, err := student.ParseDate(s)
	if err != nil {
		return time.Time{}, apperrors.Validation("date must be YYYY-MM-DD")
	}
	t, _ := time.Parse("2006-01-02", string(d))
	return t, nil
}
