package student

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"libraryadmin/internal/apperrors"
	"libraryadmin/internal/geo"
	"libraryadmin/internal/logger"
	"libraryadmin/internal/metrics"
)

// Service coordinates student workflows on top of a Repository. Every mutation is a
// load, mutate, conditional save cycle serialised per student id.
type Service struct {
	repo  Repository
	locks *keyedMutex
	fence *geo.Fence
	now   func() time.Time
	log   zerolog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithGeofence requires set-present requests to come from inside f.
func WithGeofence(f geo.Fence) Option {
	return func(s *Service) { s.fence = &f }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a service backed by a repository.
func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{
		repo:  repo,
		locks: newKeyedMutex(),
		now:   func() time.Time { return time.Now().UTC() },
		log:   logger.With("student"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create enrolls a new student. Mobile numbers are unique.
func (s *Service) Create(ctx context.Context, in NewStudent) (*Student, error) {
	name := strings.TrimSpace(in.Name)
	mobile := strings.TrimSpace(in.Mobile)
	if name == "" || mobile == "" {
		return nil, apperrors.Validation("name and mobile are required")
	}
	if err := s.ensureMobileFree(ctx, mobile, ""); err != nil {
		return nil, err
	}

	now := s.now()
	st := &Student{
		ID:                  uuid.NewString(),
		ShiftNo:             in.ShiftNo,
		SerialNo:            int(in.SerialNo),
		Name:                name,
		FatherName:          in.FatherName,
		MotherName:          in.MotherName,
		Address:             in.Address,
		Mobile:              mobile,
		AdmissionDate:       in.AdmissionDate,
		SeatNo:              int(in.SeatNo),
		Status:              StatusEnabled,
		EnabledDate:         Today(now),
		IsActive:            true,
		Attendance:          []AttendanceDay{},
		Fees:                []FeeRecord{},
		ModificationHistory: []ChangeEntry{},
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if st.ShiftNo == nil {
		st.ShiftNo = ShiftList{}
	}
	if err := s.repo.Create(ctx, st); err != nil {
		return nil, err
	}
	s.log.Info().Str("studentID", st.ID).Msg("student created")
	return st, nil
}

func (s *Service) List(ctx context.Context) ([]Student, error) {
	return s.repo.List(ctx)
}

func (s *Service) Get(ctx context.Context, id string) (*Student, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	unlock := s.locks.Lock(id)
	defer unlock()
	return s.repo.Delete(ctx, id)
}

// VerifyMobile returns the student owning mobile.
func (s *Service) VerifyMobile(ctx context.Context, mobile string) (*Student, error) {
	mobile = strings.TrimSpace(mobile)
	if mobile == "" {
		return nil, apperrors.Validation("mobile is required")
	}
	return s.repo.FindByMobile(ctx, mobile)
}

// Update applies a tracked-field patch and records every change in the modification history.
func (s *Service) Update(ctx context.Context, id string, p Patch) (*Student, []ChangeEntry, error) {
	if p.Mobile != nil {
		m := strings.TrimSpace(*p.Mobile)
		if m == "" {
			return nil, nil, apperrors.Validation("mobile must not be empty")
		}
		p.Mobile = &m
	}

	var changes []ChangeEntry
	st, err := s.mutate(ctx, id, func(st *Student) error {
		if p.Mobile != nil && *p.Mobile != st.Mobile {
			if err := s.ensureMobileFree(ctx, *p.Mobile, st.ID); err != nil {
				return err
			}
		}
		changes = ApplyPatch(st, p, s.now())
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	for _, c := range changes {
		metrics.AuditEntries.WithLabelValues(c.Field).Inc()
	}
	return st, changes, nil
}

// SetStatus enables or disables a student and stamps the matching date.
func (s *Service) SetStatus(ctx context.Context, id string, status Status) (*Student, error) {
	if status != StatusEnabled && status != StatusDisabled {
		return nil, apperrors.Validation("status must be enabled or disabled")
	}
	return s.mutate(ctx, id, func(st *Student) error {
		st.Status = status
		st.IsActive = status == StatusEnabled
		if status == StatusEnabled {
			st.EnabledDate = Today(s.now())
		} else {
			st.DisabledDate = Today(s.now())
		}
		return nil
	})
}

func (s *Service) MarkEntry(ctx context.Context, id, date, at string) (*Student, error) {
	return s.attendance(ctx, id, "entry", func(st *Student) error { return st.MarkEntry(date, at) })
}

func (s *Service) MarkExit(ctx context.Context, id, date, at string) (*Student, error) {
	return s.attendance(ctx, id, "exit", func(st *Student) error { return st.MarkExit(date, at) })
}

func (s *Service) DeleteEntry(ctx context.Context, id, date string, ref SessionRef) (*Student, error) {
	return s.attendance(ctx, id, "delete_entry", func(st *Student) error { return st.DeleteEntry(date, ref) })
}

func (s *Service) DeleteExit(ctx context.Context, id, date string, ref SessionRef) (*Student, error) {
	return s.attendance(ctx, id, "delete_exit", func(st *Student) error { return st.DeleteExit(date, ref) })
}

func (s *Service) DeleteBlankSession(ctx context.Context, id, date string, index int) (*Student, error) {
	return s.attendance(ctx, id, "delete_blank", func(st *Student) error { return st.DeleteBlankSession(date, index) })
}

// PresenceInput is a legacy whole-day attendance mark.
type PresenceInput struct {
	Date       string
	Present    bool
	Credential string
	Location   *geo.Point
}

// SetPresent checks the mobile credential and, when a geofence is configured, the caller's
// location before recording the day's present flag.
func (s *Service) SetPresent(ctx context.Context, id string, in PresenceInput) (*Student, error) {
	if in.Date == "" {
		return nil, apperrors.Validation("date is required")
	}
	if s.fence != nil {
		if in.Location == nil {
			return nil, apperrors.Forbidden("location is required to mark attendance")
		}
		if ok, dist := s.fence.Contains(*in.Location); !ok {
			s.log.Info().Str("studentID", id).Float64("distanceMeters", dist).Msg("attendance outside geofence")
			return nil, apperrors.Forbidden("you are %.0f meters away from the library", dist)
		}
	}
	return s.attendance(ctx, id, "present", func(st *Student) error {
		if in.Credential == "" || in.Credential != st.Mobile {
			return apperrors.Unauthorized("invalid password")
		}
		return st.SetPresent(in.Date, in.Present)
	})
}

func (s *Service) attendance(ctx context.Context, id, kind string, fn func(*Student) error) (*Student, error) {
	st, err := s.mutate(ctx, id, fn)
	if err != nil {
		return nil, err
	}
	metrics.AttendanceEvents.WithLabelValues(kind).Inc()
	return st, nil
}

// SessionSummaryByMobile is the session-based monthly tally for the student owning mobile.
func (s *Service) SessionSummaryByMobile(ctx context.Context, mobile, month string) (Summary, error) {
	m, err := ParseMonth(month)
	if err != nil {
		return Summary{}, err
	}
	if strings.TrimSpace(mobile) == "" {
		return Summary{}, apperrors.Validation("password is required")
	}
	st, err := s.repo.FindByMobile(ctx, strings.TrimSpace(mobile))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return Summary{}, apperrors.NotFound("student not found or invalid password")
		}
		return Summary{}, err
	}
	return SessionSummary(st, m), nil
}

// FlagSummaries is the flag-based monthly tally for every student.
func (s *Service) FlagSummaries(ctx context.Context, month string) ([]Summary, error) {
	m, err := ParseMonth(month)
	if err != nil {
		return nil, err
	}
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Summary, 0, len(all))
	for i := range all {
		out = append(out, FlagSummary(&all[i], m))
	}
	return out, nil
}

// UpsertFee creates or replaces a month's fee record.
func (s *Service) UpsertFee(ctx context.Context, id string, in FeeInput) (*Student, FeeRecord, error) {
	var rec FeeRecord
	st, err := s.mutate(ctx, id, func(st *Student) error {
		var err error
		rec, err = st.UpsertFee(in, s.now())
		return err
	})
	if err != nil {
		return nil, FeeRecord{}, err
	}
	return st, rec, nil
}

// MarkFeePaid records a paid fee for month dated now.
func (s *Service) MarkFeePaid(ctx context.Context, id, month string, amount float64) (*Student, FeeRecord, error) {
	return s.UpsertFee(ctx, id, FeeInput{Month: month, Status: string(FeePaid), Amount: amount})
}

// PaidFee returns the student owning mobile together with the paid fee of month.
func (s *Service) PaidFee(ctx context.Context, mobile, month string) (*Student, FeeRecord, error) {
	m, err := ParseMonth(month)
	if err != nil {
		return nil, FeeRecord{}, err
	}
	st, err := s.VerifyMobile(ctx, mobile)
	if err != nil {
		return nil, FeeRecord{}, err
	}
	fee, ok := st.Fee(m.String())
	if !ok || fee.Status != FeePaid {
		return nil, FeeRecord{}, apperrors.InvalidState("fee not paid for %s", m)
	}
	return st, fee, nil
}

// Modification is an audit entry joined with the owning student's identity.
type Modification struct {
	StudentID  string    `json:"studentId"`
	Name       string    `json:"name"`
	FatherName string    `json:"fatherName"`
	MotherName string    `json:"motherName"`
	Mobile     string    `json:"mobile"`
	Field      string    `json:"field"`
	OldValue   any       `json:"oldValue"`
	NewValue   any       `json:"newValue"`
	ModifiedAt time.Time `json:"modifiedAt"`
}

// Modifications flattens every student's history, newest first.
func (s *Service) Modifications(ctx context.Context) ([]Modification, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := []Modification{}
	for _, st := range all {
		for _, c := range st.ModificationHistory {
			out = append(out, Modification{
				StudentID:  st.ID,
				Name:       st.Name,
				FatherName: st.FatherName,
				MotherName: st.MotherName,
				Mobile:     st.Mobile,
				Field:      c.Field,
				OldValue:   c.OldValue,
				NewValue:   c.NewValue,
				ModifiedAt: c.ModifiedAt,
			})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ModifiedAt.After(out[j].ModifiedAt) })
	return out, nil
}

// Seats projects enabled students onto the seat grid.
func (s *Service) Seats(ctx context.Context, totalSeats, shifts int) ([]SeatStatus, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	return SeatMap(all, totalSeats, shifts), nil
}

// Enabled lists students whose status is enabled.
func (s *Service) Enabled(ctx context.Context) ([]Student, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, st := range all {
		if st.Status == StatusEnabled {
			out = append(out, st)
		}
	}
	return out, nil
}

// mutate loads the student, applies fn and saves once. Nothing is persisted when fn or the
// save fails.
func (s *Service) mutate(ctx context.Context, id string, fn func(*Student) error) (*Student, error) {
	if id == "" {
		return nil, apperrors.Validation("student id is required")
	}
	unlock := s.locks.Lock(id)
	defer unlock()

	st, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(st); err != nil {
		return nil, err
	}
	st.UpdatedAt = s.now()
	if err := s.repo.Save(ctx, st); err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			metrics.SaveConflicts.Inc()
		}
		s.log.Warn().Err(err).Str("studentID", id).Msg("save student")
		return nil, err
	}
	return st, nil
}

func (s *Service) ensureMobileFree(ctx context.Context, mobile, selfID string) error {
	other, err := s.repo.FindByMobile(ctx, mobile)
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		return nil
	case err != nil:
		return err
	case other.ID != selfID:
		return apperrors.Conflict("a student with mobile %s already exists", mobile)
	}
	return nil
}
