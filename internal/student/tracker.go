package student

import (
	"libraryadmin/internal/apperrors"
)

// SessionRef selects a session within a day, by position or by the first matching time.
type SessionRef struct {
	Index *int
	Time  string
}

type half int

const (
	entryHalf half = iota
	exitHalf
)

func (h half) String() string {
	if h == entryHalf {
		return "entry"
	}
	return "exit"
}

func (h half) get(s Session) string {
	if h == entryHalf {
		return s.EntryTime
	}
	return s.ExitTime
}

func (h half) clear(s *Session) {
	if h == entryHalf {
		s.EntryTime = ""
		return
	}
	s.ExitTime = ""
}

// Day returns the attendance record for date, or nil.
func (s *Student) Day(date string) *AttendanceDay {
	_, d := s.day(date)
	return d
}

func (s *Student) day(date string) (int, *AttendanceDay) {
	for i := range s.Attendance {
		if s.Attendance[i].Date == date {
			return i, &s.Attendance[i]
		}
	}
	return -1, nil
}

// MarkEntry opens a new session on date, creating the day when needed.
func (s *Student) MarkEntry(date, at string) error {
	if err := requireDateTime(date, at); err != nil {
		return err
	}
	if _, d := s.day(date); d != nil {
		d.Sessions = append(d.Sessions, Session{EntryTime: at})
		return nil
	}
	s.Attendance = append(s.Attendance, AttendanceDay{
		Date:     date,
		Sessions: []Session{{EntryTime: at}},
	})
	return nil
}

// MarkExit closes the most recent session of date.
func (s *Student) MarkExit(date, at string) error {
	if err := requireDateTime(date, at); err != nil {
		return err
	}
	_, d := s.day(date)
	if d == nil || len(d.Sessions) == 0 {
		return apperrors.InvalidState("no entry recorded for %s", date)
	}
	last := &d.Sessions[len(d.Sessions)-1]
	if last.ExitTime != "" {
		return apperrors.InvalidState("exit already marked for the last session")
	}
	last.ExitTime = at
	return nil
}

// DeleteEntry clears the entry time of the referenced session.
func (s *Student) DeleteEntry(date string, ref SessionRef) error {
	return s.clearHalf(date, ref, entryHalf)
}

// DeleteExit clears the exit time of the referenced session.
func (s *Student) DeleteExit(date string, ref SessionRef) error {
	return s.clearHalf(date, ref, exitHalf)
}

func (s *Student) clearHalf(date string, ref SessionRef, h half) error {
	if date == "" {
		return apperrors.Validation("date is required")
	}
	if ref.Index == nil && ref.Time == "" {
		return apperrors.Validation("session index or %s time is required", h)
	}
	i, d := s.day(date)
	if d == nil || len(d.Sessions) == 0 {
		return apperrors.NotFound("no attendance record found for %s", date)
	}

	idx := -1
	if ref.Index != nil {
		if *ref.Index >= 0 && *ref.Index < len(d.Sessions) {
			idx = *ref.Index
		}
	} else {
		for j, sess := range d.Sessions {
			if h.get(sess) == ref.Time {
				idx = j
				break
			}
		}
	}
	if idx < 0 {
		return apperrors.NotFound("no matching %s session found", h)
	}

	h.clear(&d.Sessions[idx])
	s.prune(i)
	return nil
}

// DeleteBlankSession removes the session at index if both of its times are empty.
func (s *Student) DeleteBlankSession(date string, index int) error {
	if date == "" {
		return apperrors.Validation("date is required")
	}
	i, d := s.day(date)
	if d == nil {
		return apperrors.NotFound("no attendance record found for %s", date)
	}
	if index < 0 || index >= len(d.Sessions) {
		return apperrors.Validation("invalid session index %d", index)
	}
	if !d.Sessions[index].blank() {
		return apperrors.InvalidState("session is not blank")
	}
	d.Sessions = append(d.Sessions[:index], d.Sessions[index+1:]...)
	s.prune(i)
	return nil
}

// SetPresent records the legacy whole-day flag. Session data on the day is left untouched.
func (s *Student) SetPresent(date string, present bool) error {
	if err := validDate(date); err != nil {
		return err
	}
	if _, d := s.day(date); d != nil {
		d.Present = &present
		return nil
	}
	s.Attendance = append(s.Attendance, AttendanceDay{
		Date:     date,
		Sessions: []Session{},
		Present:  &present,
	})
	return nil
}

// prune drops void sessions of day i and removes the day once nothing is left on it.
func (s *Student) prune(i int) {
	d := &s.Attendance[i]
	kept := d.Sessions[:0]
	for _, sess := range d.Sessions {
		if !sess.blank() {
			kept = append(kept, sess)
		}
	}
	d.Sessions = kept
	if len(d.Sessions) == 0 && d.Present == nil {
		s.Attendance = append(s.Attendance[:i], s.Attendance[i+1:]...)
	}
}

func requireDateTime(date, at string) error {
	if date == "" || at == "" {
		return apperrors.Validation("date and time are required")
	}
	return validDate(date)
}
