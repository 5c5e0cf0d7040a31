package student

// Summary is a per-student monthly attendance tally.
type Summary struct {
	ID                string          `json:"_id"`
	SerialNo          int             `json:"serialNo"`
	Name              string          `json:"name"`
	Mobile            string          `json:"mobile,omitempty"`
	ShiftNo           ShiftList       `json:"shiftNo"`
	PresentCount      int             `json:"presentCount"`
	AbsentCount       int             `json:"absentCount"`
	AttendanceDetails []AttendanceDay `json:"attendanceDetails"`
}

// SessionSummary counts every recorded day in month as present.
func SessionSummary(s *Student, month Month) Summary {
	days := daysIn(s, month)
	return newSummary(s, month, days, len(days))
}

// FlagSummary counts only days whose present flag is explicitly true.
func FlagSummary(s *Student, month Month) Summary {
	days := daysIn(s, month)
	present := 0
	for _, d := range days {
		if d.Present != nil && *d.Present {
			present++
		}
	}
	return newSummary(s, month, days, present)
}

func daysIn(s *Student, month Month) []AttendanceDay {
	out := []AttendanceDay{}
	for _, d := range s.Attendance {
		if month.Contains(d.Date) {
			out = append(out, d)
		}
	}
	return out
}

func newSummary(s *Student, month Month, days []AttendanceDay, present int) Summary {
	absent := month.Days() - present
	if absent < 0 {
		absent = 0
	}
	return Summary{
		ID:                s.ID,
		SerialNo:          s.SerialNo,
		Name:              s.Name,
		Mobile:            s.Mobile,
		ShiftNo:           s.ShiftNo,
		PresentCount:      present,
		AbsentCount:       absent,
		AttendanceDetails: days,
	}
}
