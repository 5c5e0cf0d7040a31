package student

import (
	"encoding/json"
	"fmt"
	"strconv"
)

const (
	SeatFull  = "full"
	SeatEmpty = "empty"
)

// SeatStatus is the occupancy of one seat across all shifts. It serialises as
// {"seatNo": n, "shift1": "...", "shift2": "...", ...}.
type SeatStatus struct {
	SeatNo int
	Shifts []string
}

func (s SeatStatus) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(s.Shifts)+1)
	m["seatNo"] = s.SeatNo
	for i, v := range s.Shifts {
		m[fmt.Sprintf("shift%d", i+1)] = v
	}
	return json.Marshal(m)
}

// SeatMap projects enabled students onto seats 1..totalSeats and shifts 1..shifts.
func SeatMap(students []Student, totalSeats, shifts int) []SeatStatus {
	occupied := make(map[string]map[int]bool)
	for i := range students {
		st := &students[i]
		if st.Status != StatusEnabled {
			continue
		}
		key := st.SeatKey()
		if occupied[key] == nil {
			occupied[key] = make(map[int]bool)
		}
		for _, sh := range st.ShiftNo {
			occupied[key][sh] = true
		}
	}

	out := make([]SeatStatus, 0, totalSeats)
	for seat := 1; seat <= totalSeats; seat++ {
		row := SeatStatus{SeatNo: seat, Shifts: make([]string, shifts)}
		taken := occupied[strconv.Itoa(seat)]
		for sh := 1; sh <= shifts; sh++ {
			row.Shifts[sh-1] = SeatEmpty
			if taken[sh] {
				row.Shifts[sh-1] = SeatFull
			}
		}
		out = append(out, row)
	}
	return out
}
