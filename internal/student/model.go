package student

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Status is the enrollment state of a student.
type Status string

const (
	StatusEnabled  Status = "enabled"
	StatusDisabled Status = "disabled"
)

// FeeStatus is the payment state of a monthly fee.
type FeeStatus string

const (
	FeePaid   FeeStatus = "paid"
	FeeUnpaid FeeStatus = "unpaid"
)

// Student is the aggregate root: static profile, attendance, fees and the audit trail.
type Student struct {
	ID                  string          `json:"_id"`
	ShiftNo             ShiftList       `json:"shiftNo"`
	SerialNo            int             `json:"serialNo"`
	Name                string          `json:"name"`
	FatherName          string          `json:"fatherName"`
	MotherName          string          `json:"motherName"`
	Address             string          `json:"address"`
	Mobile              string          `json:"mobile"`
	AdmissionDate       Date            `json:"admissionDate,omitempty"`
	SeatNo              int             `json:"seatNo,omitempty"`
	Status              Status          `json:"status"`
	EnabledDate         Date            `json:"enabledDate,omitempty"`
	DisabledDate        Date            `json:"disabledDate,omitempty"`
	IsActive            bool            `json:"isActive"`
	Attendance          []AttendanceDay `json:"attendance"`
	Fees                []FeeRecord     `json:"fees"`
	ModificationHistory []ChangeEntry   `json:"modificationHistory"`
	Version             int             `json:"version"`
	CreatedAt           time.Time       `json:"createdAt"`
	UpdatedAt           time.Time       `json:"updatedAt"`
}

// AttendanceDay holds the sessions of one calendar date plus the legacy presence flag.
// The two representations are independent and never reconciled.
type AttendanceDay struct {
	Date     string    `json:"date"`
	Sessions []Session `json:"sessions"`
	Present  *bool     `json:"present,omitempty"`
}

// Session is one entry/exit pair. A session with neither time set is void.
type Session struct {
	EntryTime string `json:"entryTime,omitempty"`
	ExitTime  string `json:"exitTime,omitempty"`
}

func (s Session) blank() bool { return s.EntryTime == "" && s.ExitTime == "" }

// FeeRecord is the fee state for one month. PaidOn is set iff Status is paid.
type FeeRecord struct {
	Month  string     `json:"month"`
	Status FeeStatus  `json:"status"`
	Amount float64    `json:"amount"`
	PaidOn *time.Time `json:"paidOn"`
}

// ChangeEntry is one immutable audit row.
type ChangeEntry struct {
	Field      string    `json:"field"`
	OldValue   any       `json:"oldValue"`
	NewValue   any       `json:"newValue"`
	ModifiedAt time.Time `json:"modifiedAt"`
}

// NewStudent is the enrollment payload.
type NewStudent struct {
	ShiftNo       ShiftList `json:"shiftNo"`
	SerialNo      FlexInt   `json:"serialNo"`
	Name          string    `json:"name"`
	FatherName    string    `json:"fatherName"`
	MotherName    string    `json:"motherName"`
	Address       string    `json:"address"`
	Mobile        string    `json:"mobile"`
	AdmissionDate Date      `json:"admissionDate"`
	SeatNo        FlexInt   `json:"seatNo"`
}

// SeatKey identifies the seat a student occupies; the mobile number stands in when no seat is assigned.
func (s *Student) SeatKey() string {
	if s.SeatNo > 0 {
		return strconv.Itoa(s.SeatNo)
	}
	return s.Mobile
}

// Date is a civil date in YYYY-MM-DD form.
type Date string

// ParseDate accepts YYYY-MM-DD or an RFC3339 timestamp and returns the calendar date.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", nil
	}
	if t, err := time.Parse(dateLayout, s); err == nil {
		return Date(t.Format(dateLayout)), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return Date(t.Format(dateLayout)), nil
	}
	return "", fmt.Errorf("invalid date %q", s)
}

func (d *Date) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*d = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// FlexInt decodes from a JSON number or a numeric string.
type FlexInt int

func (n *FlexInt) UnmarshalJSON(b []byte) error {
	s := string(b)
	if s == "null" {
		return nil
	}
	if unq, err := strconv.Unquote(s); err == nil {
		s = strings.TrimSpace(unq)
		if s == "" {
			*n = 0
			return nil
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) {
		return fmt.Errorf("invalid integer %s", string(b))
	}
	*n = FlexInt(f)
	return nil
}

// ShiftList is an ordered set of shift numbers; elements decode from numbers or numeric strings.
type ShiftList []int

func (l *ShiftList) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*l = nil
		return nil
	}
	var raw []FlexInt
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("shiftNo must be a list of numbers: %w", err)
	}
	out := make(ShiftList, len(raw))
	for i, v := range raw {
		out[i] = int(v)
	}
	*l = out
	return nil
}

// Has reports whether shift n is assigned.
func (l ShiftList) Has(n int) bool {
	for _, v := range l {
		if v == n {
			return true
		}
	}
	return false
}
