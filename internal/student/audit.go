package student

import (
	"slices"
	"time"
)

// Tracked field names, in the order they are diffed.
const (
	FieldShiftNo       = "shiftNo"
	FieldSerialNo      = "serialNo"
	FieldName          = "name"
	FieldFatherName    = "fatherName"
	FieldMotherName    = "motherName"
	FieldAddress       = "address"
	FieldMobile        = "mobile"
	FieldAdmissionDate = "admissionDate"
)

// TrackedFields lists every attribute that enters the modification history.
var TrackedFields = []string{
	FieldShiftNo, FieldSerialNo, FieldName, FieldFatherName,
	FieldMotherName, FieldAddress, FieldMobile, FieldAdmissionDate,
}

// Patch is a partial update of tracked fields. A nil field means no change.
type Patch struct {
	ShiftNo       *ShiftList `json:"shiftNo"`
	SerialNo      *FlexInt   `json:"serialNo"`
	Name          *string    `json:"name"`
	FatherName    *string    `json:"fatherName"`
	MotherName    *string    `json:"motherName"`
	Address       *string    `json:"address"`
	Mobile        *string    `json:"mobile"`
	AdmissionDate *Date      `json:"admissionDate"`
}

// ApplyPatch diffs p against s field by field, appends one ChangeEntry per changed field
// to s.ModificationHistory and overwrites the field. It returns the entries it appended.
func ApplyPatch(s *Student, p Patch, now time.Time) []ChangeEntry {
	var entries []ChangeEntry

	diff(&entries, FieldShiftNo, &s.ShiftNo, p.ShiftNo, func(a, b ShiftList) bool { return slices.Equal(a, b) }, now)

	var serial *int
	if p.SerialNo != nil {
		n := int(*p.SerialNo)
		serial = &n
	}
	diff(&entries, FieldSerialNo, &s.SerialNo, serial, equal[int], now)

	diff(&entries, FieldName, &s.Name, p.Name, equal[string], now)
	diff(&entries, FieldFatherName, &s.FatherName, p.FatherName, equal[string], now)
	diff(&entries, FieldMotherName, &s.MotherName, p.MotherName, equal[string], now)
	diff(&entries, FieldAddress, &s.Address, p.Address, equal[string], now)
	diff(&entries, FieldMobile, &s.Mobile, p.Mobile, equal[string], now)
	diff(&entries, FieldAdmissionDate, &s.AdmissionDate, p.AdmissionDate, equal[Date], now)

	s.ModificationHistory = append(s.ModificationHistory, entries...)
	return entries
}

func diff[T any](entries *[]ChangeEntry, field string, cur *T, next *T, eq func(a, b T) bool, now time.Time) {
	if next == nil || eq(*cur, *next) {
		return
	}
	*entries = append(*entries, ChangeEntry{
		Field:      field,
		OldValue:   *cur,
		NewValue:   *next,
		ModifiedAt: now,
	})
	*cur = *next
}

func equal[T comparable](a, b T) bool { return a == b }
