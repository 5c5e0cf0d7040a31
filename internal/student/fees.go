package student

import (
	"strings"
	"time"

	"libraryadmin/internal/apperrors"
)

// FeeInput is the payload of a fee upsert.
type FeeInput struct {
	Month  string     `json:"month" binding:"required,month"`
	Status string     `json:"status" binding:"required"`
	Amount float64    `json:"amount" binding:"gte=0"`
	PaidOn *time.Time `json:"paidOn"`
}

// ParseFeeStatus normalises a status string; "Paid" and "paid" are the same.
func ParseFeeStatus(s string) (FeeStatus, error) {
	switch FeeStatus(strings.ToLower(strings.TrimSpace(s))) {
	case FeePaid:
		return FeePaid, nil
	case FeeUnpaid:
		return FeeUnpaid, nil
	}
	return "", apperrors.Validation("invalid fee status %q", s)
}

// UpsertFee creates or replaces the fee record of a month. PaidOn is kept only for paid
// records and defaults to now.
func (s *Student) UpsertFee(in FeeInput, now time.Time) (FeeRecord, error) {
	month, err := ParseMonth(in.Month)
	if err != nil {
		return FeeRecord{}, err
	}
	status, err := ParseFeeStatus(in.Status)
	if err != nil {
		return FeeRecord{}, err
	}
	if in.Amount < 0 {
		return FeeRecord{}, apperrors.Validation("amount must not be negative")
	}

	rec := FeeRecord{Month: month.String(), Status: status, Amount: in.Amount}
	if status == FeePaid {
		paid := now
		if in.PaidOn != nil && !in.PaidOn.IsZero() {
			paid = *in.PaidOn
		}
		rec.PaidOn = &paid
	}

	for i := range s.Fees {
		if s.Fees[i].Month == rec.Month {
			s.Fees[i] = rec
			return rec, nil
		}
	}
	s.Fees = append(s.Fees, rec)
	return rec, nil
}

// Fee returns the fee record of month.
func (s *Student) Fee(month string) (FeeRecord, bool) {
	for _, f := range s.Fees {
		if f.Month == month {
			return f, true
		}
	}
	return FeeRecord{}, false
}
