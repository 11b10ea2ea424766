package domain

import (
	"time"

	"github.com/google/uuid"
)

// OutcomeResult reports what a committed outcome changed.
type OutcomeResult struct {
	Snapshot OutcomeSnapshot
	Plan     OutcomePlan
	// SaleInserted is false when a sale conversion for the appointment
	// already existed; the partner total was not touched in that case.
	SaleInserted bool
}

// ZeroValueConversion is a lead or booking conversion. It carries no money,
// so it stays held forever and only moves the partner's counters.
type ZeroValueConversion struct {
	Code          string
	Type          ConversionType
	LeadID        *uuid.UUID
	AppointmentID *uuid.UUID
	At            time.Time
}
