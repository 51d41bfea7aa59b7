package scheduling

import (
	"time"

	"clinic-scheduler/internal/apierrors"

	"github.com/google/uuid"
)

type Patient struct {
	ID          int64     `json:"-" dbfield:"id"`
	UserID      int64     `json:"-" dbfield:"user_id"`
	UUID        uuid.UUID `json:"uuid" dbfield:"uuid"`
	Name        string    `json:"name" dbfield:"name"`
	Email       string    `json:"email" dbfield:"email"`
	MobilePhone string    `json:"mobile_phone" dbfield:"mobile_phone"`
}

type Doctor struct {
	ID          int64     `json:"-" dbfield:"id"`
	UserID      int64     `json:"-" dbfield:"user_id"`
	UUID        uuid.UUID `json:"uuid" dbfield:"uuid"`
	Name        string    `json:"name" dbfield:"name"`
	Email       string    `json:"email" dbfield:"email"`
	MobilePhone string    `json:"mobile_phone" dbfield:"mobile_phone"`
	Specialty   string    `json:"specialty" dbfield:"specialty"`
}

// Status is the appointment lifecycle state. Completed and cancelled are terminal.
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// IsTerminal tells if no further transition is allowed from the status.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// AvailabilityWindow is a doctor's recurring bookable interval for one weekday.
// A doctor holds at most one window per weekday; publishing a second one replaces it.
type AvailabilityWindow struct {
	ID        int64     `json:"-" dbfield:"id"`
	UUID      uuid.UUID `json:"uuid" dbfield:"uuid"`
	DoctorID  int64     `json:"-" dbfield:"doctor_id"`
	DayOfWeek int32     `json:"day_of_week" dbfield:"day_of_week"`
	StartTime string    `json:"start_time" dbfield:"start_time"`
	EndTime   string    `json:"end_time" dbfield:"end_time"`
}

type Appointment struct {
	ID               int64     `json:"-" dbfield:"id"`
	UUID             uuid.UUID `json:"uuid" dbfield:"uuid"`
	DoctorID         int64     `json:"-" dbfield:"doctor_id"`
	Doctor           *Doctor   `json:"doctor,omitempty"`
	PatientID        int64     `json:"-" dbfield:"patient_id"`
	Patient          *Patient  `json:"patient,omitempty"`
	DateTime         time.Time `json:"date_time" dbfield:"date_time"`
	Status           Status    `json:"status" dbfield:"status"`
	ClinicalNotes    *string   `json:"clinical_notes,omitempty" dbfield:"clinical_notes"`
	AttachedDocument *string   `json:"attached_document,omitempty" dbfield:"attached_document"`
}

// Slot is a derived, never persisted candidate appointment start time of a concrete day.
type Slot struct {
	Time      string   `json:"time"`
	Available bool     `json:"available"`
	Patient   *Patient `json:"patient,omitempty"`
}

// BookingRequest is the typed input to book a slot.
type BookingRequest struct {
	DoctorUUID uuid.UUID `json:"doctor_uuid"`
	DateTime   time.Time `json:"date_time"`
}

// Validate checks if the given request is valid.
func (b BookingRequest) Validate() error {
	if b.DoctorUUID == uuid.Nil {
		return apierrors.NewValidationError("doctor_uuid", "required")
	}
	if b.DateTime.IsZero() {
		return apierrors.NewValidationError("date_time", "required")
	}
	return nil
}

// AvailabilityRequest is the typed input to publish a weekly recurring window.
type AvailabilityRequest struct {
	DayOfWeek int32  `json:"day_of_week"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// Validate checks if the given request is valid.
func (a AvailabilityRequest) Validate() error {
	if a.DayOfWeek < 0 || a.DayOfWeek > 6 {
		return apierrors.NewValidationError("day_of_week", "must be between 0 (Monday) and 6 (Sunday)")
	}
	start, err := parseClock(a.StartTime)
	if err != nil {
		return apierrors.NewValidationError("start_time", "must be a valid HH:mm time")
	}
	end, err := parseClock(a.EndTime)
	if err != nil {
		return apierrors.NewValidationError("end_time", "must be a valid HH:mm time")
	}
	if end <= start {
		return apierrors.NewValidationError("end_time", "must be after start_time")
	}
	return nil
}

// StatusChangeRequest is the typed input to settle an appointment.
type StatusChangeRequest struct {
	Status           Status  `json:"status"`
	ClinicalNotes    *string `json:"clinical_notes,omitempty"`
	AttachedDocument *string `json:"attached_document,omitempty"`
}

// Validate checks if the given request is valid.
func (s StatusChangeRequest) Validate() error {
	if s.Status != StatusCompleted && s.Status != StatusCancelled {
		return apierrors.NewValidationError("status", "must be completed or cancelled")
	}
	return nil
}
