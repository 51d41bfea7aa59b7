// Package scheduling contains handlers, services and structures used to manage doctors'
// weekly recurring availability and the booking of concrete appointments.
package scheduling

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"clinic-scheduler/internal/apierrors"
	"clinic-scheduler/internal/auth"
	"clinic-scheduler/internal/configs"
	"clinic-scheduler/internal/database"
	"clinic-scheduler/internal/metrics"

	"github.com/google/uuid"
)

// Resolver determines the read operations over bookable slots and daily schedules.
type Resolver interface {

	// ListBookableSlots returns the doctor's open slot start times for the given date,
	// ascending. A day without availability yields an empty list, not an error.
	ListBookableSlots(ctx context.Context, doctorUUID uuid.UUID, date time.Time) ([]string, error)

	// GetDaySchedule returns the authenticated doctor's agenda for the given date,
	// marking taken slots with the booked patient.
	GetDaySchedule(ctx context.Context, user auth.User, date time.Time) ([]Slot, error)
}

// Booker determines the operations that create or settle appointments.
type Booker interface {

	// Book books the requested slot for the authenticated patient.
	Book(ctx context.Context, user auth.User, request BookingRequest) (*Appointment, error)

	// SetStatus moves an appointment of the authenticated doctor into a terminal status.
	SetStatus(ctx context.Context, user auth.User, appointmentUUID uuid.UUID, request StatusChangeRequest) (*Appointment, error)

	// Withdraw hard deletes an appointment owned by the authenticated patient.
	Withdraw(ctx context.Context, user auth.User, appointmentUUID uuid.UUID) error
}

// AvailabilityManager determines the operations over the doctor's weekly recurring windows.
type AvailabilityManager interface {

	// ListAvailability lists the authenticated doctor's recurring windows.
	ListAvailability(ctx context.Context, user auth.User) ([]*AvailabilityWindow, error)

	// UpsertAvailability publishes a recurring window, replacing an existing one for the same weekday.
	UpsertAvailability(ctx context.Context, user auth.User, request AvailabilityRequest) (*AvailabilityWindow, error)

	// DeleteAvailability removes one of the authenticated doctor's recurring windows.
	DeleteAvailability(ctx context.Context, user auth.User, availabilityUUID uuid.UUID) error
}

// Service determines the methods used to manage the clinic's schedule.
type Service interface {
	Resolver
	Booker
	AvailabilityManager
}

type defaultService struct {
	repository Repository
	cache      SlotCache
	config     configs.Config
}

// NewService creates a new scheduling service.
func NewService(config configs.Config, dbConn database.Connection, cache SlotCache) Service {
	if cache == nil {
		cache = NewNopSlotCache()
	}
	return &defaultService{
		config:     config,
		cache:      cache,
		repository: newRepository(dbConn),
	}
}

// newServiceWithRepository wires an explicit repository, used by tests.
func newServiceWithRepository(repository Repository, cache SlotCache) Service {
	if cache == nil {
		cache = NewNopSlotCache()
	}
	return &defaultService{repository: repository, cache: cache}
}

// dayBounds returns the [00:00, next day 00:00) interval containing the given date.
func dayBounds(date time.Time) (time.Time, time.Time) {
	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	return dayStart, dayStart.AddDate(0, 0, 1)
}

// takenTimes indexes the appointments by their HH:mm time of day. Matching happens at
// minute granularity so stored seconds never hide a taken slot.
func takenTimes(appointments []*Appointment) map[string]*Appointment {
	taken := make(map[string]*Appointment, len(appointments))
	for _, appointment := range appointments {
		taken[appointment.DateTime.Format(clockLayout)] = appointment
	}
	return taken
}

func (d defaultService) ListBookableSlots(ctx context.Context, doctorUUID uuid.UUID, date time.Time) ([]string, error) {
	doctor, err := d.repository.FindDoctorByUUID(ctx, doctorUUID)
	if err != nil {
		return nil, fmt.Errorf("an unexpected error occurred: %w", err)
	}
	if doctor == nil {
		return nil, apierrors.NewAPIError(
			apierrors.WithKind(apierrors.KindNotFound),
			apierrors.WithDetail(ErrDoctorNotFound),
			apierrors.WithHTTPStatusCode(http.StatusNotFound))
	}
	if slots, ok := d.cache.GetSlots(ctx, doctor.ID, date); ok {
		return slots, nil
	}
	window, err := d.repository.FindAvailabilityByDay(ctx, doctor.ID, DayOfWeek(date))
	if err != nil {
		return nil, fmt.Errorf("an unexpected error occurred: %w", err)
	}
	if window == nil {
		return []string{}, nil
	}
	candidates, err := GenerateSlots(window.StartTime, window.EndTime)
	if err != nil {
		return nil, err
	}
	dayStart, dayEnd := dayBounds(date)
	appointments, err := d.repository.ListScheduledAppointments(ctx, doctor.ID, dayStart, dayEnd)
	if err != nil {
		return nil, fmt.Errorf("an unexpected error occurred: %w", err)
	}
	taken := takenTimes(appointments)
	slots := make([]string, 0, len(candidates))
	for _, candidate := range candidates {
		if _, isTaken := taken[candidate]; isTaken {
			continue
		}
		slots = append(slots, candidate)
	}
	d.cache.SetSlots(ctx, doctor.ID, date, slots)
	return slots, nil
}

func (d defaultService) GetDaySchedule(ctx context.Context, user auth.User, date time.Time) ([]Slot, error) {
	doctor, err := d.repository.FindDoctorByUserID(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("an unexpected error occurred: %w", err)
	}
	if doctor == nil {
		return nil, apierrors.NewAPIError(
			apierrors.WithDetail(ErrOnlyDoctorCanManage),
			apierrors.WithHTTPStatusCode(http.StatusForbidden))
	}
	window, err := d.repository.FindAvailabilityByDay(ctx, doctor.ID, DayOfWeek(date))
	if err != nil {
		return nil, fmt.Errorf("an unexpected error occurred: %w", err)
	}
	if window == nil {
		return []Slot{}, nil
	}
	candidates, err := GenerateSlots(window.StartTime, window.EndTime)
	if err != nil {
		return nil, err
	}
	dayStart, dayEnd := dayBounds(date)
	appointments, err := d.repository.ListScheduledAppointments(ctx, doctor.ID, dayStart, dayEnd)
	if err != nil {
		return nil, fmt.Errorf("an unexpected error occurred: %w", err)
	}
	taken := takenTimes(appointments)
	schedule := make([]Slot, 0, len(candidates))
	for _, candidate := range candidates {
		appointment, isTaken := taken[candidate]
		if !isTaken {
			schedule = append(schedule, Slot{Time: candidate, Available: true})
			continue
		}
		patient, err := d.repository.FindPatientByID(ctx, appointment.PatientID)
		if err != nil {
			return nil, fmt.Errorf("an unexpected error occurred: %w", err)
		}
		schedule = append(schedule, Slot{Time: candidate, Available: false, Patient: patient})
	}
	return schedule, nil
}

func (d defaultService) Book(ctx context.Context, user auth.User, request BookingRequest) (*Appointment, error) {
	if err := request.Validate(); err != nil {
		return nil, err
	}
	patient, err := d.repository.FindPatientByUserID(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("an unexpected error occurred: %w", err)
	}
	if patient == nil {
		return nil, apierrors.NewAPIError(
			apierrors.WithDetail(ErrOnlyPatientCanBook),
			apierrors.WithHTTPStatusCode(http.StatusForbidden))
	}
	doctor, err := d.repository.FindDoctorByUUID(ctx, request.DoctorUUID)
	if err != nil {
		return nil, fmt.Errorf("an unexpected error occurred: %w", err)
	}
	if doctor == nil {
		return nil, apierrors.NewAPIError(
			apierrors.WithKind(apierrors.KindNotFound),
			apierrors.WithDetail(ErrDoctorNotFound),
			apierrors.WithHTTPStatusCode(http.StatusNotFound))
	}
	window, err := d.repository.FindAvailabilityByDay(ctx, doctor.ID, DayOfWeek(request.DateTime))
	if err != nil {
		return nil, fmt.Errorf("an unexpected error occurred: %w", err)
	}
	if !windowContains(window, request.DateTime) {
		metrics.CountBookingAttempt("rejected")
		return nil, apierrors.NewAPIError(
			apierrors.WithKind(apierrors.KindInvalidSlot),
			apierrors.WithDetail(ErrSlotOutsideWindow),
			apierrors.WithHTTPStatusCode(http.StatusBadRequest))
	}
	booked, err := d.repository.HasScheduledAppointment(ctx, doctor.ID, request.DateTime)
	if err != nil {
		return nil, fmt.Errorf("an unexpected error occurred: %w", err)
	}
	if booked {
		metrics.CountBookingAttempt("conflict")
		return nil, apierrors.NewAPIError(
			apierrors.WithKind(apierrors.KindSlotConflict),
			apierrors.WithDetail(ErrSlotAlreadyBooked),
			apierrors.WithHTTPStatusCode(http.StatusConflict))
	}
	appointment := Appointment{
		UUID:      uuid.New(),
		DoctorID:  doctor.ID,
		Doctor:    doctor,
		PatientID: patient.ID,
		Patient:   patient,
		DateTime:  request.DateTime,
		Status:    StatusScheduled,
	}
	// The partial unique index arbitrates concurrent inserts for the same instant;
	// the losing request surfaces here as a slot conflict.
	if err = d.repository.InsertAppointment(ctx, appointment); err != nil {
		if apierrors.IsKind(err, apierrors.KindSlotConflict) {
			metrics.CountBookingAttempt("conflict")
			return nil, err
		}
		metrics.CountBookingAttempt("failed")
		return nil, fmt.Errorf("an unexpected error occurred: %w", err)
	}
	metrics.CountBookingAttempt("created")
	d.cache.InvalidateDay(ctx, doctor.ID, request.DateTime)
	return &appointment, nil
}

// windowContains checks if the instant's time of day falls within [start, end) of the window.
func windowContains(window *AvailabilityWindow, dateTime time.Time) bool {
	if window == nil {
		return false
	}
	start, err := parseClock(window.StartTime)
	if err != nil {
		return false
	}
	end, err := parseClock(window.EndTime)
	if err != nil {
		return false
	}
	minute := minuteOfDay(dateTime)
	return minute >= start && minute < end
}

func (d defaultService) SetStatus(ctx context.Context, user auth.User, appointmentUUID uuid.UUID, request StatusChangeRequest) (*Appointment, error) {
	if err := request.Validate(); err != nil {
		return nil, err
	}
	doctor, err := d.repository.FindDoctorByUserID(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("an unexpected error occurred: %w", err)
	}
	if doctor == nil {
		return nil, apierrors.NewAPIError(
			apierrors.WithDetail(ErrOnlyDoctorCanManage),
			apierrors.WithHTTPStatusCode(http.StatusForbidden))
	}
	settled, err := d.repository.SettleAppointment(ctx, appointmentUUID, doctor.ID, request.Status, request.ClinicalNotes, request.AttachedDocument)
	if err != nil {
		return nil, fmt.Errorf("an unexpected error occurred: %w", err)
	}
	if settled == nil {
		existing, err := d.repository.FindAppointmentByUUID(ctx, appointmentUUID)
		if err != nil {
			return nil, fmt.Errorf("an unexpected error occurred: %w", err)
		}
		if existing == nil || existing.DoctorID != doctor.ID {
			return nil, apierrors.NewAPIError(
				apierrors.WithKind(apierrors.KindNotFound),
				apierrors.WithDetail(ErrAppointmentNotFound),
				apierrors.WithHTTPStatusCode(http.StatusNotFound))
		}
		return nil, apierrors.NewAPIError(
			apierrors.WithKind(apierrors.KindInvalidTransition),
			apierrors.WithDetail(ErrAppointmentClosed),
			apierrors.WithHTTPStatusCode(http.StatusConflict))
	}
	if settled.Status == StatusCancelled {
		// Cancelling frees the slot for new bookings.
		d.cache.InvalidateDay(ctx, doctor.ID, settled.DateTime)
	}
	return settled, nil
}

func (d defaultService) Withdraw(ctx context.Context, user auth.User, appointmentUUID uuid.UUID) error {
	patient, err := d.repository.FindPatientByUserID(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("an unexpected error occurred: %w", err)
	}
	if patient == nil {
		return apierrors.NewAPIError(
			apierrors.WithDetail(ErrOnlyPatientCanBook),
			apierrors.WithHTTPStatusCode(http.StatusForbidden))
	}
	deleted, err := d.repository.DeleteAppointment(ctx, appointmentUUID, patient.ID)
	if err != nil {
		return fmt.Errorf("an unexpected error occurred: %w", err)
	}
	if deleted == nil {
		return apierrors.NewAPIError(
			apierrors.WithKind(apierrors.KindNotFound),
			apierrors.WithDetail(ErrAppointmentNotFound),
			apierrors.WithHTTPStatusCode(http.StatusNotFound))
	}
	if deleted.Status == StatusScheduled {
		d.cache.InvalidateDay(ctx, deleted.DoctorID, deleted.DateTime)
	}
	return nil
}

func (d defaultService) ListAvailability(ctx context.Context, user auth.User) ([]*AvailabilityWindow, error) {
	doctor, err := d.repository.FindDoctorByUserID(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("an unexpected error occurred: %w", err)
	}
	if doctor == nil {
		return nil, apierrors.NewAPIError(
			apierrors.WithDetail(ErrOnlyDoctorCanManage),
			apierrors.WithHTTPStatusCode(http.StatusForbidden))
	}
	return d.repository.ListAvailability(ctx, doctor.ID)
}

func (d defaultService) UpsertAvailability(ctx context.Context, user auth.User, request AvailabilityRequest) (*AvailabilityWindow, error) {
	if err := request.Validate(); err != nil {
		return nil, err
	}
	doctor, err := d.repository.FindDoctorByUserID(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("an unexpected error occurred: %w", err)
	}
	if doctor == nil {
		return nil, apierrors.NewAPIError(
			apierrors.WithDetail(ErrOnlyDoctorCanManage),
			apierrors.WithHTTPStatusCode(http.StatusForbidden))
	}
	window := AvailabilityWindow{
		UUID:      uuid.New(),
		DoctorID:  doctor.ID,
		DayOfWeek: request.DayOfWeek,
		StartTime: request.StartTime,
		EndTime:   request.EndTime,
	}
	stored, err := d.repository.UpsertAvailability(ctx, window)
	if err != nil {
		return nil, fmt.Errorf("an unexpected error occurred: %w", err)
	}
	d.cache.InvalidateDoctor(ctx, doctor.ID)
	return stored, nil
}

func (d defaultService) DeleteAvailability(ctx context.Context, user auth.User, availabilityUUID uuid.UUID) error {
	doctor, err := d.repository.FindDoctorByUserID(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("an unexpected error occurred: %w", err)
	}
	if doctor == nil {
		return apierrors.NewAPIError(
			apierrors.WithDetail(ErrOnlyDoctorCanManage),
			apierrors.WithHTTPStatusCode(http.StatusForbidden))
	}
	removed, err := d.repository.DeleteAvailability(ctx, availabilityUUID, doctor.ID)
	if err != nil {
		return fmt.Errorf("an unexpected error occurred: %w", err)
	}
	if !removed {
		return apierrors.NewAPIError(
			apierrors.WithKind(apierrors.KindNotFound),
			apierrors.WithDetail(ErrAvailabilityNotFound),
			apierrors.WithHTTPStatusCode(http.StatusNotFound))
	}
	d.cache.InvalidateDoctor(ctx, doctor.ID)
	return nil
}
