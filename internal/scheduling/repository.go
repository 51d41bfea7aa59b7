package scheduling

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"clinic-scheduler/internal/apierrors"
	"clinic-scheduler/internal/database"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const (
	findDoctorByUUIDQuery      = "SELECT id, uuid, user_id, name, email, mobile_phone, specialty FROM tb_doctor WHERE uuid = $1"
	findDoctorByUserIDQuery    = "SELECT id, uuid, user_id, name, email, mobile_phone, specialty FROM tb_doctor WHERE user_id = $1"
	findPatientByIDQuery       = "SELECT id, uuid, user_id, name, email, mobile_phone FROM tb_patient WHERE id = $1"
	findPatientByUserIDQuery   = "SELECT id, uuid, user_id, name, email, mobile_phone FROM tb_patient WHERE user_id = $1"
	findAvailabilityByDayQuery = "SELECT id, uuid, doctor_id, day_of_week, start_time, end_time FROM tb_availability WHERE doctor_id = $1 AND day_of_week = $2"
	listAvailabilityQuery      = "SELECT id, uuid, doctor_id, day_of_week, start_time, end_time FROM tb_availability WHERE doctor_id = $1 ORDER BY day_of_week"
	upsertAvailabilityQuery    = "INSERT INTO tb_availability (uuid, doctor_id, day_of_week, start_time, end_time) VALUES ($1, $2, $3, $4, $5) ON CONFLICT (doctor_id, day_of_week) DO UPDATE SET start_time = EXCLUDED.start_time, end_time = EXCLUDED.end_time RETURNING id, uuid, doctor_id, day_of_week, start_time, end_time"
	deleteAvailabilityQuery    = "DELETE FROM tb_availability WHERE uuid = $1 AND doctor_id = $2"
	insertAppointmentQuery     = "INSERT INTO tb_appointment (uuid, doctor_id, patient_id, date_time, status) VALUES ($1, $2, $3, $4, $5)"
	listAppointmentsQuery      = "SELECT id, uuid, doctor_id, patient_id, date_time, status, clinical_notes, attached_document FROM tb_appointment WHERE doctor_id = $1 AND status = 'scheduled' AND date_time >= $2 AND date_time < $3 ORDER BY date_time"
	findScheduledByInstantQuery = "SELECT id FROM tb_appointment WHERE doctor_id = $1 AND date_time = $2 AND status = 'scheduled'"
	findAppointmentByUUIDQuery  = "SELECT id, uuid, doctor_id, patient_id, date_time, status, clinical_notes, attached_document FROM tb_appointment WHERE uuid = $1"
	settleAppointmentQuery      = "UPDATE tb_appointment SET status = $3, clinical_notes = $4, attached_document = $5 WHERE uuid = $1 AND doctor_id = $2 AND status = 'scheduled' RETURNING id, uuid, doctor_id, patient_id, date_time, status, clinical_notes, attached_document"
	deleteAppointmentQuery      = "DELETE FROM tb_appointment WHERE uuid = $1 AND patient_id = $2 RETURNING id, uuid, doctor_id, patient_id, date_time, status, clinical_notes, attached_document"
)

// uniqueViolation is the PostgreSQL error code raised when the partial unique index on
// scheduled appointments rejects a concurrent insert for the same doctor and instant.
const uniqueViolation = pq.ErrorCode("23505")

// Repository provides access to scheduling data.
type Repository interface {

	// FindDoctorByUUID finds a doctor by its UUID.
	FindDoctorByUUID(ctx context.Context, doctorUUID uuid.UUID) (*Doctor, error)

	// FindDoctorByUserID finds a doctor by its user ID.
	FindDoctorByUserID(ctx context.Context, userID int64) (*Doctor, error)

	// FindPatientByID finds a patient by its ID.
	FindPatientByID(ctx context.Context, id int64) (*Patient, error)

	// FindPatientByUserID finds a patient by its user ID.
	FindPatientByUserID(ctx context.Context, userID int64) (*Patient, error)

	// FindAvailabilityByDay finds the doctor's recurring window for the given ISO weekday.
	FindAvailabilityByDay(ctx context.Context, doctorID int64, dayOfWeek int32) (*AvailabilityWindow, error)

	// ListAvailability lists the doctor's recurring windows ordered by weekday.
	ListAvailability(ctx context.Context, doctorID int64) ([]*AvailabilityWindow, error)

	// UpsertAvailability inserts the window, replacing an existing one for the same weekday.
	UpsertAvailability(ctx context.Context, window AvailabilityWindow) (*AvailabilityWindow, error)

	// DeleteAvailability deletes the doctor's window by its UUID, telling if a row was removed.
	DeleteAvailability(ctx context.Context, availabilityUUID uuid.UUID, doctorID int64) (bool, error)

	// InsertAppointment inserts a new scheduled appointment. A concurrent insert for the
	// same doctor and instant is reported as a slot conflict.
	InsertAppointment(ctx context.Context, appointment Appointment) error

	// ListScheduledAppointments lists the doctor's scheduled appointments within [from, to).
	ListScheduledAppointments(ctx context.Context, doctorID int64, from time.Time, to time.Time) ([]*Appointment, error)

	// HasScheduledAppointment tells if the doctor already has a scheduled appointment at the exact instant.
	HasScheduledAppointment(ctx context.Context, doctorID int64, dateTime time.Time) (bool, error)

	// FindAppointmentByUUID finds an appointment by its UUID.
	FindAppointmentByUUID(ctx context.Context, appointmentUUID uuid.UUID) (*Appointment, error)

	// SettleAppointment moves a scheduled appointment of the doctor into a terminal status,
	// attaching the optional clinical notes and document in the same statement. It returns
	// nil when no scheduled row matched.
	SettleAppointment(ctx context.Context, appointmentUUID uuid.UUID, doctorID int64, status Status, clinicalNotes *string, attachedDocument *string) (*Appointment, error)

	// DeleteAppointment hard deletes the patient's appointment, returning the removed row
	// or nil when nothing matched.
	DeleteAppointment(ctx context.Context, appointmentUUID uuid.UUID, patientID int64) (*Appointment, error)
}

type defaultRepository struct {
	dbConn database.Connection
}

func newRepository(dbConn database.Connection) Repository {
	return &defaultRepository{dbConn: dbConn}
}

func (d defaultRepository) FindDoctorByUUID(ctx context.Context, doctorUUID uuid.UUID) (*Doctor, error) {
	ctx, cancel := d.dbConn.CreateContext(ctx)
	defer cancel()
	rows, err := d.dbConn.DB().QueryContext(ctx, findDoctorByUUIDQuery, doctorUUID)
	if err != nil {
		return nil, err
	}
	defer database.CloseRows(rows)
	doctor := new(Doctor)
	for rows.Next() {
		if err = database.TransformRow(rows, doctor); err != nil {
			return nil, err
		}
		if doctor.ID > 0 {
			return doctor, nil
		}
	}
	return nil, nil
}

func (d defaultRepository) FindDoctorByUserID(ctx context.Context, userID int64) (*Doctor, error) {
	ctx, cancel := d.dbConn.CreateContext(ctx)
	defer cancel()
	rows, err := d.dbConn.DB().QueryContext(ctx, findDoctorByUserIDQuery, userID)
	if err != nil {
		return nil, err
	}
	defer database.CloseRows(rows)
	doctor := new(Doctor)
	for rows.Next() {
		if err = database.TransformRow(rows, doctor); err != nil {
			return nil, err
		}
		if doctor.ID > 0 {
			return doctor, nil
		}
	}
	return nil, nil
}

func (d defaultRepository) FindPatientByID(ctx context.Context, id int64) (*Patient, error) {
	ctx, cancel := d.dbConn.CreateContext(ctx)
	defer cancel()
	rows, err := d.dbConn.DB().QueryContext(ctx, findPatientByIDQuery, id)
	if err != nil {
		return nil, err
	}
	defer database.CloseRows(rows)
	patient := new(Patient)
	for rows.Next() {
		if err = database.TransformRow(rows, patient); err != nil {
			return nil, err
		}
		if patient.ID > 0 {
			return patient, nil
		}
	}
	return nil, nil
}

func (d defaultRepository) FindPatientByUserID(ctx context.Context, userID int64) (*Patient, error) {
	ctx, cancel := d.dbConn.CreateContext(ctx)
	defer cancel()
	rows, err := d.dbConn.DB().QueryContext(ctx, findPatientByUserIDQuery, userID)
	if err != nil {
		return nil, err
	}
	defer database.CloseRows(rows)
	patient := new(Patient)
	for rows.Next() {
		if err = database.TransformRow(rows, patient); err != nil {
			return nil, err
		}
		if patient.ID > 0 {
			return patient, nil
		}
	}
	return nil, nil
}

func (d defaultRepository) FindAvailabilityByDay(ctx context.Context, doctorID int64, dayOfWeek int32) (*AvailabilityWindow, error) {
	ctx, cancel := d.dbConn.CreateContext(ctx)
	defer cancel()
	rows, err := d.dbConn.DB().QueryContext(ctx, findAvailabilityByDayQuery, doctorID, dayOfWeek)
	if err != nil {
		return nil, err
	}
	defer database.CloseRows(rows)
	window := new(AvailabilityWindow)
	for rows.Next() {
		if err = database.TransformRow(rows, window); err != nil {
			return nil, err
		}
		if window.ID > 0 {
			return window, nil
		}
	}
	return nil, nil
}

func (d defaultRepository) ListAvailability(ctx context.Context, doctorID int64) ([]*AvailabilityWindow, error) {
	ctx, cancel := d.dbConn.CreateContext(ctx)
	defer cancel()
	rows, err := d.dbConn.DB().QueryContext(ctx, listAvailabilityQuery, doctorID)
	if err != nil {
		return nil, err
	}
	defer database.CloseRows(rows)
	windows := make([]*AvailabilityWindow, 0)
	for rows.Next() {
		window := new(AvailabilityWindow)
		if err = database.TransformRow(rows, window); err != nil {
			return nil, err
		}
		windows = append(windows, window)
	}
	return windows, nil
}

func (d defaultRepository) UpsertAvailability(ctx context.Context, window AvailabilityWindow) (*AvailabilityWindow, error) {
	ctx, cancel := d.dbConn.CreateContext(ctx)
	defer cancel()
	rows, err := d.dbConn.DB().QueryContext(ctx, upsertAvailabilityQuery, window.UUID, window.DoctorID, window.DayOfWeek, window.StartTime, window.EndTime)
	if err != nil {
		return nil, err
	}
	defer database.CloseRows(rows)
	stored := new(AvailabilityWindow)
	for rows.Next() {
		if err = database.TransformRow(rows, stored); err != nil {
			return nil, err
		}
		if stored.ID > 0 {
			return stored, nil
		}
	}
	return nil, fmt.Errorf("availability not stored")
}

func (d defaultRepository) DeleteAvailability(ctx context.Context, availabilityUUID uuid.UUID, doctorID int64) (bool, error) {
	ctx, cancel := d.dbConn.CreateContext(ctx)
	defer cancel()
	result, err := d.dbConn.DB().ExecContext(ctx, deleteAvailabilityQuery, availabilityUUID, doctorID)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (d defaultRepository) InsertAppointment(ctx context.Context, appointment Appointment) error {
	ctx, cancel := d.dbConn.CreateContext(ctx)
	defer cancel()
	result, err := d.dbConn.DB().ExecContext(ctx, insertAppointmentQuery, appointment.UUID, appointment.DoctorID, appointment.PatientID, appointment.DateTime, appointment.Status)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return apierrors.NewAPIError(
				apierrors.WithKind(apierrors.KindSlotConflict),
				apierrors.WithDetail(ErrSlotAlreadyBooked),
				apierrors.WithHTTPStatusCode(http.StatusConflict))
		}
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("appointment not inserted")
	}
	return nil
}

func (d defaultRepository) ListScheduledAppointments(ctx context.Context, doctorID int64, from time.Time, to time.Time) ([]*Appointment, error) {
	ctx, cancel := d.dbConn.CreateContext(ctx)
	defer cancel()
	rows, err := d.dbConn.DB().QueryContext(ctx, listAppointmentsQuery, doctorID, from, to)
	if err != nil {
		return nil, err
	}
	defer database.CloseRows(rows)
	appointments := make([]*Appointment, 0)
	for rows.Next() {
		appointment := new(Appointment)
		if err = database.TransformRow(rows, appointment); err != nil {
			return nil, err
		}
		appointments = append(appointments, appointment)
	}
	return appointments, nil
}

func (d defaultRepository) HasScheduledAppointment(ctx context.Context, doctorID int64, dateTime time.Time) (bool, error) {
	ctx, cancel := d.dbConn.CreateContext(ctx)
	defer cancel()
	rows, err := d.dbConn.DB().QueryContext(ctx, findScheduledByInstantQuery, doctorID, dateTime)
	if err != nil {
		return false, err
	}
	defer database.CloseRows(rows)
	return rows.Next(), nil
}

func (d defaultRepository) FindAppointmentByUUID(ctx context.Context, appointmentUUID uuid.UUID) (*Appointment, error) {
	ctx, cancel := d.dbConn.CreateContext(ctx)
	defer cancel()
	rows, err := d.dbConn.DB().QueryContext(ctx, findAppointmentByUUIDQuery, appointmentUUID)
	if err != nil {
		return nil, err
	}
	defer database.CloseRows(rows)
	appointment := new(Appointment)
	for rows.Next() {
		if err = database.TransformRow(rows, appointment); err != nil {
			return nil, err
		}
		if appointment.ID > 0 {
			return appointment, nil
		}
	}
	return nil, nil
}

func (d defaultRepository) SettleAppointment(ctx context.Context, appointmentUUID uuid.UUID, doctorID int64, status Status, clinicalNotes *string, attachedDocument *string) (*Appointment, error) {
	ctx, cancel := d.dbConn.CreateContext(ctx)
	defer cancel()
	rows, err := d.dbConn.DB().QueryContext(ctx, settleAppointmentQuery, appointmentUUID, doctorID, status, clinicalNotes, attachedDocument)
	if err != nil {
		return nil, err
	}
	defer database.CloseRows(rows)
	appointment := new(Appointment)
	for rows.Next() {
		if err = database.TransformRow(rows, appointment); err != nil {
			return nil, err
		}
		if appointment.ID > 0 {
			return appointment, nil
		}
	}
	return nil, nil
}

func (d defaultRepository) DeleteAppointment(ctx context.Context, appointmentUUID uuid.UUID, patientID int64) (*Appointment, error) {
	ctx, cancel := d.dbConn.CreateContext(ctx)
	defer cancel()
	rows, err := d.dbConn.DB().QueryContext(ctx, deleteAppointmentQuery, appointmentUUID, patientID)
	if err != nil {
		return nil, err
	}
	defer database.CloseRows(rows)
	appointment := new(Appointment)
	for rows.Next() {
		if err = database.TransformRow(rows, appointment); err != nil {
			return nil, err
		}
		if appointment.ID > 0 {
			return appointment, nil
		}
	}
	return nil, nil
}
