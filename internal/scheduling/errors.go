package scheduling

const (
	ErrDoctorNotFound       = "doctor not found"
	ErrAppointmentNotFound  = "appointment not found"
	ErrAvailabilityNotFound = "availability not found"
	ErrSlotOutsideWindow    = "doctor not available at this time"
	ErrSlotAlreadyBooked    = "time slot already booked"
	ErrAppointmentClosed    = "appointment already completed or cancelled"
	ErrInvalidDateReference = "invalid date reference"
	ErrInvalidIdentifier    = "invalid identifier"
	ErrOnlyDoctorCanManage  = "only a doctor can manage its schedule"
	ErrOnlyPatientCanBook   = "only a patient can book an appointment"
)
