package medical

import "context"

// Store persists the clinical records. Implementations map storage
// failures to the package sentinel errors.
type Store interface {
	CreateHospital(ctx context.Context, h *Hospital) error
	GetHospital(ctx context.Context, id int64) (*Hospital, error)
	ListHospitals(ctx context.Context) ([]Hospital, error)

	CreatePatient(ctx context.Context, p *Patient) error
	GetPatient(ctx context.Context, id int64) (*Patient, error)
	ListPatients(ctx context.Context) ([]Patient, error)

	CreateDoctor(ctx context.Context, d *Doctor) error
	GetDoctor(ctx context.Context, id int64) (*Doctor, error)
	ListDoctors(ctx context.Context) ([]Doctor, error)
	CreateDoctorSchedule(ctx context.Context, ds *DoctorSchedule) error
	ListSchedulesByDoctor(ctx context.Context, doctorID int64) ([]DoctorSchedule, error)

	CreateAppointment(ctx context.Context, a *Appointment) error
	GetAppointment(ctx context.Context, id int64) (*Appointment, error)
	ListAppointments(ctx context.Context) ([]Appointment, error)
	ListAppointmentsByPatient(ctx context.Context, patientID int64) ([]Appointment, error)
	ListAppointmentsByDoctor(ctx context.Context, doctorID int64) ([]Appointment, error)
	UpdateAppointmentStatus(ctx context.Context, id int64, status string) error

	CreatePrescription(ctx context.Context, p *Prescription) error
	ListPrescriptionsByAppointment(ctx context.Context, appointmentID int64) ([]Prescription, error)
}
