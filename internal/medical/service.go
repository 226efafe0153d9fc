package medical

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Service validates clinical records before they reach storage. Like
// the auth gateway it never logs; failures are typed errors for the
// boundary layer.
type Service struct {
	store Store
}

func NewService(store Store) (*Service, error) {
	if store == nil {
		return nil, errors.New("medical: store is required")
	}
	return &Service{store: store}, nil
}

func (s *Service) CreateHospital(ctx context.Context, h Hospital) (*Hospital, error) {
	h.Name = strings.TrimSpace(h.Name)
	if h.Name == "" {
		return nil, fmt.Errorf("%w: hospital name is required", ErrInvalidInput)
	}
	if h.Region == "" || h.City == "" || h.Address == "" || h.Phone == "" {
		return nil, fmt.Errorf("%w: region, city, address and phone are required", ErrInvalidInput)
	}
	if h.Type == "" {
		h.Type = "public"
	}
	h.IsActive = true
	if err := s.store.CreateHospital(ctx, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

func (s *Service) GetHospital(ctx context.Context, id int64) (*Hospital, error) {
	return s.store.GetHospital(ctx, id)
}

func (s *Service) ListHospitals(ctx context.Context) ([]Hospital, error) {
	return s.store.ListHospitals(ctx)
}

func (s *Service) CreatePatient(ctx context.Context, p Patient) (*Patient, error) {
	if strings.TrimSpace(p.FirstName) == "" || strings.TrimSpace(p.LastName) == "" {
		return nil, fmt.Errorf("%w: first and last name are required", ErrInvalidInput)
	}
	if p.BirthDate.IsZero() {
		return nil, fmt.Errorf("%w: birth date is required", ErrInvalidInput)
	}
	if p.PassportNumber == "" {
		return nil, fmt.Errorf("%w: passport number is required", ErrInvalidInput)
	}
	if p.Gender == "" || p.Phone == "" || p.Address == "" || p.Region == "" {
		return nil, fmt.Errorf("%w: gender, phone, address and region are required", ErrInvalidInput)
	}
	if p.EmergencyContact == "" || p.EmergencyPhone == "" {
		return nil, fmt.Errorf("%w: emergency contact details are required", ErrInvalidInput)
	}
	if err := s.store.CreatePatient(ctx, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Service) GetPatient(ctx context.Context, id int64) (*Patient, error) {
	return s.store.GetPatient(ctx, id)
}

func (s *Service) ListPatients(ctx context.Context) ([]Patient, error) {
	return s.store.ListPatients(ctx)
}

func (s *Service) CreateDoctor(ctx context.Context, d Doctor) (*Doctor, error) {
	if strings.TrimSpace(d.FirstName) == "" || strings.TrimSpace(d.LastName) == "" {
		return nil, fmt.Errorf("%w: first and last name are required", ErrInvalidInput)
	}
	if d.Specialization == "" || d.LicenseNumber == "" || d.Qualification == "" {
		return nil, fmt.Errorf("%w: specialization, license number and qualification are required", ErrInvalidInput)
	}
	if d.ExperienceYears < 0 {
		return nil, fmt.Errorf("%w: experience years cannot be negative", ErrInvalidInput)
	}
	if d.HospitalID != 0 {
		if _, err := s.store.GetHospital(ctx, d.HospitalID); err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil, fmt.Errorf("%w: hospital %d does not exist", ErrInvalidInput, d.HospitalID)
			}
			return nil, err
		}
	}
	d.IsAvailable = true
	if err := s.store.CreateDoctor(ctx, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *Service) GetDoctor(ctx context.Context, id int64) (*Doctor, error) {
	return s.store.GetDoctor(ctx, id)
}

func (s *Service) ListDoctors(ctx context.Context) ([]Doctor, error) {
	return s.store.ListDoctors(ctx)
}

// CreateAppointment books a visit. Patient, doctor and hospital must
// all exist; the slot must be in the future at booking time.
const defaultSlotMinutes = 30

// CreateDoctorSchedule records a recurring working window. Windows may
// overlap; booking only cares whether any active window covers the
// requested time.
func (s *Service) CreateDoctorSchedule(ctx context.Context, ds DoctorSchedule) (*DoctorSchedule, error) {
	if ds.DayOfWeek < 0 || ds.DayOfWeek > 6 {
		return nil, fmt.Errorf("%w: day of week must be 0 through 6", ErrInvalidInput)
	}
	if _, err := time.Parse("15:04", ds.StartTime); err != nil {
		return nil, fmt.Errorf("%w: start time must be HH:MM", ErrInvalidInput)
	}
	if _, err := time.Parse("15:04", ds.EndTime); err != nil {
		return nil, fmt.Errorf("%w: end time must be HH:MM", ErrInvalidInput)
	}
	if ds.StartTime >= ds.EndTime {
		return nil, fmt.Errorf("%w: start time must precede end time", ErrInvalidInput)
	}
	if ds.SlotDuration < 0 {
		return nil, fmt.Errorf("%w: slot duration cannot be negative", ErrInvalidInput)
	}
	if ds.SlotDuration == 0 {
		ds.SlotDuration = defaultSlotMinutes
	}
	if _, err := s.store.GetDoctor(ctx, ds.DoctorID); err != nil {
		return nil, referencedRecord(err, "doctor", ds.DoctorID)
	}
	ds.IsActive = true
	if err := s.store.CreateDoctorSchedule(ctx, &ds); err != nil {
		return nil, err
	}
	return &ds, nil
}

func (s *Service) ListSchedulesByDoctor(ctx context.Context, doctorID int64) ([]DoctorSchedule, error) {
	return s.store.ListSchedulesByDoctor(ctx, doctorID)
}

func (s *Service) CreateAppointment(ctx context.Context, a Appointment) (*Appointment, error) {
	if a.PatientID <= 0 || a.DoctorID <= 0 || a.HospitalID <= 0 {
		return nil, fmt.Errorf("%w: patient, doctor and hospital ids are required", ErrInvalidInput)
	}
	if a.ScheduledAt.IsZero() {
		return nil, fmt.Errorf("%w: scheduled time is required", ErrInvalidInput)
	}
	if a.ScheduledAt.Before(time.Now()) {
		return nil, fmt.Errorf("%w: scheduled time is in the past", ErrInvalidInput)
	}
	if _, err := s.store.GetPatient(ctx, a.PatientID); err != nil {
		return nil, referencedRecord(err, "patient", a.PatientID)
	}
	if _, err := s.store.GetDoctor(ctx, a.DoctorID); err != nil {
		return nil, referencedRecord(err, "doctor", a.DoctorID)
	}
	if _, err := s.store.GetHospital(ctx, a.HospitalID); err != nil {
		return nil, referencedRecord(err, "hospital", a.HospitalID)
	}
	schedules, err := s.store.ListSchedulesByDoctor(ctx, a.DoctorID)
	if err != nil {
		return nil, err
	}
	if !withinWorkingHours(schedules, a.ScheduledAt) {
		return nil, fmt.Errorf("%w: outside the doctor's working hours", ErrInvalidInput)
	}
	a.Status = StatusScheduled
	if err := s.store.CreateAppointment(ctx, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *Service) GetAppointment(ctx context.Context, id int64) (*Appointment, error) {
	return s.store.GetAppointment(ctx, id)
}

func (s *Service) ListAppointments(ctx context.Context) ([]Appointment, error) {
	return s.store.ListAppointments(ctx)
}

func (s *Service) ListAppointmentsByPatient(ctx context.Context, patientID int64) ([]Appointment, error) {
	return s.store.ListAppointmentsByPatient(ctx, patientID)
}

func (s *Service) ListAppointmentsByDoctor(ctx context.Context, doctorID int64) ([]Appointment, error) {
	return s.store.ListAppointmentsByDoctor(ctx, doctorID)
}

// UpdateAppointmentStatus moves an appointment out of the scheduled
// state. Terminal appointments stay terminal.
func (s *Service) UpdateAppointmentStatus(ctx context.Context, id int64, status string) (*Appointment, error) {
	if status != StatusScheduled && status != StatusCompleted && status != StatusCancelled {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
	}
	current, err := s.store.GetAppointment(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status != StatusScheduled && current.Status != status {
		return nil, fmt.Errorf("%w: appointment is already %s", ErrInvalidInput, current.Status)
	}
	if err := s.store.UpdateAppointmentStatus(ctx, id, status); err != nil {
		return nil, err
	}
	current.Status = status
	return current, nil
}

// CreatePrescription attaches medication to an existing appointment.
func (s *Service) CreatePrescription(ctx context.Context, p Prescription) (*Prescription, error) {
	if p.AppointmentID <= 0 {
		return nil, fmt.Errorf("%w: appointment id is required", ErrInvalidInput)
	}
	if p.MedicineName == "" || p.Dosage == "" || p.Frequency == "" || p.Duration == "" {
		return nil, fmt.Errorf("%w: medicine name, dosage, frequency and duration are required", ErrInvalidInput)
	}
	if _, err := s.store.GetAppointment(ctx, p.AppointmentID); err != nil {
		return nil, referencedRecord(err, "appointment", p.AppointmentID)
	}
	if p.PrescribedAt.IsZero() {
		p.PrescribedAt = time.Now().UTC()
	}
	if err := s.store.CreatePrescription(ctx, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Service) ListPrescriptionsByAppointment(ctx context.Context, appointmentID int64) ([]Prescription, error) {
	return s.store.ListPrescriptionsByAppointment(ctx, appointmentID)
}

// withinWorkingHours reports whether t falls inside an active schedule
// window. A doctor with no active windows accepts any time.
func withinWorkingHours(schedules []DoctorSchedule, t time.Time) bool {
	hasActive := false
	day := int(t.Weekday())
	clock := t.Format("15:04")
	for _, ds := range schedules {
		if !ds.IsActive {
			continue
		}
		hasActive = true
		if ds.DayOfWeek == day && ds.StartTime <= clock && clock < ds.EndTime {
			return true
		}
	}
	return !hasActive
}

// referencedRecord downgrades a missing referenced row to invalid
// input: the caller named an id that does not exist.
func referencedRecord(err error, kind string, id int64) error {
	if errors.Is(err, ErrNotFound) {
		return fmt.Errorf("%w: %s %d does not exist", ErrInvalidInput, kind, id)
	}
	return err
}
