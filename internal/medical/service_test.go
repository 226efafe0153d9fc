package medical

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	svc, err := NewService(NewMemoryStore())
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func seedHospital(t *testing.T, svc *Service) *Hospital {
	t.Helper()
	h, err := svc.CreateHospital(context.Background(), Hospital{
		Name: "Central Clinic", Region: "Sughd", City: "Khujand",
		Address: "1 Lenin St", Phone: "+992-555-0101",
	})
	if err != nil {
		t.Fatalf("CreateHospital: %v", err)
	}
	return h
}

func seedPatient(t *testing.T, svc *Service) *Patient {
	t.Helper()
	p, err := svc.CreatePatient(context.Background(), Patient{
		FirstName: "Firuza", LastName: "Rahimova",
		BirthDate: time.Date(1990, 4, 12, 0, 0, 0, 0, time.UTC),
		Gender:    "female", PassportNumber: "A1234567",
		Phone: "+992-555-0102", Address: "5 Somoni Ave", Region: "Sughd",
		EmergencyContact: "Karim Rahimov", EmergencyPhone: "+992-555-0103",
	})
	if err != nil {
		t.Fatalf("CreatePatient: %v", err)
	}
	return p
}

func seedDoctor(t *testing.T, svc *Service, hospitalID int64) *Doctor {
	t.Helper()
	d, err := svc.CreateDoctor(context.Background(), Doctor{
		FirstName: "Jamshed", LastName: "Nazarov",
		BirthDate:      time.Date(1980, 1, 20, 0, 0, 0, 0, time.UTC),
		Specialization: "cardiology", LicenseNumber: "LIC-001",
		Qualification: "MD", ExperienceYears: 12,
		Phone: "+992-555-0104", Email: "j.nazarov@example.com",
		HospitalID: hospitalID,
	})
	if err != nil {
		t.Fatalf("CreateDoctor: %v", err)
	}
	return d
}

func seedAppointment(t *testing.T, svc *Service) (*Appointment, *Patient, *Doctor) {
	t.Helper()
	hospital := seedHospital(t, svc)
	patient := seedPatient(t, svc)
	doctor := seedDoctor(t, svc, hospital.ID)
	appt, err := svc.CreateAppointment(context.Background(), Appointment{
		PatientID: patient.ID, DoctorID: doctor.ID, HospitalID: hospital.ID,
		ScheduledAt: time.Now().Add(24 * time.Hour), Symptoms: "chest pain",
	})
	if err != nil {
		t.Fatalf("CreateAppointment: %v", err)
	}
	return appt, patient, doctor
}

func TestCreateHospitalDefaults(t *testing.T) {
	svc := newTestService(t)
	h := seedHospital(t, svc)
	if h.ID <= 0 {
		t.Fatalf("expected positive id, got %d", h.ID)
	}
	if h.Type != "public" {
		t.Fatalf("expected default type public, got %q", h.Type)
	}
	if !h.IsActive {
		t.Fatal("new hospital must be active")
	}
}

func TestCreateHospitalValidation(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.CreateHospital(context.Background(), Hospital{Name: "  "})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestCreatePatientValidation(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.CreatePatient(context.Background(), Patient{FirstName: "Firuza"})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestCreatePatientDuplicatePassport(t *testing.T) {
	svc := newTestService(t)
	seedPatient(t, svc)
	_, err := svc.CreatePatient(context.Background(), Patient{
		FirstName: "Other", LastName: "Person",
		BirthDate: time.Date(1985, 1, 1, 0, 0, 0, 0, time.UTC),
		Gender:    "male", PassportNumber: "A1234567",
		Phone: "+992-555-0199", Address: "x", Region: "Sughd",
		EmergencyContact: "c", EmergencyPhone: "p",
	})
	if !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestCreateDoctorUnknownHospital(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.CreateDoctor(context.Background(), Doctor{
		FirstName: "Jamshed", LastName: "Nazarov",
		Specialization: "cardiology", LicenseNumber: "LIC-001", Qualification: "MD",
		HospitalID: 999,
	})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for unknown hospital, got %v", err)
	}
}

func TestCreateAppointment(t *testing.T) {
	svc := newTestService(t)
	appt, patient, doctor := seedAppointment(t, svc)

	if appt.Status != StatusScheduled {
		t.Fatalf("expected scheduled, got %q", appt.Status)
	}

	byPatient, err := svc.ListAppointmentsByPatient(context.Background(), patient.ID)
	if err != nil || len(byPatient) != 1 {
		t.Fatalf("ListAppointmentsByPatient: %v, n=%d", err, len(byPatient))
	}
	byDoctor, err := svc.ListAppointmentsByDoctor(context.Background(), doctor.ID)
	if err != nil || len(byDoctor) != 1 {
		t.Fatalf("ListAppointmentsByDoctor: %v, n=%d", err, len(byDoctor))
	}
	all, err := svc.ListAppointments(context.Background())
	if err != nil || len(all) != 1 {
		t.Fatalf("ListAppointments: %v, n=%d", err, len(all))
	}
}

func TestCreateAppointmentRejectsPast(t *testing.T) {
	svc := newTestService(t)
	hospital := seedHospital(t, svc)
	patient := seedPatient(t, svc)
	doctor := seedDoctor(t, svc, hospital.ID)

	_, err := svc.CreateAppointment(context.Background(), Appointment{
		PatientID: patient.ID, DoctorID: doctor.ID, HospitalID: hospital.ID,
		ScheduledAt: time.Now().Add(-time.Hour),
	})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestCreateAppointmentUnknownPatient(t *testing.T) {
	svc := newTestService(t)
	hospital := seedHospital(t, svc)
	doctor := seedDoctor(t, svc, hospital.ID)

	_, err := svc.CreateAppointment(context.Background(), Appointment{
		PatientID: 999, DoctorID: doctor.ID, HospitalID: hospital.ID,
		ScheduledAt: time.Now().Add(time.Hour),
	})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestCreateDoctorScheduleValidation(t *testing.T) {
	svc := newTestService(t)
	hospital := seedHospital(t, svc)
	doctor := seedDoctor(t, svc, hospital.ID)

	cases := []struct {
		name string
		in   DoctorSchedule
	}{
		{"bad day", DoctorSchedule{DoctorID: doctor.ID, DayOfWeek: 7, StartTime: "09:00", EndTime: "17:00"}},
		{"bad start", DoctorSchedule{DoctorID: doctor.ID, DayOfWeek: 1, StartTime: "9am", EndTime: "17:00"}},
		{"inverted window", DoctorSchedule{DoctorID: doctor.ID, DayOfWeek: 1, StartTime: "17:00", EndTime: "09:00"}},
		{"unknown doctor", DoctorSchedule{DoctorID: 999, DayOfWeek: 1, StartTime: "09:00", EndTime: "17:00"}},
	}
	for _, tc := range cases {
		if _, err := svc.CreateDoctorSchedule(context.Background(), tc.in); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("%s: expected ErrInvalidInput, got %v", tc.name, err)
		}
	}

	ds, err := svc.CreateDoctorSchedule(context.Background(), DoctorSchedule{
		DoctorID: doctor.ID, DayOfWeek: 1, StartTime: "09:00", EndTime: "12:00",
	})
	if err != nil {
		t.Fatalf("CreateDoctorSchedule: %v", err)
	}
	if ds.SlotDuration != 30 || !ds.IsActive {
		t.Fatalf("unexpected defaults: %+v", ds)
	}

	listed, err := svc.ListSchedulesByDoctor(context.Background(), doctor.ID)
	if err != nil || len(listed) != 1 {
		t.Fatalf("ListSchedulesByDoctor: %v, n=%d", err, len(listed))
	}
}

func TestScheduleGovernsBooking(t *testing.T) {
	svc := newTestService(t)
	hospital := seedHospital(t, svc)
	patient := seedPatient(t, svc)
	doctor := seedDoctor(t, svc, hospital.ID)

	day := time.Now().UTC().AddDate(0, 0, 7)
	if _, err := svc.CreateDoctorSchedule(context.Background(), DoctorSchedule{
		DoctorID:  doctor.ID,
		DayOfWeek: int(day.Weekday()),
		StartTime: "09:00",
		EndTime:   "12:00",
	}); err != nil {
		t.Fatalf("CreateDoctorSchedule: %v", err)
	}

	inside := time.Date(day.Year(), day.Month(), day.Day(), 10, 0, 0, 0, time.UTC)
	appt, err := svc.CreateAppointment(context.Background(), Appointment{
		PatientID: patient.ID, DoctorID: doctor.ID, HospitalID: hospital.ID,
		ScheduledAt: inside,
	})
	if err != nil {
		t.Fatalf("booking inside working hours: %v", err)
	}
	if appt.Status != StatusScheduled {
		t.Fatalf("expected scheduled, got %q", appt.Status)
	}

	outside := time.Date(day.Year(), day.Month(), day.Day(), 15, 0, 0, 0, time.UTC)
	if _, err := svc.CreateAppointment(context.Background(), Appointment{
		PatientID: patient.ID, DoctorID: doctor.ID, HospitalID: hospital.ID,
		ScheduledAt: outside,
	}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput outside working hours, got %v", err)
	}

	wrongDay := inside.AddDate(0, 0, 1)
	if _, err := svc.CreateAppointment(context.Background(), Appointment{
		PatientID: patient.ID, DoctorID: doctor.ID, HospitalID: hospital.ID,
		ScheduledAt: wrongDay,
	}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput on an off day, got %v", err)
	}
}

func TestAppointmentStatusTransitions(t *testing.T) {
	svc := newTestService(t)
	appt, _, _ := seedAppointment(t, svc)
	ctx := context.Background()

	if _, err := svc.UpdateAppointmentStatus(ctx, appt.ID, "bogus"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for unknown status, got %v", err)
	}

	updated, err := svc.UpdateAppointmentStatus(ctx, appt.ID, StatusCompleted)
	if err != nil {
		t.Fatalf("UpdateAppointmentStatus: %v", err)
	}
	if updated.Status != StatusCompleted {
		t.Fatalf("expected completed, got %q", updated.Status)
	}

	// Terminal appointments cannot change again.
	if _, err := svc.UpdateAppointmentStatus(ctx, appt.ID, StatusCancelled); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for terminal transition, got %v", err)
	}
	// Re-applying the same terminal status is allowed.
	if _, err := svc.UpdateAppointmentStatus(ctx, appt.ID, StatusCompleted); err != nil {
		t.Fatalf("idempotent status update: %v", err)
	}

	if _, err := svc.UpdateAppointmentStatus(ctx, 999, StatusCancelled); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPrescriptions(t *testing.T) {
	svc := newTestService(t)
	appt, _, _ := seedAppointment(t, svc)
	ctx := context.Background()

	p, err := svc.CreatePrescription(ctx, Prescription{
		AppointmentID: appt.ID,
		MedicineName:  "Amlodipine", Dosage: "5mg", Frequency: "once daily", Duration: "30 days",
	})
	if err != nil {
		t.Fatalf("CreatePrescription: %v", err)
	}
	if p.PrescribedAt.IsZero() {
		t.Fatal("prescribed date must default to now")
	}

	if _, err := svc.CreatePrescription(ctx, Prescription{
		AppointmentID: 999, MedicineName: "x", Dosage: "x", Frequency: "x", Duration: "x",
	}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for unknown appointment, got %v", err)
	}

	list, err := svc.ListPrescriptionsByAppointment(ctx, appt.ID)
	if err != nil {
		t.Fatalf("ListPrescriptionsByAppointment: %v", err)
	}
	if len(list) != 1 || list[0].MedicineName != "Amlodipine" {
		t.Fatalf("unexpected prescriptions: %+v", list)
	}
}
