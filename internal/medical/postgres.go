package medical

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pgErrUniqueViolation     = "23505"
	pgErrForeignKeyViolation = "23503"
)

var _ Store = (*PGStore)(nil)

// PGStore implements Store using PostgreSQL.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) CreateHospital(ctx context.Context, h *Hospital) error {
	row := s.db.QueryRowContext(ctx, `
		insert into hospitals (name, region, city, address, phone, email, hospital_type, latitude, longitude, is_active)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		returning id, created_at
	`, h.Name, h.Region, h.City, h.Address, h.Phone, nullIfEmpty(h.Email), h.Type, h.Latitude, h.Longitude, h.IsActive)
	return translateErr(row.Scan(&h.ID, &h.CreatedAt))
}

func (s *PGStore) GetHospital(ctx context.Context, id int64) (*Hospital, error) {
	var h Hospital
	err := s.db.QueryRowContext(ctx, `
		select id, name, region, city, address, phone, coalesce(email, ''), hospital_type,
		       latitude, longitude, is_active, created_at
		from hospitals where id = $1
	`, id).Scan(&h.ID, &h.Name, &h.Region, &h.City, &h.Address, &h.Phone, &h.Email, &h.Type,
		&h.Latitude, &h.Longitude, &h.IsActive, &h.CreatedAt)
	if err != nil {
		return nil, translateErr(err)
	}
	return &h, nil
}

func (s *PGStore) ListHospitals(ctx context.Context) ([]Hospital, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, name, region, city, address, phone, coalesce(email, ''), hospital_type,
		       latitude, longitude, is_active, created_at
		from hospitals order by name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Hospital
	for rows.Next() {
		var h Hospital
		if err := rows.Scan(&h.ID, &h.Name, &h.Region, &h.City, &h.Address, &h.Phone, &h.Email, &h.Type,
			&h.Latitude, &h.Longitude, &h.IsActive, &h.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func (s *PGStore) CreatePatient(ctx context.Context, p *Patient) error {
	row := s.db.QueryRowContext(ctx, `
		insert into patients (user_id, first_name, last_name, middle_name, birth_date, gender,
		                      passport_number, phone, address, region, blood_type, allergies,
		                      chronic_diseases, emergency_contact, emergency_phone)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		returning id, created_at
	`, nullIfZero(p.UserID), p.FirstName, p.LastName, nullIfEmpty(p.MiddleName), p.BirthDate, p.Gender,
		p.PassportNumber, p.Phone, p.Address, p.Region, nullIfEmpty(p.BloodType), nullIfEmpty(p.Allergies),
		nullIfEmpty(p.ChronicDiseases), p.EmergencyContact, p.EmergencyPhone)
	return translateErr(row.Scan(&p.ID, &p.CreatedAt))
}

const patientColumns = `
	id, coalesce(user_id, 0), first_name, last_name, coalesce(middle_name, ''), birth_date, gender,
	passport_number, phone, address, region, coalesce(blood_type, ''), coalesce(allergies, ''),
	coalesce(chronic_diseases, ''), emergency_contact, emergency_phone, created_at
`

func scanPatient(row interface{ Scan(...any) error }, p *Patient) error {
	return row.Scan(&p.ID, &p.UserID, &p.FirstName, &p.LastName, &p.MiddleName, &p.BirthDate, &p.Gender,
		&p.PassportNumber, &p.Phone, &p.Address, &p.Region, &p.BloodType, &p.Allergies,
		&p.ChronicDiseases, &p.EmergencyContact, &p.EmergencyPhone, &p.CreatedAt)
}

func (s *PGStore) GetPatient(ctx context.Context, id int64) (*Patient, error) {
	var p Patient
	row := s.db.QueryRowContext(ctx, `select `+patientColumns+` from patients where id = $1`, id)
	if err := scanPatient(row, &p); err != nil {
		return nil, translateErr(err)
	}
	return &p, nil
}

func (s *PGStore) ListPatients(ctx context.Context) ([]Patient, error) {
	rows, err := s.db.QueryContext(ctx, `select `+patientColumns+` from patients order by last_name, first_name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Patient
	for rows.Next() {
		var p Patient
		if err := scanPatient(rows, &p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *PGStore) CreateDoctor(ctx context.Context, d *Doctor) error {
	row := s.db.QueryRowContext(ctx, `
		insert into doctors (user_id, first_name, last_name, middle_name, birth_date, specialization,
		                     license_number, qualification, experience_years, phone, email,
		                     hospital_id, consultation_fee, is_available)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		returning id, created_at
	`, nullIfZero(d.UserID), d.FirstName, d.LastName, nullIfEmpty(d.MiddleName), d.BirthDate, d.Specialization,
		d.LicenseNumber, d.Qualification, d.ExperienceYears, d.Phone, d.Email,
		nullIfZero(d.HospitalID), d.ConsultationFee, d.IsAvailable)
	return translateErr(row.Scan(&d.ID, &d.CreatedAt))
}

const doctorColumns = `
	id, coalesce(user_id, 0), first_name, last_name, coalesce(middle_name, ''), birth_date, specialization,
	license_number, qualification, experience_years, phone, email, coalesce(hospital_id, 0),
	consultation_fee, is_available, created_at
`

func scanDoctor(row interface{ Scan(...any) error }, d *Doctor) error {
	return row.Scan(&d.ID, &d.UserID, &d.FirstName, &d.LastName, &d.MiddleName, &d.BirthDate, &d.Specialization,
		&d.LicenseNumber, &d.Qualification, &d.ExperienceYears, &d.Phone, &d.Email, &d.HospitalID,
		&d.ConsultationFee, &d.IsAvailable, &d.CreatedAt)
}

func (s *PGStore) GetDoctor(ctx context.Context, id int64) (*Doctor, error) {
	var d Doctor
	row := s.db.QueryRowContext(ctx, `select `+doctorColumns+` from doctors where id = $1`, id)
	if err := scanDoctor(row, &d); err != nil {
		return nil, translateErr(err)
	}
	return &d, nil
}

func (s *PGStore) ListDoctors(ctx context.Context) ([]Doctor, error) {
	rows, err := s.db.QueryContext(ctx, `select `+doctorColumns+` from doctors order by last_name, first_name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Doctor
	for rows.Next() {
		var d Doctor
		if err := scanDoctor(rows, &d); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *PGStore) CreateDoctorSchedule(ctx context.Context, ds *DoctorSchedule) error {
	row := s.db.QueryRowContext(ctx, `
		insert into doctor_schedules (doctor_id, day_of_week, start_time, end_time, slot_duration, is_active)
		values ($1, $2, $3, $4, $5, $6)
		returning id
	`, ds.DoctorID, ds.DayOfWeek, ds.StartTime, ds.EndTime, ds.SlotDuration, ds.IsActive)
	return translateErr(row.Scan(&ds.ID))
}

func (s *PGStore) ListSchedulesByDoctor(ctx context.Context, doctorID int64) ([]DoctorSchedule, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, doctor_id, day_of_week, start_time, end_time, slot_duration, is_active
		from doctor_schedules where doctor_id = $1 order by day_of_week, start_time
	`, doctorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DoctorSchedule
	for rows.Next() {
		var ds DoctorSchedule
		if err := rows.Scan(&ds.ID, &ds.DoctorID, &ds.DayOfWeek, &ds.StartTime, &ds.EndTime,
			&ds.SlotDuration, &ds.IsActive); err != nil {
			return nil, err
		}
		out = append(out, ds)
	}
	return out, rows.Err()
}

func (s *PGStore) CreateAppointment(ctx context.Context, a *Appointment) error {
	row := s.db.QueryRowContext(ctx, `
		insert into appointments (patient_id, doctor_id, hospital_id, scheduled_at, status, symptoms, notes)
		values ($1, $2, $3, $4, $5, $6, $7)
		returning id, created_at
	`, a.PatientID, a.DoctorID, a.HospitalID, a.ScheduledAt, a.Status, nullIfEmpty(a.Symptoms), nullIfEmpty(a.Notes))
	return translateErr(row.Scan(&a.ID, &a.CreatedAt))
}

const appointmentColumns = `
	id, patient_id, doctor_id, hospital_id, scheduled_at, status,
	coalesce(symptoms, ''), coalesce(notes, ''), created_at
`

func scanAppointment(row interface{ Scan(...any) error }, a *Appointment) error {
	return row.Scan(&a.ID, &a.PatientID, &a.DoctorID, &a.HospitalID, &a.ScheduledAt, &a.Status,
		&a.Symptoms, &a.Notes, &a.CreatedAt)
}

func (s *PGStore) GetAppointment(ctx context.Context, id int64) (*Appointment, error) {
	var a Appointment
	row := s.db.QueryRowContext(ctx, `select `+appointmentColumns+` from appointments where id = $1`, id)
	if err := scanAppointment(row, &a); err != nil {
		return nil, translateErr(err)
	}
	return &a, nil
}

func (s *PGStore) ListAppointmentsByPatient(ctx context.Context, patientID int64) ([]Appointment, error) {
	return s.listAppointments(ctx, `select `+appointmentColumns+` from appointments where patient_id = $1 order by scheduled_at`, patientID)
}

func (s *PGStore) ListAppointments(ctx context.Context) ([]Appointment, error) {
	return s.listAppointments(ctx, `select `+appointmentColumns+` from appointments order by scheduled_at`)
}

func (s *PGStore) ListAppointmentsByDoctor(ctx context.Context, doctorID int64) ([]Appointment, error) {
	return s.listAppointments(ctx, `select `+appointmentColumns+` from appointments where doctor_id = $1 order by scheduled_at`, doctorID)
}

func (s *PGStore) listAppointments(ctx context.Context, query string, args ...any) ([]Appointment, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Appointment
	for rows.Next() {
		var a Appointment
		if err := scanAppointment(rows, &a); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *PGStore) UpdateAppointmentStatus(ctx context.Context, id int64, status string) error {
	res, err := s.db.ExecContext(ctx,
		`update appointments set status = $1 where id = $2`, status, id)
	if err != nil {
		return err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if aff == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGStore) CreatePrescription(ctx context.Context, p *Prescription) error {
	row := s.db.QueryRowContext(ctx, `
		insert into prescriptions (appointment_id, medicine_name, dosage, frequency, duration, instructions, prescribed_at)
		values ($1, $2, $3, $4, $5, $6, $7)
		returning id
	`, p.AppointmentID, p.MedicineName, p.Dosage, p.Frequency, p.Duration, nullIfEmpty(p.Instructions), p.PrescribedAt)
	return translateErr(row.Scan(&p.ID))
}

func (s *PGStore) ListPrescriptionsByAppointment(ctx context.Context, appointmentID int64) ([]Prescription, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, appointment_id, medicine_name, dosage, frequency, duration, coalesce(instructions, ''), prescribed_at
		from prescriptions where appointment_id = $1 order by prescribed_at
	`, appointmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Prescription
	for rows.Next() {
		var p Prescription
		if err := rows.Scan(&p.ID, &p.AppointmentID, &p.MedicineName, &p.Dosage, &p.Frequency,
			&p.Duration, &p.Instructions, &p.PrescribedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// translateErr maps driver-level failures to package sentinels.
func translateErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgErrUniqueViolation:
			return ErrAlreadyExists
		case pgErrForeignKeyViolation:
			return ErrNotFound
		}
	}
	return err
}

func nullIfEmpty(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullIfZero(id int64) sql.NullInt64 {
	if id == 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: id, Valid: true}
}
