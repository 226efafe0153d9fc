package medical

import "time"

// Hospital is a registered care facility. Latitude and longitude are
// zero when the facility has no recorded coordinates.
type Hospital struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Region    string    `json:"region"`
	City      string    `json:"city"`
	Address   string    `json:"address"`
	Phone     string    `json:"phone"`
	Email     string    `json:"email,omitempty"`
	Type      string    `json:"hospital_type"`
	Latitude  float64   `json:"latitude,omitempty"`
	Longitude float64   `json:"longitude,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// Patient is a person receiving care. UserID links the record to a
// login account and is zero for walk-in patients without one.
type Patient struct {
	ID               int64     `json:"id"`
	UserID           int64     `json:"user_id,omitempty"`
	FirstName        string    `json:"first_name"`
	LastName         string    `json:"last_name"`
	MiddleName       string    `json:"middle_name,omitempty"`
	BirthDate        time.Time `json:"birth_date"`
	Gender           string    `json:"gender"`
	PassportNumber   string    `json:"passport_number"`
	Phone            string    `json:"phone"`
	Address          string    `json:"address"`
	Region           string    `json:"region"`
	BloodType        string    `json:"blood_type,omitempty"`
	Allergies        string    `json:"allergies,omitempty"`
	ChronicDiseases  string    `json:"chronic_diseases,omitempty"`
	EmergencyContact string    `json:"emergency_contact"`
	EmergencyPhone   string    `json:"emergency_phone"`
	CreatedAt        time.Time `json:"created_at"`
}

// Doctor is a practitioner attached to at most one hospital.
type Doctor struct {
	ID              int64     `json:"id"`
	UserID          int64     `json:"user_id,omitempty"`
	FirstName       string    `json:"first_name"`
	LastName        string    `json:"last_name"`
	MiddleName      string    `json:"middle_name,omitempty"`
	BirthDate       time.Time `json:"birth_date"`
	Specialization  string    `json:"specialization"`
	LicenseNumber   string    `json:"license_number"`
	Qualification   string    `json:"qualification"`
	ExperienceYears int       `json:"experience_years"`
	Phone           string    `json:"phone"`
	Email           string    `json:"email"`
	HospitalID      int64     `json:"hospital_id,omitempty"`
	ConsultationFee float64   `json:"consultation_fee,omitempty"`
	IsAvailable     bool      `json:"is_available"`
	CreatedAt       time.Time `json:"created_at"`
}

// DoctorSchedule is a recurring weekly working window for a doctor.
// DayOfWeek follows time.Weekday numbering (0 = Sunday). Times are
// zero-padded "HH:MM" strings, so lexical order is chronological
// order.
type DoctorSchedule struct {
	ID           int64  `json:"id"`
	DoctorID     int64  `json:"doctor_id"`
	DayOfWeek    int    `json:"day_of_week"`
	StartTime    string `json:"start_time"`
	EndTime      string `json:"end_time"`
	SlotDuration int    `json:"slot_duration_minutes"`
	IsActive     bool   `json:"is_active"`
}

// Appointment statuses. An appointment starts scheduled and moves to
// exactly one terminal status.
const (
	StatusScheduled = "scheduled"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// Appointment books a patient with a doctor at a hospital.
type Appointment struct {
	ID          int64     `json:"id"`
	PatientID   int64     `json:"patient_id"`
	DoctorID    int64     `json:"doctor_id"`
	HospitalID  int64     `json:"hospital_id"`
	ScheduledAt time.Time `json:"scheduled_at"`
	Status      string    `json:"status"`
	Symptoms    string    `json:"symptoms,omitempty"`
	Notes       string    `json:"notes,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Prescription is medication prescribed during an appointment.
type Prescription struct {
	ID            int64     `json:"id"`
	AppointmentID int64     `json:"appointment_id"`
	MedicineName  string    `json:"medicine_name"`
	Dosage        string    `json:"dosage"`
	Frequency     string    `json:"frequency"`
	Duration      string    `json:"duration"`
	Instructions  string    `json:"instructions,omitempty"`
	PrescribedAt  time.Time `json:"prescribed_at"`
}
