package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"clinic.tj/internal/audit"
	"clinic.tj/internal/auth"
	"clinic.tj/internal/medical"
)

type createHospitalRequest struct {
	Name      string  `json:"name"`
	Region    string  `json:"region"`
	City      string  `json:"city"`
	Address   string  `json:"address"`
	Phone     string  `json:"phone"`
	Email     string  `json:"email"`
	Type      string  `json:"hospital_type"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type createPatientRequest struct {
	UserID           int64     `json:"user_id"`
	FirstName        string    `json:"first_name"`
	LastName         string    `json:"last_name"`
	MiddleName       string    `json:"middle_name"`
	BirthDate        time.Time `json:"birth_date"`
	Gender           string    `json:"gender"`
	PassportNumber   string    `json:"passport_number"`
	Phone            string    `json:"phone"`
	Address          string    `json:"address"`
	Region           string    `json:"region"`
	BloodType        string    `json:"blood_type"`
	Allergies        string    `json:"allergies"`
	ChronicDiseases  string    `json:"chronic_diseases"`
	EmergencyContact string    `json:"emergency_contact"`
	EmergencyPhone   string    `json:"emergency_phone"`
}

type createDoctorRequest struct {
	UserID          int64     `json:"user_id"`
	FirstName       string    `json:"first_name"`
	LastName        string    `json:"last_name"`
	MiddleName      string    `json:"middle_name"`
	BirthDate       time.Time `json:"birth_date"`
	Specialization  string    `json:"specialization"`
	LicenseNumber   string    `json:"license_number"`
	Qualification   string    `json:"qualification"`
	ExperienceYears int       `json:"experience_years"`
	Phone           string    `json:"phone"`
	Email           string    `json:"email"`
	HospitalID      int64     `json:"hospital_id"`
	ConsultationFee float64   `json:"consultation_fee"`
}

type createDoctorScheduleRequest struct {
	DayOfWeek    int    `json:"day_of_week"`
	StartTime    string `json:"start_time"`
	EndTime      string `json:"end_time"`
	SlotDuration int    `json:"slot_duration_minutes"`
}

type createAppointmentRequest struct {
	PatientID   int64     `json:"patient_id"`
	DoctorID    int64     `json:"doctor_id"`
	HospitalID  int64     `json:"hospital_id"`
	ScheduledAt time.Time `json:"scheduled_at"`
	Symptoms    string    `json:"symptoms"`
	Notes       string    `json:"notes"`
}

type updateAppointmentStatusRequest struct {
	Status string `json:"status"`
}

type createPrescriptionRequest struct {
	MedicineName string `json:"medicine_name"`
	Dosage       string `json:"dosage"`
	Frequency    string `json:"frequency"`
	Duration     string `json:"duration"`
	Instructions string `json:"instructions"`
}

func (a *API) handleHospitals(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if !a.ensurePermission(w, r, auth.PermViewRecords) {
			return
		}
		hospitals, err := a.medical.ListHospitals(r.Context())
		if err != nil {
			handleMedicalError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"hospitals": hospitals})
	case http.MethodPost:
		if !a.ensurePermission(w, r, auth.PermManageHospitals) {
			return
		}
		var req createHospitalRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		hospital, err := a.medical.CreateHospital(r.Context(), medical.Hospital{
			Name: req.Name, Region: req.Region, City: req.City, Address: req.Address,
			Phone: req.Phone, Email: req.Email, Type: req.Type,
			Latitude: req.Latitude, Longitude: req.Longitude,
		})
		if err != nil {
			handleMedicalError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "medical.hospital.create", map[string]any{
			"hospital_id": hospital.ID,
			"name":        hospital.Name,
		})
		w.Header().Set("Location", fmt.Sprintf("/v1/hospitals/%d", hospital.ID))
		writeJSON(w, http.StatusCreated, hospital)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleHospitalResource(w http.ResponseWriter, r *http.Request) {
	parts := splitResourcePath(r.URL.Path, "/v1/hospitals/")
	if len(parts) != 1 {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	id, err := parseID(parts[0])
	if err != nil {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if !a.ensurePermission(w, r, auth.PermViewRecords) {
		return
	}
	hospital, err := a.medical.GetHospital(r.Context(), id)
	if err != nil {
		handleMedicalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, hospital)
}

func (a *API) handlePatients(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if !a.ensurePermission(w, r, auth.PermViewRecords) {
			return
		}
		patients, err := a.medical.ListPatients(r.Context())
		if err != nil {
			handleMedicalError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"patients": patients})
	case http.MethodPost:
		if !a.ensurePermission(w, r, auth.PermManagePatients) {
			return
		}
		var req createPatientRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		patient, err := a.medical.CreatePatient(r.Context(), medical.Patient{
			UserID: req.UserID, FirstName: req.FirstName, LastName: req.LastName,
			MiddleName: req.MiddleName, BirthDate: req.BirthDate, Gender: req.Gender,
			PassportNumber: req.PassportNumber, Phone: req.Phone, Address: req.Address,
			Region: req.Region, BloodType: req.BloodType, Allergies: req.Allergies,
			ChronicDiseases: req.ChronicDiseases, EmergencyContact: req.EmergencyContact,
			EmergencyPhone: req.EmergencyPhone,
		})
		if err != nil {
			handleMedicalError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "medical.patient.create", map[string]any{
			"patient_id": patient.ID,
		})
		w.Header().Set("Location", fmt.Sprintf("/v1/patients/%d", patient.ID))
		writeJSON(w, http.StatusCreated, patient)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handlePatientResource(w http.ResponseWriter, r *http.Request) {
	parts := splitResourcePath(r.URL.Path, "/v1/patients/")
	if len(parts) == 0 {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	id, err := parseID(parts[0])
	if err != nil {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if !a.ensurePermission(w, r, auth.PermViewRecords) {
		return
	}
	switch {
	case len(parts) == 1:
		patient, err := a.medical.GetPatient(r.Context(), id)
		if err != nil {
			handleMedicalError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, patient)
	case len(parts) == 2 && parts[1] == "appointments":
		appts, err := a.medical.ListAppointmentsByPatient(r.Context(), id)
		if err != nil {
			handleMedicalError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"appointments": appts})
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}

func (a *API) handleDoctors(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if !a.ensurePermission(w, r, auth.PermViewRecords) {
			return
		}
		doctors, err := a.medical.ListDoctors(r.Context())
		if err != nil {
			handleMedicalError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"doctors": doctors})
	case http.MethodPost:
		if !a.ensurePermission(w, r, auth.PermManageDoctors) {
			return
		}
		var req createDoctorRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		doctor, err := a.medical.CreateDoctor(r.Context(), medical.Doctor{
			UserID: req.UserID, FirstName: req.FirstName, LastName: req.LastName,
			MiddleName: req.MiddleName, BirthDate: req.BirthDate,
			Specialization: req.Specialization, LicenseNumber: req.LicenseNumber,
			Qualification: req.Qualification, ExperienceYears: req.ExperienceYears,
			Phone: req.Phone, Email: req.Email, HospitalID: req.HospitalID,
			ConsultationFee: req.ConsultationFee,
		})
		if err != nil {
			handleMedicalError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "medical.doctor.create", map[string]any{
			"doctor_id": doctor.ID,
		})
		w.Header().Set("Location", fmt.Sprintf("/v1/doctors/%d", doctor.ID))
		writeJSON(w, http.StatusCreated, doctor)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleDoctorResource(w http.ResponseWriter, r *http.Request) {
	parts := splitResourcePath(r.URL.Path, "/v1/doctors/")
	if len(parts) == 0 {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	id, err := parseID(parts[0])
	if err != nil {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	switch {
	case len(parts) == 1:
		if r.Method != http.MethodGet {
			methodNotAllowed(w, r, http.MethodGet)
			return
		}
		if !a.ensurePermission(w, r, auth.PermViewRecords) {
			return
		}
		doctor, err := a.medical.GetDoctor(r.Context(), id)
		if err != nil {
			handleMedicalError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, doctor)
	case len(parts) == 2 && parts[1] == "appointments":
		if r.Method != http.MethodGet {
			methodNotAllowed(w, r, http.MethodGet)
			return
		}
		if !a.ensurePermission(w, r, auth.PermViewRecords) {
			return
		}
		appts, err := a.medical.ListAppointmentsByDoctor(r.Context(), id)
		if err != nil {
			handleMedicalError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"appointments": appts})
	case len(parts) == 2 && parts[1] == "schedules":
		a.handleDoctorSchedules(w, r, id)
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}

func (a *API) handleDoctorSchedules(w http.ResponseWriter, r *http.Request, doctorID int64) {
	switch r.Method {
	case http.MethodGet:
		if !a.ensurePermission(w, r, auth.PermViewRecords) {
			return
		}
		schedules, err := a.medical.ListSchedulesByDoctor(r.Context(), doctorID)
		if err != nil {
			handleMedicalError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"schedules": schedules})
	case http.MethodPost:
		if !a.ensurePermission(w, r, auth.PermManageDoctors) {
			return
		}
		var req createDoctorScheduleRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		schedule, err := a.medical.CreateDoctorSchedule(r.Context(), medical.DoctorSchedule{
			DoctorID: doctorID, DayOfWeek: req.DayOfWeek,
			StartTime: req.StartTime, EndTime: req.EndTime,
			SlotDuration: req.SlotDuration,
		})
		if err != nil {
			handleMedicalError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "medical.doctor.schedule.create", map[string]any{
			"doctor_id":   doctorID,
			"schedule_id": schedule.ID,
		})
		writeJSON(w, http.StatusCreated, schedule)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleAppointments(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if !a.ensurePermission(w, r, auth.PermViewRecords) {
			return
		}
		appts, err := a.medical.ListAppointments(r.Context())
		if err != nil {
			handleMedicalError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"appointments": appts})
	case http.MethodPost:
		a.handleCreateAppointment(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleCreateAppointment(w http.ResponseWriter, r *http.Request) {
	if !a.ensurePermission(w, r, auth.PermManageAppointments) {
		return
	}
	var req createAppointmentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	appt, err := a.medical.CreateAppointment(r.Context(), medical.Appointment{
		PatientID: req.PatientID, DoctorID: req.DoctorID, HospitalID: req.HospitalID,
		ScheduledAt: req.ScheduledAt, Symptoms: req.Symptoms, Notes: req.Notes,
	})
	if err != nil {
		handleMedicalError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "medical.appointment.create", map[string]any{
		"appointment_id": appt.ID,
		"patient_id":     appt.PatientID,
		"doctor_id":      appt.DoctorID,
	})
	w.Header().Set("Location", fmt.Sprintf("/v1/appointments/%d", appt.ID))
	writeJSON(w, http.StatusCreated, appt)
}

// handleAppointmentResource routes /v1/appointments/{id},
// /v1/appointments/{id}/status and /v1/appointments/{id}/prescriptions.
func (a *API) handleAppointmentResource(w http.ResponseWriter, r *http.Request) {
	parts := splitResourcePath(r.URL.Path, "/v1/appointments/")
	if len(parts) == 0 {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	id, err := parseID(parts[0])
	if err != nil {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	switch {
	case len(parts) == 1:
		a.handleAppointment(w, r, id)
	case len(parts) == 2 && parts[1] == "status":
		a.handleAppointmentStatus(w, r, id)
	case len(parts) == 2 && parts[1] == "prescriptions":
		a.handleAppointmentPrescriptions(w, r, id)
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}

func (a *API) handleAppointment(w http.ResponseWriter, r *http.Request, id int64) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if !a.ensurePermission(w, r, auth.PermViewRecords) {
		return
	}
	appt, err := a.medical.GetAppointment(r.Context(), id)
	if err != nil {
		handleMedicalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, appt)
}

func (a *API) handleAppointmentStatus(w http.ResponseWriter, r *http.Request, id int64) {
	if r.Method != http.MethodPut {
		methodNotAllowed(w, r, http.MethodPut)
		return
	}
	if !a.ensurePermission(w, r, auth.PermManageAppointments) {
		return
	}
	var req updateAppointmentStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	appt, err := a.medical.UpdateAppointmentStatus(r.Context(), id, req.Status)
	if err != nil {
		handleMedicalError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "medical.appointment.status", map[string]any{
		"appointment_id": appt.ID,
		"status":         appt.Status,
	})
	writeJSON(w, http.StatusOK, appt)
}

func (a *API) handleAppointmentPrescriptions(w http.ResponseWriter, r *http.Request, id int64) {
	switch r.Method {
	case http.MethodGet:
		if !a.ensurePermission(w, r, auth.PermViewRecords) {
			return
		}
		list, err := a.medical.ListPrescriptionsByAppointment(r.Context(), id)
		if err != nil {
			handleMedicalError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"prescriptions": list})
	case http.MethodPost:
		if !a.ensurePermission(w, r, auth.PermManageAppointments) {
			return
		}
		var req createPrescriptionRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		presc, err := a.medical.CreatePrescription(r.Context(), medical.Prescription{
			AppointmentID: id, MedicineName: req.MedicineName, Dosage: req.Dosage,
			Frequency: req.Frequency, Duration: req.Duration, Instructions: req.Instructions,
		})
		if err != nil {
			handleMedicalError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "medical.prescription.create", map[string]any{
			"appointment_id":  id,
			"prescription_id": presc.ID,
		})
		writeJSON(w, http.StatusCreated, presc)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func handleMedicalError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, medical.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, medical.ErrAlreadyExists):
		writeError(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, medical.ErrNotFound):
		writeError(w, r, http.StatusNotFound, err.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
