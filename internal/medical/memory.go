package medical

import (
	"context"
	"sort"
	"sync"
	"time"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore is an in-memory Store used by tests and for running the
// API without a database.
type MemoryStore struct {
	mu sync.RWMutex

	nextID int64

	hospitals     map[int64]*Hospital
	patients      map[int64]*Patient
	doctors       map[int64]*Doctor
	schedules     map[int64]*DoctorSchedule
	appointments  map[int64]*Appointment
	prescriptions map[int64]*Prescription
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		hospitals:     make(map[int64]*Hospital),
		patients:      make(map[int64]*Patient),
		doctors:       make(map[int64]*Doctor),
		schedules:     make(map[int64]*DoctorSchedule),
		appointments:  make(map[int64]*Appointment),
		prescriptions: make(map[int64]*Prescription),
	}
}

func (s *MemoryStore) nextSeq() int64 {
	s.nextID++
	return s.nextID
}

func (s *MemoryStore) CreateHospital(_ context.Context, h *Hospital) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	h.ID = s.nextSeq()
	h.CreatedAt = time.Now().UTC()
	stored := *h
	s.hospitals[h.ID] = &stored
	return nil
}

func (s *MemoryStore) GetHospital(_ context.Context, id int64) (*Hospital, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.hospitals[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *h
	return &out, nil
}

func (s *MemoryStore) ListHospitals(_ context.Context) ([]Hospital, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Hospital, 0, len(s.hospitals))
	for _, h := range s.hospitals {
		out = append(out, *h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *MemoryStore) CreatePatient(_ context.Context, p *Patient) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.patients {
		if existing.PassportNumber == p.PassportNumber {
			return ErrAlreadyExists
		}
	}
	p.ID = s.nextSeq()
	p.CreatedAt = time.Now().UTC()
	stored := *p
	s.patients[p.ID] = &stored
	return nil
}

func (s *MemoryStore) GetPatient(_ context.Context, id int64) (*Patient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.patients[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *p
	return &out, nil
}

func (s *MemoryStore) ListPatients(_ context.Context) ([]Patient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Patient, 0, len(s.patients))
	for _, p := range s.patients {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) CreateDoctor(_ context.Context, d *Doctor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.doctors {
		if existing.LicenseNumber == d.LicenseNumber {
			return ErrAlreadyExists
		}
	}
	d.ID = s.nextSeq()
	d.CreatedAt = time.Now().UTC()
	stored := *d
	s.doctors[d.ID] = &stored
	return nil
}

func (s *MemoryStore) GetDoctor(_ context.Context, id int64) (*Doctor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.doctors[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *d
	return &out, nil
}

func (s *MemoryStore) ListDoctors(_ context.Context) ([]Doctor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Doctor, 0, len(s.doctors))
	for _, d := range s.doctors {
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) CreateDoctorSchedule(_ context.Context, ds *DoctorSchedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.doctors[ds.DoctorID]; !ok {
		return ErrNotFound
	}
	ds.ID = s.nextSeq()
	stored := *ds
	s.schedules[ds.ID] = &stored
	return nil
}

func (s *MemoryStore) ListSchedulesByDoctor(_ context.Context, doctorID int64) ([]DoctorSchedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []DoctorSchedule
	for _, ds := range s.schedules {
		if ds.DoctorID == doctorID {
			out = append(out, *ds)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DayOfWeek != out[j].DayOfWeek {
			return out[i].DayOfWeek < out[j].DayOfWeek
		}
		return out[i].StartTime < out[j].StartTime
	})
	return out, nil
}

func (s *MemoryStore) CreateAppointment(_ context.Context, a *Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a.ID = s.nextSeq()
	a.CreatedAt = time.Now().UTC()
	stored := *a
	s.appointments[a.ID] = &stored
	return nil
}

func (s *MemoryStore) GetAppointment(_ context.Context, id int64) (*Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.appointments[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *a
	return &out, nil
}

func (s *MemoryStore) ListAppointments(_ context.Context) ([]Appointment, error) {
	return s.listAppointments(func(*Appointment) bool { return true })
}

func (s *MemoryStore) ListAppointmentsByPatient(_ context.Context, patientID int64) ([]Appointment, error) {
	return s.listAppointments(func(a *Appointment) bool { return a.PatientID == patientID })
}

func (s *MemoryStore) ListAppointmentsByDoctor(_ context.Context, doctorID int64) ([]Appointment, error) {
	return s.listAppointments(func(a *Appointment) bool { return a.DoctorID == doctorID })
}

func (s *MemoryStore) listAppointments(match func(*Appointment) bool) ([]Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Appointment
	for _, a := range s.appointments {
		if match(a) {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledAt.Before(out[j].ScheduledAt) })
	return out, nil
}

func (s *MemoryStore) UpdateAppointmentStatus(_ context.Context, id int64, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.appointments[id]
	if !ok {
		return ErrNotFound
	}
	a.Status = status
	return nil
}

func (s *MemoryStore) CreatePrescription(_ context.Context, p *Prescription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.appointments[p.AppointmentID]; !ok {
		return ErrNotFound
	}
	p.ID = s.nextSeq()
	stored := *p
	s.prescriptions[p.ID] = &stored
	return nil
}

func (s *MemoryStore) ListPrescriptionsByAppointment(_ context.Context, appointmentID int64) ([]Prescription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Prescription
	for _, p := range s.prescriptions {
		if p.AppointmentID == appointmentID {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
