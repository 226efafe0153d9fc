package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"clinic.tj/internal/auth"
	"clinic.tj/internal/medical"
)

type apiClient struct {
	baseURL string
	client  *http.Client
	t       *testing.T
}

func newTestAPI(t *testing.T) *apiClient {
	t.Helper()

	store := auth.NewMemoryStore()
	tokens, err := auth.NewTokenService("test-secret", store.RevokedTokens())
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	authSvc, err := auth.NewService(store, tokens)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	if err := authSvc.EnsureBuiltins(context.Background()); err != nil {
		t.Fatalf("EnsureBuiltins: %v", err)
	}
	if _, err := authSvc.RegisterStaff(context.Background(), auth.RegisterInput{
		Username: "root", Password: "root-pw", ConfirmPassword: "root-pw",
	}); err != nil {
		t.Fatalf("RegisterStaff: %v", err)
	}

	medicalSvc, err := medical.NewService(medical.NewMemoryStore())
	if err != nil {
		t.Fatalf("medical.NewService: %v", err)
	}

	api := New(ReadyProbe{}, "test", authSvc, medicalSvc, WithRateLimit(1000, 1000))
	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)

	return &apiClient{
		baseURL: srv.URL,
		client:  srv.Client(),
		t:       t,
	}
}

func (c *apiClient) do(method, path string, body any, headers map[string]string) *http.Response {
	c.t.Helper()
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			c.t.Fatalf("marshal body: %v", err)
		}
	}
	req, err := http.NewRequest(method, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.t.Fatalf("do request: %v", err)
	}
	return resp
}

func (c *apiClient) post(path string, body any, headers map[string]string) *http.Response {
	return c.do(http.MethodPost, path, body, headers)
}

func (c *apiClient) get(path string, params url.Values, headers map[string]string) *http.Response {
	c.t.Helper()
	if params != nil {
		path += "?" + params.Encode()
	}
	return c.do(http.MethodGet, path, nil, headers)
}

// login returns the token pair for an existing account.
func (c *apiClient) login(username, password string) auth.TokenPair {
	c.t.Helper()
	resp := c.post("/v1/auth/login", map[string]any{
		"username": username,
		"password": password,
	}, nil)
	if resp.StatusCode != http.StatusOK {
		c.t.Fatalf("login %s: unexpected status %d", username, resp.StatusCode)
	}
	pair := decode[auth.TokenPair](c.t, resp)
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		c.t.Fatalf("login %s: incomplete token pair", username)
	}
	return pair
}

func (c *apiClient) register(username, password string) auth.User {
	c.t.Helper()
	resp := c.post("/v1/auth/register", map[string]any{
		"username":         username,
		"password":         password,
		"confirm_password": password,
	}, nil)
	if resp.StatusCode != http.StatusCreated {
		c.t.Fatalf("register %s: unexpected status %d", username, resp.StatusCode)
	}
	return decode[auth.User](c.t, resp)
}

func bearerHeader(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func decode[T any](t *testing.T, r *http.Response) T {
	t.Helper()
	defer r.Body.Close()
	var v T
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func TestHealthAndInfo(t *testing.T) {
	api := newTestAPI(t)

	resp := api.get("/healthz", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz: %d", resp.StatusCode)
	}
	body := decode[map[string]any](t, resp)
	if body["service"] != "clinic-api" {
		t.Fatalf("unexpected service: %v", body["service"])
	}

	resp = api.get("/readyz", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("readyz: %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = api.get("/v1/info", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("info: %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestAuthSessionFlow(t *testing.T) {
	api := newTestAPI(t)

	alice := api.register("alice", "pw123")
	if alice.ID <= 0 {
		t.Fatalf("expected positive id, got %d", alice.ID)
	}

	// Duplicate username conflicts.
	resp := api.post("/v1/auth/register", map[string]any{
		"username": "alice", "password": "other", "confirm_password": "other",
	}, nil)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate register: expected 409, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	pair := api.login("alice", "pw123")

	resp = api.get("/v1/auth/me", nil, bearerHeader(pair.AccessToken))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("me: expected 200, got %d", resp.StatusCode)
	}
	me := decode[auth.User](t, resp)
	if me.Username != "alice" {
		t.Fatalf("unexpected identity: %s", me.Username)
	}

	resp = api.post("/v1/auth/refresh", map[string]any{"refresh": pair.RefreshToken}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("refresh: expected 200, got %d", resp.StatusCode)
	}
	refreshed := decode[map[string]any](t, resp)
	if refreshed["access"] == "" {
		t.Fatal("expected new access token")
	}

	resp = api.post("/v1/auth/logout", map[string]any{"refresh": pair.RefreshToken}, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("logout: expected 204, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// The revoked refresh token no longer refreshes.
	resp = api.post("/v1/auth/refresh", map[string]any{"refresh": pair.RefreshToken}, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("post-logout refresh: expected 401, got %d", resp.StatusCode)
	}
	errBody := decode[map[string]any](t, resp)
	if errBody["error"] != "token revoked" {
		t.Fatalf("unexpected error: %v", errBody["error"])
	}
}

func TestLoginFailuresAreUniform(t *testing.T) {
	api := newTestAPI(t)
	api.register("alice", "pw123")

	for _, creds := range []map[string]any{
		{"username": "no-such-user", "password": "pw123"},
		{"username": "alice", "password": "wrong"},
	} {
		resp := api.post("/v1/auth/login", creds, nil)
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", resp.StatusCode)
		}
		body := decode[map[string]any](t, resp)
		if body["error"] != "invalid credentials" {
			t.Fatalf("unexpected error body: %v", body["error"])
		}
	}
}

func TestRegisterRejectsBadPayloads(t *testing.T) {
	api := newTestAPI(t)

	// Password mismatch.
	resp := api.post("/v1/auth/register", map[string]any{
		"username": "bob", "password": "a", "confirm_password": "b",
	}, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("mismatch: expected 400, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Unknown fields are rejected outright.
	resp = api.post("/v1/auth/register", map[string]any{
		"username": "bob", "password": "a", "confirm_password": "a", "is_superuser": true,
	}, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("unknown field: expected 400, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	api := newTestAPI(t)

	resp := api.get("/v1/patients", nil, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = api.get("/v1/patients", nil, bearerHeader("garbage"))
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("garbage token: expected 401, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestRoleGrantLifecycle(t *testing.T) {
	api := newTestAPI(t)
	bob := api.register("bob", "pw")
	bobPair := api.login("bob", "pw")
	rootPair := api.login("root", "root-pw")
	rootAuth := bearerHeader(rootPair.AccessToken)
	bobAuth := bearerHeader(bobPair.AccessToken)

	// No grants yet.
	resp := api.get("/v1/patients", nil, bobAuth)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = api.post("/v1/roles", map[string]any{"name": "nurse"}, rootAuth)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create role: expected 201, got %d", resp.StatusCode)
	}
	nurse := decode[auth.Role](t, resp)

	resp = api.get("/v1/permissions", nil, rootAuth)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list permissions: expected 200, got %d", resp.StatusCode)
	}
	catalog := decode[map[string][]auth.Permission](t, resp)
	var viewID int64
	for _, p := range catalog["permissions"] {
		if p.Name == auth.PermViewRecords {
			viewID = p.ID
		}
	}
	if viewID == 0 {
		t.Fatal("builtin records.view missing from catalog")
	}

	resp = api.post(fmt.Sprintf("/v1/roles/%d/permissions", nurse.ID),
		map[string]any{"permission_ids": []int64{viewID}}, rootAuth)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("grant role permissions: expected 204, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = api.post(fmt.Sprintf("/v1/users/%d/roles", bob.ID),
		map[string]any{"role_ids": []int64{nurse.ID}}, rootAuth)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("assign role: expected 204, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Bob's next request picks up the role grant.
	resp = api.get("/v1/patients", nil, bobAuth)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 after role grant, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = api.do(http.MethodDelete, fmt.Sprintf("/v1/users/%d/roles/%d", bob.ID, nurse.ID), nil, rootAuth)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("revoke role: expected 204, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = api.get("/v1/patients", nil, bobAuth)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 after revocation, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestStaffCreationRequiresManageUsers(t *testing.T) {
	api := newTestAPI(t)
	api.register("bob", "pw")
	bobPair := api.login("bob", "pw")

	resp := api.post("/v1/users", map[string]any{
		"username": "staffer", "password": "pw", "confirm_password": "pw",
	}, bearerHeader(bobPair.AccessToken))
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	rootPair := api.login("root", "root-pw")
	resp = api.post("/v1/users", map[string]any{
		"username": "staffer", "password": "pw", "confirm_password": "pw",
	}, bearerHeader(rootPair.AccessToken))
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	staffer := decode[auth.User](t, resp)
	if !staffer.IsStaff || !staffer.IsSuperuser {
		t.Fatal("staff account must carry staff flags")
	}
}

func TestChangePasswordFlow(t *testing.T) {
	api := newTestAPI(t)
	api.register("alice", "old-pw")
	pair := api.login("alice", "old-pw")
	authHdr := bearerHeader(pair.AccessToken)

	resp := api.post("/v1/auth/password", map[string]any{
		"old_password": "wrong", "new_password": "new-pw",
	}, authHdr)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("wrong old password: expected 401, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = api.post("/v1/auth/password", map[string]any{
		"old_password": "old-pw", "new_password": "new-pw",
	}, authHdr)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("change password: expected 204, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = api.post("/v1/auth/login", map[string]any{
		"username": "alice", "password": "old-pw",
	}, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("old password must stop working, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	api.login("alice", "new-pw")
}

func TestMedicalRegistryFlow(t *testing.T) {
	api := newTestAPI(t)
	rootPair := api.login("root", "root-pw")
	rootAuth := bearerHeader(rootPair.AccessToken)

	resp := api.post("/v1/hospitals", map[string]any{
		"name": "Central Clinic", "region": "Sughd", "city": "Khujand",
		"address": "1 Lenin St", "phone": "+992-555-0101",
	}, rootAuth)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create hospital: expected 201, got %d", resp.StatusCode)
	}
	hospital := decode[medical.Hospital](t, resp)
	if hospital.Type != "public" || !hospital.IsActive {
		t.Fatalf("unexpected hospital defaults: %+v", hospital)
	}

	resp = api.post("/v1/patients", map[string]any{
		"first_name": "Firuza", "last_name": "Rahimova",
		"birth_date": "1990-04-12T00:00:00Z", "gender": "female",
		"passport_number": "A1234567", "phone": "+992-555-0102",
		"address": "5 Somoni Ave", "region": "Sughd",
		"emergency_contact": "Karim Rahimov", "emergency_phone": "+992-555-0103",
	}, rootAuth)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create patient: expected 201, got %d", resp.StatusCode)
	}
	patient := decode[medical.Patient](t, resp)

	resp = api.post("/v1/doctors", map[string]any{
		"first_name": "Jamshed", "last_name": "Nazarov",
		"birth_date": "1980-01-20T00:00:00Z", "specialization": "cardiology",
		"license_number": "LIC-001", "qualification": "MD",
		"experience_years": 12, "phone": "+992-555-0104",
		"email": "j.nazarov@example.com", "hospital_id": hospital.ID,
	}, rootAuth)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create doctor: expected 201, got %d", resp.StatusCode)
	}
	doctor := decode[medical.Doctor](t, resp)

	scheduledAt := time.Now().Add(48 * time.Hour).UTC().Format(time.RFC3339)
	resp = api.post("/v1/appointments", map[string]any{
		"patient_id": patient.ID, "doctor_id": doctor.ID, "hospital_id": hospital.ID,
		"scheduled_at": scheduledAt, "symptoms": "chest pain",
	}, rootAuth)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create appointment: expected 201, got %d", resp.StatusCode)
	}
	appt := decode[medical.Appointment](t, resp)
	if appt.Status != medical.StatusScheduled {
		t.Fatalf("expected scheduled, got %q", appt.Status)
	}

	resp = api.get("/v1/appointments", nil, rootAuth)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list appointments: expected 200, got %d", resp.StatusCode)
	}
	allAppts := decode[map[string][]medical.Appointment](t, resp)
	if len(allAppts["appointments"]) != 1 {
		t.Fatalf("expected 1 appointment listed, got %d", len(allAppts["appointments"]))
	}

	resp = api.do(http.MethodPut, fmt.Sprintf("/v1/appointments/%d/status", appt.ID),
		map[string]any{"status": medical.StatusCompleted}, rootAuth)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update status: expected 200, got %d", resp.StatusCode)
	}
	updated := decode[medical.Appointment](t, resp)
	if updated.Status != medical.StatusCompleted {
		t.Fatalf("expected completed, got %q", updated.Status)
	}

	resp = api.post(fmt.Sprintf("/v1/appointments/%d/prescriptions", appt.ID), map[string]any{
		"medicine_name": "Amlodipine", "dosage": "5mg",
		"frequency": "once daily", "duration": "30 days",
	}, rootAuth)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create prescription: expected 201, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = api.get(fmt.Sprintf("/v1/appointments/%d/prescriptions", appt.ID), nil, rootAuth)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list prescriptions: expected 200, got %d", resp.StatusCode)
	}
	prescriptions := decode[map[string][]medical.Prescription](t, resp)
	if len(prescriptions["prescriptions"]) != 1 {
		t.Fatalf("expected 1 prescription, got %d", len(prescriptions["prescriptions"]))
	}

	resp = api.get(fmt.Sprintf("/v1/patients/%d/appointments", patient.ID), nil, rootAuth)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("patient appointments: expected 200, got %d", resp.StatusCode)
	}
	appts := decode[map[string][]medical.Appointment](t, resp)
	if len(appts["appointments"]) != 1 {
		t.Fatalf("expected 1 appointment, got %d", len(appts["appointments"]))
	}
}

func TestDoctorScheduleEndpoints(t *testing.T) {
	api := newTestAPI(t)
	rootPair := api.login("root", "root-pw")
	rootAuth := bearerHeader(rootPair.AccessToken)

	resp := api.post("/v1/hospitals", map[string]any{
		"name": "Central Clinic", "region": "Sughd", "city": "Khujand",
		"address": "1 Lenin St", "phone": "+992-555-0101",
	}, rootAuth)
	hospital := decode[medical.Hospital](t, resp)

	resp = api.post("/v1/patients", map[string]any{
		"first_name": "Firuza", "last_name": "Rahimova",
		"birth_date": "1990-04-12T00:00:00Z", "gender": "female",
		"passport_number": "A1234567", "phone": "+992-555-0102",
		"address": "5 Somoni Ave", "region": "Sughd",
		"emergency_contact": "Karim Rahimov", "emergency_phone": "+992-555-0103",
	}, rootAuth)
	patient := decode[medical.Patient](t, resp)

	resp = api.post("/v1/doctors", map[string]any{
		"first_name": "Jamshed", "last_name": "Nazarov",
		"birth_date": "1980-01-20T00:00:00Z", "specialization": "cardiology",
		"license_number": "LIC-001", "qualification": "MD",
		"phone": "+992-555-0104", "email": "j.nazarov@example.com",
		"hospital_id": hospital.ID,
	}, rootAuth)
	doctor := decode[medical.Doctor](t, resp)

	day := time.Now().UTC().AddDate(0, 0, 7)
	resp = api.post(fmt.Sprintf("/v1/doctors/%d/schedules", doctor.ID), map[string]any{
		"day_of_week": int(day.Weekday()), "start_time": "09:00", "end_time": "12:00",
	}, rootAuth)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create schedule: expected 201, got %d", resp.StatusCode)
	}
	schedule := decode[medical.DoctorSchedule](t, resp)
	if schedule.SlotDuration != 30 || !schedule.IsActive {
		t.Fatalf("unexpected schedule defaults: %+v", schedule)
	}

	resp = api.get(fmt.Sprintf("/v1/doctors/%d/schedules", doctor.ID), nil, rootAuth)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list schedules: expected 200, got %d", resp.StatusCode)
	}
	schedules := decode[map[string][]medical.DoctorSchedule](t, resp)
	if len(schedules["schedules"]) != 1 {
		t.Fatalf("expected 1 schedule, got %d", len(schedules["schedules"]))
	}

	// Booking outside the recorded window is rejected.
	outside := time.Date(day.Year(), day.Month(), day.Day(), 15, 0, 0, 0, time.UTC)
	resp = api.post("/v1/appointments", map[string]any{
		"patient_id": patient.ID, "doctor_id": doctor.ID, "hospital_id": hospital.ID,
		"scheduled_at": outside.Format(time.RFC3339),
	}, rootAuth)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 outside working hours, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	inside := time.Date(day.Year(), day.Month(), day.Day(), 10, 0, 0, 0, time.UTC)
	resp = api.post("/v1/appointments", map[string]any{
		"patient_id": patient.ID, "doctor_id": doctor.ID, "hospital_id": hospital.ID,
		"scheduled_at": inside.Format(time.RFC3339),
	}, rootAuth)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201 inside working hours, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestMethodNotAllowed(t *testing.T) {
	api := newTestAPI(t)

	resp := api.do(http.MethodDelete, "/v1/auth/login", nil, nil)
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", resp.StatusCode)
	}
	if resp.Header.Get("Allow") != http.MethodPost {
		t.Fatalf("unexpected Allow header: %q", resp.Header.Get("Allow"))
	}
	resp.Body.Close()
}
