package encounters

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Joshsnailz/hospitalflow-sub003/internal/appointment"
)

func TestCreateDischargeForm(t *testing.T) {
	formID := uuid.New()
	appointmentID := uuid.New()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/discharge-forms", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, appointmentID.String(), body["appointment_id"])

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id": "` + formID.String() + `"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second)

	got, err := client.CreateDischargeForm(context.Background(), appointmentID)

	require.NoError(t, err)
	assert.Equal(t, formID, got)
}

func TestCreateEncounter(t *testing.T) {
	encounterID := uuid.New()
	patientID := uuid.New()
	doctorID := uuid.New()
	appt := &appointment.Appointment{
		ID:        uuid.New(),
		PatientID: &patientID,
		DoctorID:  &doctorID,
	}
	adm := appointment.AdmissionDetails{
		HospitalID:   uuid.New(),
		DepartmentID: uuid.New(),
		WardID:       uuid.New(),
		BedID:        uuid.New(),
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/encounters", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, appt.ID.String(), body["appointment_id"])
		assert.Equal(t, adm.WardID.String(), body["ward_id"])
		assert.Equal(t, adm.BedID.String(), body["bed_id"])
		assert.Equal(t, patientID.String(), body["patient_id"])
		assert.Equal(t, doctorID.String(), body["doctor_id"])

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id": "` + encounterID.String() + `"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second)

	got, err := client.CreateEncounter(context.Background(), appt, adm)

	require.NoError(t, err)
	assert.Equal(t, encounterID, got)
}

func TestCreateDischargeForm_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second)

	_, err := client.CreateDischargeForm(context.Background(), uuid.New())

	assert.ErrorIs(t, err, appointment.ErrCollaboratorUnavailable)
}

func TestCreateDischargeForm_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	client := NewClient(srv.URL, time.Second)

	_, err := client.CreateDischargeForm(context.Background(), uuid.New())

	assert.ErrorIs(t, err, appointment.ErrCollaboratorUnavailable)
}

func TestCreateDischargeForm_MalformedID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id": "???"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second)

	_, err := client.CreateDischargeForm(context.Background(), uuid.New())

	assert.ErrorIs(t, err, appointment.ErrCollaboratorUnavailable)
}
