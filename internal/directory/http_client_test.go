package directory

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListClinicians_DropsMalformedEntries(t *testing.T) {
	goodID := uuid.New()
	hospitalID := uuid.New()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/clinicians", r.URL.Path)
		assert.Equal(t, hospitalID.String(), r.URL.Query().Get("hospital_id"))
		assert.Equal(t, "true", r.URL.Query().Get("active"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"clinicians": [
			{"id": "` + goodID.String() + `", "name": "Dr. Achieng", "role": "doctor", "hospital_id": "` + hospitalID.String() + `", "is_active": true},
			{"id": "not-a-uuid", "name": "Dr. Broken", "role": "doctor", "hospital_id": "` + hospitalID.String() + `", "is_active": true},
			{"id": "` + uuid.NewString() + `", "name": "", "role": "doctor", "hospital_id": "` + hospitalID.String() + `", "is_active": true},
			{"id": "` + uuid.NewString() + `", "name": "Dr. Inactive", "role": "doctor", "hospital_id": "` + hospitalID.String() + `", "is_active": false}
		]}`))
	}))
	defer srv.Close()

	dir := NewHTTPDirectory(srv.URL, time.Second, zerolog.Nop())

	got, err := dir.ListClinicians(context.Background(), hospitalID, nil, ClinicalRoles, true)

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, goodID, got[0].ID)
	assert.Equal(t, "Dr. Achieng", got[0].Name)
}

func TestGetClinician(t *testing.T) {
	id := uuid.New()
	hospitalID := uuid.New()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/clinicians/"+id.String(), r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": "` + id.String() + `", "name": "Dr. Otieno", "role": "surgeon", "hospital_id": "` + hospitalID.String() + `", "is_active": true}`))
	}))
	defer srv.Close()

	dir := NewHTTPDirectory(srv.URL, time.Second, zerolog.Nop())

	got, err := dir.GetClinician(context.Background(), id)

	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, "surgeon", got.Role)
	assert.True(t, got.IsActive)
}

func TestGetClinician_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	dir := NewHTTPDirectory(srv.URL, time.Second, zerolog.Nop())

	_, err := dir.GetClinician(context.Background(), uuid.New())

	assert.ErrorIs(t, err, ErrClinicianNotFound)
}

func TestListClinicians_ServerErrorIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	dir := NewHTTPDirectory(srv.URL, time.Second, zerolog.Nop())

	_, err := dir.ListClinicians(context.Background(), uuid.New(), nil, nil, false)

	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestListClinicians_UnreachableIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	dir := NewHTTPDirectory(srv.URL, time.Second, zerolog.Nop())

	_, err := dir.ListClinicians(context.Background(), uuid.New(), nil, nil, false)

	assert.ErrorIs(t, err, ErrUnavailable)
}
