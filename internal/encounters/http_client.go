package encounters

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Joshsnailz/hospitalflow-sub003/internal/appointment"
)

// Client talks to the encounter/discharge-form service. Errors wrap
// appointment.ErrCollaboratorUnavailable; the lifecycle controller reports
// them as warnings without undoing the transition that triggered the call.
type Client struct {
	baseURL string
	client  *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *Client) CreateDischargeForm(ctx context.Context, appointmentID uuid.UUID) (uuid.UUID, error) {
	body := map[string]string{"appointment_id": appointmentID.String()}
	return c.postForID(ctx, "/discharge-forms", body)
}

func (c *Client) CreateEncounter(ctx context.Context, appt *appointment.Appointment, adm appointment.AdmissionDetails) (uuid.UUID, error) {
	body := map[string]any{
		"appointment_id": appt.ID.String(),
		"hospital_id":    adm.HospitalID.String(),
		"department_id":  adm.DepartmentID.String(),
		"ward_id":        adm.WardID.String(),
		"bed_id":         adm.BedID.String(),
	}
	if appt.PatientID != nil {
		body["patient_id"] = appt.PatientID.String()
	}
	if appt.DoctorID != nil {
		body["doctor_id"] = appt.DoctorID.String()
	}
	return c.postForID(ctx, "/encounters", body)
}

func (c *Client) postForID(ctx context.Context, path string, body any) (uuid.UUID, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return uuid.Nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return uuid.Nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", appointment.ErrCollaboratorUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return uuid.Nil, fmt.Errorf("%w: encounters service returned %d", appointment.ErrCollaboratorUnavailable, resp.StatusCode)
	}

	var out struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return uuid.Nil, fmt.Errorf("%w: decode response: %v", appointment.ErrCollaboratorUnavailable, err)
	}

	id, err := uuid.Parse(out.ID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: malformed id %q", appointment.ErrCollaboratorUnavailable, out.ID)
	}
	return id, nil
}
