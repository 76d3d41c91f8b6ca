package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// HTTPDirectory talks to the user-directory service over its JSON API.
// Entries missing an id or a name are dropped rather than passed on to the
// assignment engine.
type HTTPDirectory struct {
	baseURL string
	client  *http.Client
	log     zerolog.Logger
}

func NewHTTPDirectory(baseURL string, timeout time.Duration, log zerolog.Logger) *HTTPDirectory {
	return &HTTPDirectory{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		log:     log.With().Str("component", "directory").Logger(),
	}
}

type clinicianPayload struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Role         string  `json:"role"`
	HospitalID   string  `json:"hospital_id"`
	DepartmentID *string `json:"department_id"`
	IsActive     bool    `json:"is_active"`
}

func (p clinicianPayload) toInfo() (ClinicianInfo, bool) {
	id, err := uuid.Parse(p.ID)
	if err != nil || p.Name == "" {
		return ClinicianInfo{}, false
	}

	hospitalID, err := uuid.Parse(p.HospitalID)
	if err != nil {
		return ClinicianInfo{}, false
	}

	info := ClinicianInfo{
		ID:         id,
		Name:       p.Name,
		Role:       p.Role,
		HospitalID: hospitalID,
		IsActive:   p.IsActive,
	}
	if p.DepartmentID != nil {
		if deptID, err := uuid.Parse(*p.DepartmentID); err == nil {
			info.DepartmentID = &deptID
		}
	}
	return info, true
}

func (d *HTTPDirectory) ListClinicians(ctx context.Context, hospitalID uuid.UUID, departmentID *uuid.UUID, roles []string, activeOnly bool) ([]ClinicianInfo, error) {
	q := url.Values{}
	q.Set("hospital_id", hospitalID.String())
	if departmentID != nil {
		q.Set("department_id", departmentID.String())
	}
	if len(roles) > 0 {
		q.Set("roles", strings.Join(roles, ","))
	}
	if activeOnly {
		q.Set("active", "true")
	}

	var payload struct {
		Clinicians []clinicianPayload `json:"clinicians"`
	}
	if err := d.getJSON(ctx, "/clinicians?"+q.Encode(), &payload); err != nil {
		return nil, err
	}

	result := make([]ClinicianInfo, 0, len(payload.Clinicians))
	for _, p := range payload.Clinicians {
		info, ok := p.toInfo()
		if !ok {
			d.log.Warn().Str("raw_id", p.ID).Msg("dropping malformed directory entry")
			continue
		}
		if activeOnly && !info.IsActive {
			continue
		}
		result = append(result, info)
	}

	return result, nil
}

func (d *HTTPDirectory) GetClinician(ctx context.Context, id uuid.UUID) (*ClinicianInfo, error) {
	var payload clinicianPayload
	if err := d.getJSON(ctx, "/clinicians/"+id.String(), &payload); err != nil {
		return nil, err
	}

	info, ok := payload.toInfo()
	if !ok {
		return nil, fmt.Errorf("%w: malformed clinician payload for %s", ErrUnavailable, id)
	}
	return &info, nil
}

func (d *HTTPDirectory) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build directory request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrClinicianNotFound
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("%w: directory returned %d", ErrUnavailable, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode directory response: %v", ErrUnavailable, err)
	}
	return nil
}
