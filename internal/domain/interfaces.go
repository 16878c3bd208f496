package domain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrCorpusLoad marks a snapshot that cannot be served. Fatal at startup.
	ErrCorpusLoad = errors.New("corpus load failed")
	// ErrVectorization marks a phrase that could not be turned into a vector.
	ErrVectorization = errors.New("vectorization failed")
	// ErrDirectoryLookup marks a failed doctor profile lookup.
	ErrDirectoryLookup = errors.New("directory lookup failed")
	// ErrInvalidSeverity is returned for severities outside the known tiers.
	ErrInvalidSeverity = errors.New("invalid severity")
)

// CorpusRow is one stored symptom/therapy/doctor association.
// SymptomText and TherapyName are always set; the remaining fields are
// empty when the source row had no value.
type CorpusRow struct {
	SymptomText        string `json:"symptoms"`
	TherapyName        string `json:"therapy"`
	TherapyDescription string `json:"therapy_description,omitempty"`
	DoctorName         string `json:"doctor_name,omitempty"`
	Specialization     string `json:"specialization,omitempty"`
	Hospital           string `json:"hospital,omitempty"`
	Experience         string `json:"experience,omitempty"`
}

// Match is a ranked corpus row.
type Match struct {
	Row   int
	Score float64
}

// DoctorInfo holds the practitioner attributes co-located with a corpus row.
type DoctorInfo struct {
	Name           string `json:"doctor_name"`
	Specialization string `json:"specialization,omitempty"`
	Hospital       string `json:"hospital,omitempty"`
	Experience     string `json:"experience,omitempty"`
}

// RecommendationResult is a single similarity hit with its row attributes.
type RecommendationResult struct {
	TherapyName        string     `json:"therapy"`
	TherapyDescription string     `json:"therapy_description,omitempty"`
	Doctor             DoctorInfo `json:"doctor"`
	Score              float64    `json:"score"`
}

// DoctorProfile is a practitioner record from the doctor directory.
// Only Name is guaranteed; a directory miss yields a profile with Name alone.
type DoctorProfile struct {
	ID             string         `json:"doctorId,omitempty"`
	Name           string         `json:"name"`
	Email          string         `json:"email,omitempty"`
	Phone          string         `json:"phone,omitempty"`
	Specialization string         `json:"specialization,omitempty"`
	Hospital       string         `json:"hospital,omitempty"`
	Experience     string         `json:"experience,omitempty"`
	Address        map[string]any `json:"address,omitempty"`
	Profile        map[string]any `json:"profile,omitempty"`
}

// RoleDoctor is the directory role used for practitioner lookups.
const RoleDoctor = "doctor"

// DoctorDirectory resolves a doctor name to a profile.
// A miss is reported as (nil, nil).
type DoctorDirectory interface {
	Lookup(ctx context.Context, name, role string) (*DoctorProfile, error)
}

// Severity is the self-reported symptom frequency tier.
type Severity string

const (
	SeveritySometimes Severity = "sometimes"
	SeverityOften     Severity = "often"
	SeverityAlways    Severity = "always"
)

// ParseSeverity maps free-form input onto a known tier, ignoring case and
// surrounding whitespace.
func ParseSeverity(s string) (Severity, error) {
	switch v := Severity(strings.ToLower(strings.TrimSpace(s))); v {
	case SeveritySometimes, SeverityOften, SeverityAlways:
		return v, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidSeverity, s)
	}
}

// Actions emitted by the recommendation orchestrator.
const (
	ActionSelfMonitor = "self-monitor"
	ActionVisitDoctor = "visit doctor"
)

// RecommendRequest is the transport-independent inbound request.
type RecommendRequest struct {
	Symptoms string
	Severity Severity
	Age      int
	Gender   string
	TopN     int
}

// TherapyRecommendation groups the doctors surfaced for one therapy.
type TherapyRecommendation struct {
	Therapy string          `json:"therapy"`
	Doctors []DoctorProfile `json:"doctors"`
}

// RecommendResponse is either a self-monitor advisory or a visit-doctor
// payload, distinguished by Action.
type RecommendResponse struct {
	Action          string
	Suggestion      string
	Recommendations []TherapyRecommendation
}

// MarshalJSON emits only the fields belonging to the response's action.
// A visit-doctor payload always carries a (possibly empty) list.
func (r RecommendResponse) MarshalJSON() ([]byte, error) {
	if r.Action == ActionSelfMonitor {
		return json.Marshal(struct {
			Action     string `json:"action"`
			Suggestion string `json:"suggestion"`
		}{r.Action, r.Suggestion})
	}
	recs := r.Recommendations
	if recs == nil {
		recs = []TherapyRecommendation{}
	}
	return json.Marshal(struct {
		Action          string                  `json:"action"`
		Recommendations []TherapyRecommendation `json:"recommendations"`
	}{r.Action, recs})
}
