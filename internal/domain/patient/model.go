package patient

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/periop/statusboard/pkg/dates"
)

var (
	ErrNotFound      = errors.New("patient not found")
	ErrInvalidStatus = errors.New("unknown status")
	ErrInvalidInput  = errors.New("invalid patient data")

	// ErrNumberTaken is returned by Repository.Create when the generated
	// patient number collides. The service retries; callers never see it.
	ErrNumberTaken = errors.New("patient number already taken")
)

// Patient is one surgical case. PatientNumber is immutable once assigned and
// Status always names a catalog entry.
type Patient struct {
	ID            uuid.UUID  `json:"id"`
	PatientNumber string     `json:"patient_number"`
	FirstName     string     `json:"first_name"`
	LastName      string     `json:"last_name"`
	Address       string     `json:"address"`
	City          string     `json:"city"`
	State         string     `json:"state"`
	Country       string     `json:"country"`
	Phone         string     `json:"phone"`
	Email         string     `json:"email"`
	Procedure     string     `json:"procedure"`
	ScheduledTime time.Time  `json:"scheduled_time"`
	SurgeonID     *uuid.UUID `json:"surgeon_id"`
	SurgeonName   *string    `json:"surgeon_name"`
	RoomNo        *string    `json:"room_no"`
	Note          *string    `json:"note"`
	Status        string     `json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func (p *Patient) DisplayName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// CreateInput is the admission form. SurgeonName, when set, must match a
// clinician exactly.
type CreateInput struct {
	FirstName     string          `json:"first_name"`
	LastName      string          `json:"last_name"`
	Address       string          `json:"address"`
	City          string          `json:"city"`
	State         string          `json:"state"`
	Country       string          `json:"country"`
	Phone         string          `json:"phone"`
	Email         string          `json:"email"`
	Procedure     string          `json:"procedure"`
	ScheduledTime dates.Timestamp `json:"scheduled_time"`
	SurgeonName   string          `json:"surgeon_name"`
	RoomNo        *string         `json:"room_no"`
	Note          *string         `json:"note"`
}

func (in *CreateInput) Validate() error {
	required := map[string]string{
		"first_name": in.FirstName,
		"last_name":  in.LastName,
		"procedure":  in.Procedure,
	}
	for _, field := range []string{"first_name", "last_name", "procedure"} {
		if strings.TrimSpace(required[field]) == "" {
			return fmt.Errorf("%w: %s is required", ErrInvalidInput, field)
		}
	}
	if in.ScheduledTime.IsZero() {
		return fmt.Errorf("%w: scheduled_time is required", ErrInvalidInput)
	}
	return nil
}

// CreationSummary is what the admission desk gets back.
type CreationSummary struct {
	PatientNumber string `json:"patient_number"`
	Name          string `json:"name"`
	Status        string `json:"status"`
}

// PatientSummary is the board row: the patient joined with the surgeon name.
type PatientSummary struct {
	PatientNumber string    `json:"patient_number"`
	FirstName     string    `json:"first_name"`
	LastName      string    `json:"last_name"`
	Status        string    `json:"status"`
	Email         string    `json:"email"`
	Phone         string    `json:"phone"`
	RoomNo        *string   `json:"room_no"`
	Procedure     string    `json:"procedure"`
	ScheduledTime time.Time `json:"scheduled_time"`
	SurgeonName   *string   `json:"surgeon_name"`
	CreatedAt     time.Time `json:"created_at"`
}

// Identity is the minimum needed to label a patient in activity feeds.
type Identity struct {
	ID            uuid.UUID
	PatientNumber string
	FirstName     string
	LastName      string
}

type Stats struct {
	Total          int `json:"total_patient"`
	Active         int `json:"active_patient"`
	ScheduledToday int `json:"scheduled_today"`
}

// SearchFilter fields are optional and combined with AND.
type SearchFilter struct {
	Name          string
	Status        string
	ScheduledDate *time.Time
	SurgeonName   string
}
