package clinician

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("clinician not found")

// Clinician is a member of the surgical staff that patients can be assigned to.
type Clinician struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}
