package patient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/periop/statusboard/pkg/dates"
)

// Optional distinguishes a field that was not sent from one that was sent,
// even when the sent value equals the current one.
type Optional[T any] struct {
	value T
	set   bool
	null  bool
}

func Some[T any](v T) Optional[T] {
	return Optional[T]{value: v, set: true}
}

func (o Optional[T]) Get() (T, bool) {
	return o.value, o.set
}

func (o Optional[T]) IsSet() bool {
	return o.set
}

// IsNull reports an explicit JSON null.
func (o Optional[T]) IsNull() bool {
	return o.null
}

func (o *Optional[T]) UnmarshalJSON(b []byte) error {
	o.set = true
	o.null = bytes.Equal(bytes.TrimSpace(b), []byte("null"))
	return json.Unmarshal(b, &o.value)
}

// Patch is a sparse update. Unset fields leave the stored value untouched.
// Nullable columns use pointer types, so an explicit null clears them.
type Patch struct {
	FirstName     Optional[string]          `json:"first_name"`
	LastName      Optional[string]          `json:"last_name"`
	Address       Optional[string]          `json:"address"`
	City          Optional[string]          `json:"city"`
	State         Optional[string]          `json:"state"`
	Country       Optional[string]          `json:"country"`
	Phone         Optional[string]          `json:"phone"`
	Email         Optional[string]          `json:"email"`
	Procedure     Optional[string]          `json:"procedure"`
	ScheduledTime Optional[dates.Timestamp] `json:"scheduled_time"`
	SurgeonName   Optional[*string]         `json:"surgeon_name"`
	RoomNo        Optional[*string]         `json:"room_no"`
	Note          Optional[*string]         `json:"note"`
	Status        Optional[string]          `json:"status"`
}

// Validate rejects nulls and blanks on columns that cannot be empty.
func (p *Patch) Validate() error {
	notBlank := []struct {
		name string
		opt  Optional[string]
	}{
		{"first_name", p.FirstName},
		{"last_name", p.LastName},
		{"procedure", p.Procedure},
		{"status", p.Status},
	}
	for _, f := range notBlank {
		if v, ok := f.opt.Get(); ok && strings.TrimSpace(v) == "" {
			return fmt.Errorf("%w: %s cannot be empty", ErrInvalidInput, f.name)
		}
	}

	notNull := []struct {
		name string
		opt  Optional[string]
	}{
		{"address", p.Address},
		{"city", p.City},
		{"state", p.State},
		{"country", p.Country},
		{"phone", p.Phone},
		{"email", p.Email},
	}
	for _, f := range notNull {
		if f.opt.IsNull() {
			return fmt.Errorf("%w: %s cannot be null", ErrInvalidInput, f.name)
		}
	}
	if ts, ok := p.ScheduledTime.Get(); ok && ts.IsZero() {
		return fmt.Errorf("%w: scheduled_time cannot be null", ErrInvalidInput)
	}
	return nil
}

// apply copies every set field onto dst. The surgeon reference is resolved by
// the service beforehand and passed in; surgeonChanged is false when the
// patch did not touch it.
func (p *Patch) apply(dst *Patient, surgeonID *uuid.UUID, surgeonName *string, surgeonChanged bool) {
	setString := func(o Optional[string], field *string) {
		if v, ok := o.Get(); ok {
			*field = v
		}
	}
	setString(p.FirstName, &dst.FirstName)
	setString(p.LastName, &dst.LastName)
	setString(p.Address, &dst.Address)
	setString(p.City, &dst.City)
	setString(p.State, &dst.State)
	setString(p.Country, &dst.Country)
	setString(p.Phone, &dst.Phone)
	setString(p.Email, &dst.Email)
	setString(p.Procedure, &dst.Procedure)
	setString(p.Status, &dst.Status)

	if ts, ok := p.ScheduledTime.Get(); ok {
		dst.ScheduledTime = ts.UTC()
	}
	if v, ok := p.RoomNo.Get(); ok {
		dst.RoomNo = v
	}
	if v, ok := p.Note.Get(); ok {
		dst.Note = v
	}
	if surgeonChanged {
		dst.SurgeonID = surgeonID
		dst.SurgeonName = surgeonName
	}
}
