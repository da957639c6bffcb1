package patient

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func decodePatch(t *testing.T, body string) Patch {
	t.Helper()
	var p Patch
	if err := json.Unmarshal([]byte(body), &p); err != nil {
		t.Fatalf("decode %s: %v", body, err)
	}
	return p
}

func TestPatch_AbsentVersusPresent(t *testing.T) {
	p := decodePatch(t, `{"phone":"555-0100"}`)

	if p.Status.IsSet() {
		t.Error("absent status must be unset")
	}
	if v, ok := p.Phone.Get(); !ok || v != "555-0100" {
		t.Errorf("expected phone set, got %q %v", v, ok)
	}
}

func TestPatch_PresentButUnchangedIsSet(t *testing.T) {
	p := decodePatch(t, `{"status":"Checked In"}`)

	v, ok := p.Status.Get()
	if !ok || v != "Checked In" {
		t.Errorf("expected status set to Checked In, got %q %v", v, ok)
	}
}

func TestPatch_NullClearsNullableField(t *testing.T) {
	p := decodePatch(t, `{"room_no":null,"note":"NPO since midnight"}`)

	v, ok := p.RoomNo.Get()
	if !ok || v != nil || !p.RoomNo.IsNull() {
		t.Errorf("expected room_no explicitly null, got %v %v", v, ok)
	}

	room := "OR-1"
	dst := &Patient{RoomNo: &room}
	p.apply(dst, nil, nil, false)
	if dst.RoomNo != nil {
		t.Error("expected room cleared")
	}
	if dst.Note == nil || *dst.Note != "NPO since midnight" {
		t.Errorf("expected note set, got %v", dst.Note)
	}
}

func TestPatch_Validate(t *testing.T) {
	tests := []struct {
		name string
		body string
		ok   bool
	}{
		{"empty patch", `{}`, true},
		{"status", `{"status":"Recovery"}`, true},
		{"blank status", `{"status":"  "}`, false},
		{"null status", `{"status":null}`, false},
		{"null first name", `{"first_name":null}`, false},
		{"null city", `{"city":null}`, false},
		{"empty city", `{"city":""}`, true},
		{"null scheduled time", `{"scheduled_time":null}`, false},
		{"null note", `{"note":null}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := decodePatch(t, tt.body)
			err := p.Validate()
			if tt.ok && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !tt.ok && !errors.Is(err, ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestPatch_ApplyLeavesUnsetFields(t *testing.T) {
	surgeon := uuid.New()
	name := "Dr. Grey"
	dst := &Patient{
		FirstName:     "Ada",
		LastName:      "Lovelace",
		City:          "London",
		Status:        "Checked In",
		ScheduledTime: time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC),
		SurgeonID:     &surgeon,
		SurgeonName:   &name,
	}
	p := decodePatch(t, `{"city":"Cambridge","scheduled_time":"2025-03-10T12:00:00+01:00"}`)

	p.apply(dst, nil, nil, false)

	if dst.City != "Cambridge" {
		t.Errorf("expected city updated, got %q", dst.City)
	}
	if !dst.ScheduledTime.Equal(time.Date(2025, 3, 10, 11, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected scheduled time %v", dst.ScheduledTime)
	}
	if dst.FirstName != "Ada" || dst.Status != "Checked In" {
		t.Errorf("unset fields changed: %+v", dst)
	}
	if dst.SurgeonID == nil || *dst.SurgeonID != surgeon {
		t.Error("surgeon must be untouched when not patched")
	}
}

func TestPatch_BadTimestamp(t *testing.T) {
	var p Patch
	if err := json.Unmarshal([]byte(`{"scheduled_time":"next tuesday"}`), &p); err == nil {
		t.Error("expected decode error")
	}
}
