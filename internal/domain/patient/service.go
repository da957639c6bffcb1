package patient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/periop/statusboard/internal/domain/clinician"
	"github.com/periop/statusboard/internal/domain/ledger"
	"github.com/periop/statusboard/internal/platform/db"
	"github.com/periop/statusboard/internal/platform/events"
	"github.com/periop/statusboard/pkg/dates"
	"github.com/periop/statusboard/pkg/pagination"
)

// StatusCatalog is the part of the status service the record store needs.
type StatusCatalog interface {
	Exists(ctx context.Context, code string) (bool, error)
}

// Codes names the catalog entries with special meaning to the record store.
type Codes struct {
	// Entry is forced on every new patient.
	Entry string
	// Discharge is the terminal status for the patient stats counters.
	Discharge string
}

type Service struct {
	tx         db.Transactor
	patients   Repository
	ledger     ledger.Repository
	clinicians clinician.Repository
	statuses   StatusCatalog
	codes      Codes

	publisher events.Publisher
	logger    zerolog.Logger
	now       func() time.Time
	newNumber func() string
}

type Option func(*Service)

func WithPublisher(p events.Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithNumberGenerator(gen func() string) Option {
	return func(s *Service) { s.newNumber = gen }
}

func NewService(tx db.Transactor, patients Repository, ledgerRepo ledger.Repository, clinicians clinician.Repository,
	statuses StatusCatalog, codes Codes, opts ...Option) *Service {
	s := &Service{
		tx:         tx,
		patients:   patients,
		ledger:     ledgerRepo,
		clinicians: clinicians,
		statuses:   statuses,
		codes:      codes,
		publisher:  events.Nop{},
		logger:     zerolog.Nop(),
		now:        time.Now,
		newNumber:  GenerateNumber,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) checkStatus(ctx context.Context, code string) error {
	ok, err := s.statuses.Exists(ctx, code)
	if err != nil {
		return fmt.Errorf("check status: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, code)
	}
	return nil
}

func (s *Service) resolveSurgeon(ctx context.Context, name string) (*clinician.Clinician, error) {
	c, err := s.clinicians.GetByName(ctx, name)
	if err != nil {
		if errors.Is(err, clinician.ErrNotFound) {
			return nil, fmt.Errorf("surgeon with name %q: %w", name, clinician.ErrNotFound)
		}
		return nil, fmt.Errorf("resolve surgeon: %w", err)
	}
	return c, nil
}

// Create admits a patient in the entry status and records the opening
// transition in the same transaction.
func (s *Service) Create(ctx context.Context, in CreateInput, actor string) (*CreationSummary, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if err := s.checkStatus(ctx, s.codes.Entry); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	p := &Patient{
		FirstName:     in.FirstName,
		LastName:      in.LastName,
		Address:       in.Address,
		City:          in.City,
		State:         in.State,
		Country:       in.Country,
		Phone:         in.Phone,
		Email:         in.Email,
		Procedure:     in.Procedure,
		ScheduledTime: in.ScheduledTime.UTC(),
		RoomNo:        in.RoomNo,
		Note:          in.Note,
		Status:        s.codes.Entry,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	var rec *ledger.TransitionRecord
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if in.SurgeonName != "" {
			c, err := s.resolveSurgeon(ctx, in.SurgeonName)
			if err != nil {
				return err
			}
			p.SurgeonID = &c.ID
			p.SurgeonName = &c.Name
		}

		if err := s.insertWithFreshNumber(ctx, p); err != nil {
			return err
		}

		rec = &ledger.TransitionRecord{
			PatientID: p.ID,
			NewStatus: p.Status,
			ChangedBy: actor,
			ChangedAt: now,
		}
		if err := s.ledger.Append(ctx, rec); err != nil {
			return fmt.Errorf("append transition: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, p, rec)
	return &CreationSummary{
		PatientNumber: p.PatientNumber,
		Name:          p.DisplayName(),
		Status:        p.Status,
	}, nil
}

// insertWithFreshNumber draws numbers until the store accepts one. The loop
// only ends early when ctx is done.
func (s *Service) insertWithFreshNumber(ctx context.Context, p *Patient) error {
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		p.PatientNumber = s.newNumber()
		err := s.patients.Create(ctx, p)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrNumberTaken) {
			return fmt.Errorf("insert patient: %w", err)
		}
		s.logger.Debug().Str("patient_number", p.PatientNumber).Int("attempt", attempt).
			Msg("patient number collision, retrying")
	}
}

// Update applies a sparse patch. A ledger record is written only when the
// patch carries a status different from the stored one.
func (s *Service) Update(ctx context.Context, number string, patch Patch, actor string) (*Patient, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	if v, ok := patch.Status.Get(); ok {
		if err := s.checkStatus(ctx, v); err != nil {
			return nil, err
		}
	}

	var updated *Patient
	var rec *ledger.TransitionRecord
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		p, err := s.patients.GetByNumberForUpdate(ctx, number)
		if err != nil {
			return err
		}
		previous := p.Status

		var surgeonID *uuid.UUID
		var surgeonName *string
		name, surgeonChanged := patch.SurgeonName.Get()
		if surgeonChanged && name != nil && *name != "" {
			c, err := s.resolveSurgeon(ctx, *name)
			if err != nil {
				return err
			}
			surgeonID, surgeonName = &c.ID, &c.Name
		}

		now := s.now().UTC()
		patch.apply(p, surgeonID, surgeonName, surgeonChanged)
		p.UpdatedAt = now

		if err := s.patients.Update(ctx, p); err != nil {
			return fmt.Errorf("update patient: %w", err)
		}

		if next, ok := patch.Status.Get(); ok && next != previous {
			prev := previous
			rec = &ledger.TransitionRecord{
				PatientID:      p.ID,
				PreviousStatus: &prev,
				NewStatus:      next,
				ChangedBy:      actor,
				ChangedAt:      now,
			}
			if err := s.ledger.Append(ctx, rec); err != nil {
				return fmt.Errorf("append transition: %w", err)
			}
		}
		updated = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	if rec != nil {
		s.publish(ctx, updated, rec)
	}
	return updated, nil
}

// publish runs after commit. A lost event never undoes a committed change.
func (s *Service) publish(ctx context.Context, p *Patient, rec *ledger.TransitionRecord) {
	evt := events.TransitionEvent{
		ID:             rec.ID,
		PatientID:      p.ID,
		PatientNumber:  p.PatientNumber,
		PreviousStatus: rec.PreviousStatus,
		NewStatus:      rec.NewStatus,
		ChangedBy:      rec.ChangedBy,
		ChangedAt:      rec.ChangedAt,
	}
	if err := s.publisher.PublishTransition(ctx, evt); err != nil {
		s.logger.Warn().Err(err).
			Str("patient_number", p.PatientNumber).
			Str("new_status", rec.NewStatus).
			Msg("publish transition event")
	}
}

func (s *Service) GetByNumber(ctx context.Context, number string) (*Patient, error) {
	return s.patients.GetByNumber(ctx, number)
}

func (s *Service) ListPaged(ctx context.Context, params pagination.Params) (*pagination.PagedResult[*PatientSummary], error) {
	params = params.Normalize()
	items, total, err := s.patients.List(ctx, params.Limit(), params.Offset())
	if err != nil {
		return nil, fmt.Errorf("list patients: %w", err)
	}
	return pagination.NewPagedResult(items, total, params), nil
}

func (s *Service) Search(ctx context.Context, f SearchFilter) ([]*Patient, error) {
	items, err := s.patients.Search(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("search patients: %w", err)
	}
	if items == nil {
		items = []*Patient{}
	}
	return items, nil
}

// Stats counts every patient, those not yet discharged, and today's schedule.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	start, end := dates.Day(s.now())
	st, err := s.patients.CountStats(ctx, s.codes.Discharge, start, end)
	if err != nil {
		return nil, fmt.Errorf("patient stats: %w", err)
	}
	return st, nil
}

// Today lists the patients whose procedure is scheduled for the current UTC
// calendar date.
func (s *Service) Today(ctx context.Context) ([]*PatientSummary, error) {
	start, end := dates.Day(s.now())
	items, err := s.patients.ListScheduledBetween(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("today's patients: %w", err)
	}
	if items == nil {
		items = []*PatientSummary{}
	}
	return items, nil
}

// History returns the patient's transitions oldest first.
func (s *Service) History(ctx context.Context, number string) ([]*ledger.TransitionRecord, error) {
	p, err := s.patients.GetByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	recs, err := s.ledger.ListByPatient(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("patient history: %w", err)
	}
	if recs == nil {
		recs = []*ledger.TransitionRecord{}
	}
	return recs, nil
}
