// Package targeting owns fundraising targets: assignment, division among
// direct reports, personal collection and the target state machine.
package targeting

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/hierarchy"
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/system/apperr"
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Repository persists targets. Implementations translate missing records to
// apperr.KindNotFound and duplicate active targets to apperr.KindConflict.
type Repository interface {
	Get(ctx context.Context, id primitive.ObjectID) (models.Target, error)
	// Active returns the PENDING/IN_PROGRESS target of userID for typ, or nil.
	Active(ctx context.Context, userID primitive.ObjectID, typ models.TargetType) (*models.Target, error)
	// Current returns the active target, else the most recent COMPLETED
	// target whose window has not ended at `at`, else nil.
	Current(ctx context.Context, userID primitive.ObjectID, typ models.TargetType, at time.Time) (*models.Target, error)
	// ForUsers returns the non-cancelled targets of typ held by userIDs whose
	// window overlaps [from, to].
	ForUsers(ctx context.Context, userIDs []primitive.ObjectID, typ models.TargetType, from, to time.Time) ([]models.Target, error)
	ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Target, error)
	// ListActive returns every active target of typ.
	ListActive(ctx context.Context, typ models.TargetType) ([]models.Target, error)
	Insert(ctx context.Context, t models.Target) (models.Target, error)
	// Replace writes t if the stored version equals t.Version and returns
	// the stored copy with the bumped version. A mismatch yields
	// apperr.ErrVersionConflict.
	Replace(ctx context.Context, t models.Target) (models.Target, error)
	// Subdivide atomically replaces parent (version-checked like Replace)
	// and inserts children. Either everything is written or nothing is.
	Subdivide(ctx context.Context, parent models.Target, children []models.Target) ([]models.Target, error)
}

const maxWriteAttempts = 3

// Service implements the target operations.
type Service struct {
	repo Repository
	dir  *hierarchy.Directory
	log  *zap.Logger
	now  func() time.Time
}

// New constructs a Service.
func New(repo Repository, dir *hierarchy.Directory, logger *zap.Logger) *Service {
	return &Service{repo: repo, dir: dir, log: logger, now: func() time.Time { return time.Now().UTC() }}
}

// SetClock overrides the time source (tests).
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// AssignInput is an assignment request. AssignedBy comes from the acting principal.
type AssignInput struct {
	AssignedTo  primitive.ObjectID
	Type        models.TargetType
	TargetValue float64
	StartDate   time.Time
	EndDate     time.Time
	Description string
}

// Assign creates a target for in.AssignedTo on behalf of actor.
func (s *Service) Assign(ctx context.Context, actor models.Principal, in AssignInput) (models.Target, error) {
	const op = "assign target"

	if in.Type == "" {
		in.Type = models.TargetDonationCollection
	}
	if in.TargetValue <= 0 {
		return models.Target{}, apperr.Validation(op, "target value must be greater than zero")
	}
	if !in.EndDate.After(in.StartDate) {
		return models.Target{}, apperr.Validation(op, "end date must be after start date")
	}

	assignee, err := s.dir.Node(ctx, in.AssignedTo)
	if err != nil {
		return models.Target{}, err
	}

	if !actor.IsTopAdmin() {
		ok, err := s.dir.IsAncestor(ctx, actor.UserID(), in.AssignedTo)
		if err != nil {
			return models.Target{}, err
		}
		if !ok {
			return models.Target{}, apperr.Permission(op, "assigner is not a superior of the assignee")
		}
	}

	existing, err := s.repo.Active(ctx, in.AssignedTo, in.Type)
	if err != nil {
		return models.Target{}, err
	}
	if existing != nil {
		return models.Target{}, apperr.Conflict(op, "user already has an active %s target", in.Type)
	}

	now := s.now()
	t := models.Target{
		Type:         in.Type,
		AssignedTo:   in.AssignedTo,
		AssignedBy:   actor.UserID(),
		Description:  in.Description,
		TargetValue:  in.TargetValue,
		Status:       models.TargetPending,
		IsActive:     true,
		StartDate:    in.StartDate,
		EndDate:      in.EndDate,
		Subdivisions: []primitive.ObjectID{},
		Region:       assignee.Region,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	return s.repo.Insert(ctx, t)
}

// Division is one share of a parent target.
type Division struct {
	AssignedTo  primitive.ObjectID
	Amount      float64
	Description string
	// Optional window override; zero values inherit the parent's dates.
	StartDate time.Time
	EndDate   time.Time
}

// window resolves d's dates, inheriting the parent's where d leaves them zero.
func (d Division) window(parent models.Target) (start, end time.Time) {
	start, end = parent.StartDate, parent.EndDate
	if !d.StartDate.IsZero() {
		start = d.StartDate
	}
	if !d.EndDate.IsZero() {
		end = d.EndDate
	}
	return start, end
}

// withinWindow rejects a division whose window is empty or reaches outside
// the parent's.
func withinWindow(op string, parent models.Target, d Division) *apperr.Error {
	start, end := d.window(parent)
	switch {
	case start.Before(parent.StartDate):
		return apperr.Validation(op, "start date %s is before the target's start date %s",
			start.Format(time.DateOnly), parent.StartDate.Format(time.DateOnly))
	case end.After(parent.EndDate):
		return apperr.Validation(op, "end date %s is after the target's end date %s",
			end.Format(time.DateOnly), parent.EndDate.Format(time.DateOnly))
	case !end.After(start):
		return apperr.Validation(op, "end date must be after start date")
	}
	return nil
}

// Divide splits parentID among direct reports of its owner. The whole request
// is validated before anything is written; a failing entry aborts the
// operation and the error names it.
func (s *Service) Divide(ctx context.Context, actor models.Principal, parentID primitive.ObjectID, divisions []Division) ([]models.Target, error) {
	const op = "divide target"

	parent, err := s.repo.Get(ctx, parentID)
	if err != nil {
		return nil, err
	}
	if !actor.IsTopAdmin() && actor.UserID() != parent.AssignedTo {
		return nil, apperr.Permission(op, "only the target owner can divide it")
	}
	if parent.IsDivided {
		return nil, apperr.Conflict(op, "target is already divided")
	}
	if parent.Status == models.TargetCancelled {
		return nil, apperr.Conflict(op, "target is cancelled")
	}
	if len(divisions) == 0 {
		return nil, apperr.Validation(op, "at least one division is required")
	}

	var sum float64
	seen := make(map[primitive.ObjectID]int, len(divisions))
	for i, d := range divisions {
		entry := fmt.Sprintf("divisions[%d]", i)
		if d.AssignedTo.IsZero() {
			return nil, apperr.Validation(op, "assignee is required").WithEntry(entry)
		}
		if d.Amount <= 0 {
			return nil, apperr.Validation(op, "amount must be greater than zero").WithEntry(entry)
		}
		if j, dup := seen[d.AssignedTo]; dup {
			return nil, apperr.Validation(op, "assignee repeats divisions[%d]", j).WithEntry(entry)
		}
		seen[d.AssignedTo] = i
		if err := withinWindow(op, parent, d); err != nil {
			return nil, err.WithEntry(entry)
		}
		sum += d.Amount
	}
	if sum > parent.TargetValue {
		return nil, apperr.Validation(op, "divisions total %.2f exceeds target value %.2f", sum, parent.TargetValue)
	}

	now := s.now()
	children := make([]models.Target, 0, len(divisions))
	for i, d := range divisions {
		entry := fmt.Sprintf("divisions[%d]", i)

		child, err := s.dir.Node(ctx, d.AssignedTo)
		if err != nil {
			var ae *apperr.Error
			if errors.As(err, &ae) {
				return nil, ae.WithEntry(entry)
			}
			return nil, err
		}
		if child.ParentID == nil || *child.ParentID != parent.AssignedTo {
			return nil, apperr.Permission(op, "assignee is not a direct report of the target owner").WithEntry(entry)
		}
		active, err := s.repo.Active(ctx, d.AssignedTo, parent.Type)
		if err != nil {
			return nil, err
		}
		if active != nil {
			return nil, apperr.Conflict(op, "assignee already has an active %s target", parent.Type).WithEntry(entry)
		}

		start, end := d.window(parent)

		pid := parent.ID
		children = append(children, models.Target{
			ID:             primitive.NewObjectID(),
			Type:           parent.Type,
			AssignedTo:     d.AssignedTo,
			AssignedBy:     parent.AssignedTo,
			Description:    d.Description,
			TargetValue:    d.Amount,
			Status:         models.TargetPending,
			IsActive:       true,
			StartDate:      start,
			EndDate:        end,
			ParentTargetID: &pid,
			Subdivisions:   []primitive.ObjectID{},
			Region:         child.Region,
			CreatedAt:      now,
			UpdatedAt:      now,
		})
	}

	parent.IsDivided = true
	for _, c := range children {
		parent.Subdivisions = append(parent.Subdivisions, c.ID)
	}
	parent.UpdatedAt = now

	created, err := s.repo.Subdivide(ctx, parent, children)
	if errors.Is(err, apperr.ErrVersionConflict) {
		return nil, apperr.Conflict(op, "target was modified while dividing; retry")
	}
	if err != nil {
		return nil, err
	}

	s.log.Info("target divided",
		zap.String("target_id", parent.ID.Hex()),
		zap.Int("divisions", len(created)),
		zap.Float64("divided_value", sum))
	return created, nil
}

// RecordPersonalCollection adds a verified amount to the target's personal
// collection and recomputes its status.
func (s *Service) RecordPersonalCollection(ctx context.Context, targetID primitive.ObjectID, amount float64) (models.Target, error) {
	const op = "record collection"
	if amount <= 0 {
		return models.Target{}, apperr.Validation(op, "amount must be greater than zero")
	}

	for attempt := 1; ; attempt++ {
		t, err := s.repo.Get(ctx, targetID)
		if err != nil {
			return models.Target{}, err
		}
		if t.Status == models.TargetCancelled {
			return models.Target{}, apperr.Conflict(op, "target is cancelled")
		}

		now := s.now()
		t.PersonalCollection += amount
		applyStatus(&t, now)
		t.UpdatedAt = now

		saved, err := s.repo.Replace(ctx, t)
		if err == nil {
			return saved, nil
		}
		if !errors.Is(err, apperr.ErrVersionConflict) || attempt >= maxWriteAttempts {
			return models.Target{}, err
		}
		s.log.Debug("retrying personal collection after version conflict",
			zap.String("target_id", targetID.Hex()),
			zap.Int("attempt", attempt))
	}
}

// Cancel moves a non-terminal target to CANCELLED. The assigner, any
// superior of the assignee, or a top administrator may cancel.
func (s *Service) Cancel(ctx context.Context, actor models.Principal, targetID primitive.ObjectID) (models.Target, error) {
	const op = "cancel target"

	t, err := s.repo.Get(ctx, targetID)
	if err != nil {
		return models.Target{}, err
	}
	if !actor.IsTopAdmin() && actor.UserID() != t.AssignedBy {
		ok, err := s.dir.IsAncestor(ctx, actor.UserID(), t.AssignedTo)
		if err != nil {
			return models.Target{}, err
		}
		if !ok {
			return models.Target{}, apperr.Permission(op, "only the assigner or a superior can cancel this target")
		}
	}
	if t.Status.IsTerminal() {
		return models.Target{}, apperr.Conflict(op, "target is already %s", t.Status)
	}

	now := s.now()
	t.Status = models.TargetCancelled
	t.IsActive = false
	t.CancelledAt = &now
	t.UpdatedAt = now

	saved, err := s.repo.Replace(ctx, t)
	if errors.Is(err, apperr.ErrVersionConflict) {
		return models.Target{}, apperr.Conflict(op, "target was modified concurrently; retry")
	}
	return saved, err
}

// CanView reports whether actor may read t: its owner, its assigner, a
// superior of the owner or a top administrator.
func (s *Service) CanView(ctx context.Context, actor models.Principal, t models.Target) (bool, error) {
	if actor.IsTopAdmin() {
		return true, nil
	}
	if actor.Ref.IsSynthetic() {
		return false, nil
	}
	id := actor.UserID()
	if id == t.AssignedTo || id == t.AssignedBy {
		return true, nil
	}
	return s.dir.IsAncestor(ctx, id, t.AssignedTo)
}

// Get returns the view of a single target.
func (s *Service) Get(ctx context.Context, id primitive.ObjectID) (View, error) {
	t, err := s.repo.Get(ctx, id)
	if err != nil {
		return View{}, err
	}
	return NewView(t, s.now()), nil
}

// ListForUser returns views of every target assigned to userID.
func (s *Service) ListForUser(ctx context.Context, userID primitive.ObjectID) ([]View, error) {
	ts, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	out := make([]View, 0, len(ts))
	for _, t := range ts {
		out = append(out, NewView(t, now))
	}
	return out, nil
}

// Active returns the active target of userID for typ, or nil.
func (s *Service) Active(ctx context.Context, userID primitive.ObjectID, typ models.TargetType) (*models.Target, error) {
	return s.repo.Active(ctx, userID, typ)
}

// Current returns the target collections of userID are credited to.
func (s *Service) Current(ctx context.Context, userID primitive.ObjectID, typ models.TargetType, at time.Time) (*models.Target, error) {
	return s.repo.Current(ctx, userID, typ, at)
}
