// internal/app/features/auditlog/list.go
package auditlog

import (
	"net/http"
	"strings"
	"time"

	uierrors "github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/features/errors"
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/store/audit"
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/system/apperr"
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/system/normalize"
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/system/paging"
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const dateLayout = "2006-01-02"

type eventView struct {
	ID            string            `json:"id"`
	Timestamp     time.Time         `json:"timestamp"`
	Category      string            `json:"category"`
	EventType     string            `json:"event_type"`
	ActorID       string            `json:"actor_id,omitempty"`
	ActorTag      string            `json:"actor_tag,omitempty"`
	SubjectID     string            `json:"subject_id,omitempty"`
	EntityID      string            `json:"entity_id,omitempty"`
	IP            string            `json:"ip,omitempty"`
	Success       bool              `json:"success"`
	FailureReason string            `json:"failure_reason,omitempty"`
	Details       map[string]string `json:"details,omitempty"`
}

type listResponse struct {
	Events []eventView `json:"events"`
	// Next is the cursor for the following page; empty on the last page.
	Next string `json:"next,omitempty"`
}

func toView(e audit.Event) eventView {
	v := eventView{
		ID:            e.ID.Hex(),
		Timestamp:     e.Timestamp,
		Category:      e.Category,
		EventType:     e.EventType,
		ActorTag:      e.ActorTag,
		EntityID:      e.EntityID,
		IP:            e.IP,
		Success:       e.Success,
		FailureReason: e.FailureReason,
		Details:       e.Details,
	}
	if e.ActorID != nil {
		v.ActorID = e.ActorID.Hex()
	}
	if e.SubjectID != nil {
		v.SubjectID = e.SubjectID.Hex()
	}
	return v
}

// ServeList handles GET /audit.
//
// Query parameters: category, event_type, entity_id, actor_id, subject_id,
// start_date and end_date (YYYY-MM-DD, inclusive), limit, after.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	const op = "list audit events"

	actor, ok := uierrors.Principal(w, r)
	if !ok {
		return
	}
	filter, limit, err := parseFilter(r)
	if err != nil {
		uierrors.Write(w, r, h.Log, op, err)
		return
	}

	// Everyone but a top administrator is confined to their own history.
	if !actor.IsTopAdmin() {
		self := actor.UserID()
		if filter.SubjectID != nil && *filter.SubjectID != self {
			uierrors.Write(w, r, h.Log, op, apperr.Permission(op, "you may only view your own audit history"))
			return
		}
		filter.SubjectID = &self
		filter.ActorID = nil
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, op)
	defer cancel()

	filter.Limit = int64(limit + 1)
	events, err := h.Events.Query(ctx, filter)
	if err != nil {
		uierrors.Write(w, r, h.Log, op, err)
		return
	}
	more := paging.TrimPage(&events, limit)

	out := listResponse{Events: make([]eventView, 0, len(events))}
	for _, e := range events {
		out.Events = append(out.Events, toView(e))
	}
	if more {
		last := events[len(events)-1]
		out.Next = paging.Cursor{At: last.Timestamp, ID: last.ID}.Encode()
	}
	uierrors.WriteJSON(w, http.StatusOK, out)
}

func parseFilter(r *http.Request) (audit.QueryFilter, int, error) {
	const op = "parse audit filter"
	q := r.URL.Query()

	f := audit.QueryFilter{
		Category:  normalize.Status(q.Get("category")),
		EventType: normalize.Status(q.Get("event_type")),
		EntityID:  normalize.QueryParam(q.Get("entity_id")),
	}

	for _, p := range []struct {
		name string
		dst  **primitive.ObjectID
	}{{"actor_id", &f.ActorID}, {"subject_id", &f.SubjectID}} {
		id, err := uierrors.OptionalID(p.name, q.Get(p.name))
		if err != nil {
			return f, 0, err
		}
		if !id.IsZero() {
			*p.dst = &id
		}
	}

	if raw := strings.TrimSpace(q.Get("start_date")); raw != "" {
		t, err := time.Parse(dateLayout, raw)
		if err != nil {
			return f, 0, apperr.Validation(op, "start_date must be YYYY-MM-DD")
		}
		f.StartTime = &t
	}
	if raw := strings.TrimSpace(q.Get("end_date")); raw != "" {
		t, err := time.Parse(dateLayout, raw)
		if err != nil {
			return f, 0, apperr.Validation(op, "end_date must be YYYY-MM-DD")
		}
		endOfDay := t.Add(24*time.Hour - time.Nanosecond)
		f.EndTime = &endOfDay
	}
	if f.StartTime != nil && f.EndTime != nil && f.EndTime.Before(*f.StartTime) {
		return f, 0, apperr.Validation(op, "end_date is before start_date")
	}

	if raw := strings.TrimSpace(q.Get("after")); raw != "" {
		c, ok := paging.Decode(raw)
		if !ok {
			return f, 0, apperr.Validation(op, "after is not a valid cursor")
		}
		f.After = &c
	}

	limit, ok := paging.ParseLimit(q.Get("limit"))
	if !ok {
		return f, 0, apperr.Validation(op, "limit must be a positive integer")
	}
	return f, limit, nil
}
