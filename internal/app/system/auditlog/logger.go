// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/store/audit"
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/domain/models"
	"go.uber.org/zap"
)

// Destination modes.
const (
	ModeAll = "all" // MongoDB + zap
	ModeDB  = "db"  // MongoDB only
	ModeLog = "log" // zap only
	ModeOff = "off"
)

// Config holds audit logging configuration.
type Config struct {
	// Mode is one of all, db, log or off. Empty means all.
	Mode string
}

// Sink persists audit events. *audit.Store satisfies it.
type Sink interface {
	Log(ctx context.Context, event audit.Event) error
}

// Logger provides convenience methods for logging audit events.
// It logs to MongoDB (via Sink) and structured logs (via zap).
type Logger struct {
	store  Sink
	zapLog *zap.Logger
	mode   string
}

// New creates a new audit Logger.
func New(store Sink, zapLog *zap.Logger, config Config) *Logger {
	mode := strings.ToLower(strings.TrimSpace(config.Mode))
	if mode == "" {
		mode = ModeAll
	}
	return &Logger{store: store, zapLog: zapLog, mode: mode}
}

// ValidMode reports whether m is an accepted Config.Mode value.
func ValidMode(m string) bool {
	switch strings.ToLower(strings.TrimSpace(m)) {
	case "", ModeAll, ModeDB, ModeLog, ModeOff:
		return true
	}
	return false
}

// getClientIP extracts the client IP from the request.
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return xff
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}

// logToZap logs the event to zap with consistent structure.
func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
		zap.Bool("success", event.Success),
	}
	if event.IP != "" {
		fields = append(fields, zap.String("ip", event.IP))
	}
	if event.ActorID != nil {
		fields = append(fields, zap.String("actor_id", event.ActorID.Hex()))
	}
	if event.ActorTag != "" {
		fields = append(fields, zap.String("actor_tag", event.ActorTag))
	}
	if event.SubjectID != nil {
		fields = append(fields, zap.String("subject_id", event.SubjectID.Hex()))
	}
	if event.EntityID != "" {
		fields = append(fields, zap.String("entity_id", event.EntityID))
	}
	if event.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", event.FailureReason))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if event.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

// Log records an audit event according to the configured mode.
// If the logger is nil, this is a no-op (allows tests to use nil audit logger).
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil || l.mode == ModeOff {
		return
	}
	if l.mode == ModeAll || l.mode == ModeLog {
		l.logToZap(event)
	}
	if (l.mode == ModeAll || l.mode == ModeDB) && l.store != nil {
		if err := l.store.Log(ctx, event); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", event.EventType),
			)
		}
	}
}

// event fills the actor and request fields shared by every helper.
func event(r *http.Request, actor models.Principal, category, typ string) audit.Event {
	e := audit.Event{Category: category, EventType: typ, Success: true}
	if id, ok := actor.Ref.ID(); ok {
		e.ActorID = &id
	} else {
		e.ActorTag = actor.Ref.Tag()
	}
	if r != nil {
		e.IP = getClientIP(r)
		e.UserAgent = r.UserAgent()
	}
	return e
}

func money(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// --- Target Events ---

// TargetAssigned logs a new target.
func (l *Logger) TargetAssigned(ctx context.Context, r *http.Request, actor models.Principal, t models.Target) {
	e := event(r, actor, audit.CategoryTargets, audit.EventTargetAssigned)
	e.SubjectID = &t.AssignedTo
	e.EntityID = t.ID.Hex()
	e.Details = map[string]string{
		"type":         string(t.Type),
		"target_value": money(t.TargetValue),
	}
	l.Log(ctx, e)
}

// TargetDivided logs a subdivision of parent into n child targets.
func (l *Logger) TargetDivided(ctx context.Context, r *http.Request, actor models.Principal, parent models.Target, n int) {
	e := event(r, actor, audit.CategoryTargets, audit.EventTargetDivided)
	e.SubjectID = &parent.AssignedTo
	e.EntityID = parent.ID.Hex()
	e.Details = map[string]string{"subdivisions": strconv.Itoa(n)}
	l.Log(ctx, e)
}

// TargetCancelled logs a cancelled target.
func (l *Logger) TargetCancelled(ctx context.Context, r *http.Request, actor models.Principal, t models.Target) {
	e := event(r, actor, audit.CategoryTargets, audit.EventTargetCancelled)
	e.SubjectID = &t.AssignedTo
	e.EntityID = t.ID.Hex()
	l.Log(ctx, e)
}

// --- Collection Events ---

// CollectionSubmitted logs a new pending collection.
func (l *Logger) CollectionSubmitted(ctx context.Context, r *http.Request, actor models.Principal, tx models.Transaction) {
	l.Log(ctx, collectionEvent(r, actor, audit.EventCollectionSubmitted, tx))
}

// CollectionVerified logs a verified collection.
func (l *Logger) CollectionVerified(ctx context.Context, r *http.Request, actor models.Principal, tx models.Transaction) {
	l.Log(ctx, collectionEvent(r, actor, audit.EventCollectionVerified, tx))
}

// CollectionRejected logs a rejected collection and its reason.
func (l *Logger) CollectionRejected(ctx context.Context, r *http.Request, actor models.Principal, tx models.Transaction) {
	e := collectionEvent(r, actor, audit.EventCollectionRejected, tx)
	e.Details["reason"] = tx.RejectionReason
	l.Log(ctx, e)
}

func collectionEvent(r *http.Request, actor models.Principal, typ string, tx models.Transaction) audit.Event {
	e := event(r, actor, audit.CategoryCollections, typ)
	e.SubjectID = &tx.UserID
	e.EntityID = tx.ID.Hex()
	e.Details = map[string]string{
		"reference":    tx.Reference,
		"amount":       money(tx.Amount),
		"payment_mode": string(tx.PaymentMode),
	}
	return e
}

// --- Commission Events ---

// CommissionsDistributed logs the rows recorded for one donation.
func (l *Logger) CommissionsDistributed(ctx context.Context, r *http.Request, actor models.Principal, d models.Donation, rows int, total float64) {
	e := event(r, actor, audit.CategoryCommissions, audit.EventCommissionsDistributed)
	e.SubjectID = &d.AttributedUserID
	e.EntityID = d.ID
	e.Details = map[string]string{
		"amount": money(d.Amount),
		"rows":   strconv.Itoa(rows),
		"total":  money(total),
	}
	l.Log(ctx, e)
}

// CommissionPaid logs a payout.
func (l *Logger) CommissionPaid(ctx context.Context, r *http.Request, actor models.Principal, row models.CommissionLog) {
	e := event(r, actor, audit.CategoryCommissions, audit.EventCommissionPaid)
	e.SubjectID = &row.UserID
	e.EntityID = row.DonationID
	e.Details = map[string]string{
		"commission_id": row.ID.Hex(),
		"amount":        money(row.CommissionAmount),
	}
	l.Log(ctx, e)
}

// CommissionFailed logs a failed payout.
func (l *Logger) CommissionFailed(ctx context.Context, r *http.Request, actor models.Principal, row models.CommissionLog) {
	e := event(r, actor, audit.CategoryCommissions, audit.EventCommissionFailed)
	e.SubjectID = &row.UserID
	e.EntityID = row.DonationID
	e.Success = false
	e.FailureReason = row.FailureReason
	e.Details = map[string]string{"commission_id": row.ID.Hex()}
	l.Log(ctx, e)
}

// CommissionsCancelled logs a donation whose pending rows were cancelled.
func (l *Logger) CommissionsCancelled(ctx context.Context, r *http.Request, actor models.Principal, donationID string, n int64) {
	e := event(r, actor, audit.CategoryCommissions, audit.EventCommissionsCancelled)
	e.EntityID = donationID
	e.Details = map[string]string{"rows": strconv.FormatInt(n, 10)}
	l.Log(ctx, e)
}
