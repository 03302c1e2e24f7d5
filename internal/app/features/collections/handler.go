// internal/app/features/collections/handler.go
package collections

import (
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/ledger"
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/system/auditlog"
	"go.uber.org/zap"
)

// Handler serves collection reporting and review.
type Handler struct {
	Ledger *ledger.Ledger
	Audit  *auditlog.Logger
	Log    *zap.Logger
}

// NewHandler constructs a collections Handler.
func NewHandler(l *ledger.Ledger, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{Ledger: l, Audit: audit, Log: logger}
}
