// internal/app/features/commissions/handler.go
package commissions

import (
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/commission"
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/system/auditlog"
	"go.uber.org/zap"
)

// Handler serves donation intake and commission payouts.
type Handler struct {
	Engine *commission.Engine
	Audit  *auditlog.Logger
	Log    *zap.Logger
}

// NewHandler constructs a commissions Handler.
func NewHandler(e *commission.Engine, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{Engine: e, Audit: audit, Log: logger}
}
