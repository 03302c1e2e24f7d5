// internal/app/features/targets/handler.go
package targets

import (
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/system/auditlog"
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/targeting"
	"go.uber.org/zap"
)

// Handler serves the target assignment endpoints.
type Handler struct {
	Targets *targeting.Service
	Audit   *auditlog.Logger
	Log     *zap.Logger
}

// NewHandler constructs a targets Handler.
func NewHandler(svc *targeting.Service, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{Targets: svc, Audit: audit, Log: logger}
}
