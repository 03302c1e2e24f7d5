// internal/app/features/targets/assign.go
package targets

import (
	"net/http"

	uierrors "github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/features/errors"
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/system/apperr"
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/system/htmlsanitize"
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/system/inputval"
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/system/timeouts"
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/targeting"
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// HandleAssign creates a target for a subordinate.
func (h *Handler) HandleAssign(w http.ResponseWriter, r *http.Request) {
	actor, ok := uierrors.Principal(w, r)
	if !ok {
		return
	}

	var in assignRequest
	if err := uierrors.Decode(w, r, &in); err != nil {
		uierrors.Write(w, r, h.Log, "assign target", err)
		return
	}
	if res := inputval.Validate(in); res.HasErrors() {
		uierrors.Write(w, r, h.Log, "assign target", apperr.Validation("assign target", "%s", res.All()))
		return
	}
	assignee, _ := primitive.ObjectIDFromHex(in.AssignedTo)
	typ, _ := models.ParseTargetType(in.Type)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "assign target")
	defer cancel()

	t, err := h.Targets.Assign(ctx, actor, targeting.AssignInput{
		AssignedTo:  assignee,
		Type:        typ,
		TargetValue: in.TargetValue,
		StartDate:   in.StartDate,
		EndDate:     in.EndDate,
		Description: htmlsanitize.PlainText(in.Description),
	})
	if err != nil {
		uierrors.Write(w, r, h.Log, "assign target", err)
		return
	}

	h.Audit.TargetAssigned(ctx, r, actor, t)
	h.Log.Info("target assigned",
		zap.String("target_id", t.ID.Hex()),
		zap.String("assigned_to", t.AssignedTo.Hex()),
		zap.String("actor", actor.Ref.String()))
	uierrors.WriteJSON(w, http.StatusCreated, targeting.NewView(t, t.CreatedAt))
}
