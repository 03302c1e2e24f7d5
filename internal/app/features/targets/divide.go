// internal/app/features/targets/divide.go
package targets

import (
	"fmt"
	"net/http"

	uierrors "github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/features/errors"
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/system/htmlsanitize"
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/system/timeouts"
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/targeting"
)

// HandleDivide splits a target among direct reports of its owner.
func (h *Handler) HandleDivide(w http.ResponseWriter, r *http.Request) {
	const op = "divide target"

	actor, ok := uierrors.Principal(w, r)
	if !ok {
		return
	}
	parentID, err := uierrors.PathID(r, "id")
	if err != nil {
		uierrors.Write(w, r, h.Log, op, err)
		return
	}

	var in divideRequest
	if err := uierrors.Decode(w, r, &in); err != nil {
		uierrors.Write(w, r, h.Log, op, err)
		return
	}
	divisions := make([]targeting.Division, 0, len(in.Divisions))
	for i, d := range in.Divisions {
		id, err := uierrors.OptionalID(fmt.Sprintf("divisions[%d].assigned_to", i), d.AssignedTo)
		if err != nil {
			uierrors.Write(w, r, h.Log, op, err)
			return
		}
		div := targeting.Division{
			AssignedTo:  id,
			Amount:      d.Amount,
			Description: htmlsanitize.PlainText(d.Description),
		}
		if d.StartDate != nil {
			div.StartDate = *d.StartDate
		}
		if d.EndDate != nil {
			div.EndDate = *d.EndDate
		}
		divisions = append(divisions, div)
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, op)
	defer cancel()

	children, err := h.Targets.Divide(ctx, actor, parentID, divisions)
	if err != nil {
		uierrors.Write(w, r, h.Log, op, err)
		return
	}

	if parent, err := h.Targets.Get(ctx, parentID); err == nil {
		h.Audit.TargetDivided(ctx, r, actor, parent.Target, len(children))
	}

	out := divideResponse{ParentID: parentID.Hex(), Children: make([]targeting.View, len(children))}
	for i, c := range children {
		out.Children[i] = targeting.NewView(c, c.CreatedAt)
	}
	uierrors.WriteJSON(w, http.StatusCreated, out)
}
