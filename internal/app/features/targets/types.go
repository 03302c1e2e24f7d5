// internal/app/features/targets/types.go
package targets

import (
	"time"

	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/targeting"
)

// assignRequest is the body of POST /targets.
type assignRequest struct {
	AssignedTo  string    `json:"assigned_to" validate:"required,objectid" label:"Assignee"`
	Type        string    `json:"type" validate:"omitempty,targettype" label:"Target type"`
	TargetValue float64   `json:"target_value" validate:"gt=0" label:"Target value"`
	StartDate   time.Time `json:"start_date" validate:"required" label:"Start date"`
	EndDate     time.Time `json:"end_date" validate:"required,gtfield=StartDate" label:"End date"`
	Description string    `json:"description" validate:"max=1000" label:"Description"`
}

type divisionRequest struct {
	AssignedTo  string     `json:"assigned_to"`
	Amount      float64    `json:"amount"`
	Description string     `json:"description"`
	StartDate   *time.Time `json:"start_date,omitempty"`
	EndDate     *time.Time `json:"end_date,omitempty"`
}

// divideRequest is the body of POST /targets/{id}/divide.
type divideRequest struct {
	Divisions []divisionRequest `json:"divisions"`
}

type divideResponse struct {
	ParentID string           `json:"parent_id"`
	Children []targeting.View `json:"children"`
}

type listResponse struct {
	Targets []targeting.View `json:"targets"`
}
