// Package memstore holds in-memory repositories for engine tests. Every
// type is safe for concurrent use.
package memstore

import (
	"context"
	"sync"

	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/hierarchy"
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/system/apperr"
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Users implements hierarchy.UserSource.
type Users struct {
	mu    sync.RWMutex
	nodes map[primitive.ObjectID]hierarchy.Node
	order []primitive.ObjectID
}

// NewUsers returns an empty user set.
func NewUsers() *Users {
	return &Users{nodes: make(map[primitive.ObjectID]hierarchy.Node)}
}

// Add creates a user under parent (nil for a root) and returns its id.
func (u *Users) Add(name string, role models.Role, parent *primitive.ObjectID) primitive.ObjectID {
	return u.AddInRegion(name, role, parent, models.Region{})
}

// AddInRegion is Add with a region.
func (u *Users) AddInRegion(name string, role models.Role, parent *primitive.ObjectID, region models.Region) primitive.ObjectID {
	u.mu.Lock()
	defer u.mu.Unlock()
	id := primitive.NewObjectID()
	n := hierarchy.Node{ID: id, Name: name, Role: role, Region: region}
	if parent != nil {
		p := *parent
		n.ParentID = &p
	}
	u.nodes[id] = n
	u.order = append(u.order, id)
	return id
}

// SetParent rewires id. It performs no validation so tests can build
// cycles and dangling references.
func (u *Users) SetParent(id primitive.ObjectID, parent *primitive.ObjectID) {
	u.mu.Lock()
	defer u.mu.Unlock()
	n := u.nodes[id]
	if parent == nil {
		n.ParentID = nil
	} else {
		p := *parent
		n.ParentID = &p
	}
	u.nodes[id] = n
}

// GetNode implements hierarchy.UserSource.
func (u *Users) GetNode(_ context.Context, id primitive.ObjectID) (hierarchy.Node, error) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	n, ok := u.nodes[id]
	if !ok {
		return hierarchy.Node{}, apperr.NotFound("get user", "user %s not found", id.Hex())
	}
	return n, nil
}

// ChildIDs implements hierarchy.UserSource, in insertion order.
func (u *Users) ChildIDs(_ context.Context, parentID primitive.ObjectID) ([]primitive.ObjectID, error) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	var out []primitive.ObjectID
	for _, id := range u.order {
		n := u.nodes[id]
		if n.ParentID != nil && *n.ParentID == parentID {
			out = append(out, id)
		}
	}
	return out, nil
}

func (u *Users) lookup(id primitive.ObjectID) (hierarchy.Node, bool) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	n, ok := u.nodes[id]
	return n, ok
}
