// internal/app/features/errors/request.go
package errors

import (
	"net/http"
	"strings"

	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/system/apperr"
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/system/authz"
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Principal resolves the acting principal or answers 401 and returns false.
func Principal(w http.ResponseWriter, r *http.Request) (models.Principal, bool) {
	p, ok := authz.Principal(r)
	if !ok {
		WriteJSON(w, http.StatusUnauthorized, Body{Error: "unauthorized", Message: "Please sign in to continue."})
		return models.Principal{}, false
	}
	return p, true
}

// PathID parses the chi URL parameter key as an ObjectID.
func PathID(r *http.Request, key string) (primitive.ObjectID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, key))
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return primitive.NilObjectID, apperr.Validation("parse "+key, "%q is not a valid id", raw)
	}
	return id, nil
}

// OptionalID parses raw as an ObjectID; "" yields NilObjectID.
func OptionalID(field, raw string) (primitive.ObjectID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return primitive.NilObjectID, nil
	}
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return primitive.NilObjectID, apperr.Validation("parse "+field, "%s %q is not a valid id", field, raw)
	}
	return id, nil
}
