// internal/app/system/paging/paging.go

// Package paging implements newest-first keyset pagination over a
// timestamp field with _id as the tie-breaker.
package paging

import (
	"strconv"
	"strings"
	"time"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Page sizes.
const (
	PageSize    = 50
	MaxPageSize = 200
)

// ParseLimit reads a page size. Blank means PageSize; values above
// MaxPageSize are clamped. ok is false for anything that is not a
// positive integer.
func ParseLimit(raw string) (n int, ok bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return PageSize, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, false
	}
	if n > MaxPageSize {
		n = MaxPageSize
	}
	return n, true
}

// Cursor is a position in a (field desc, _id desc) listing.
type Cursor struct {
	At time.Time
	ID primitive.ObjectID
}

// Encode renders c as an opaque token.
func (c Cursor) Encode() string {
	return wafflemongo.EncodeCursor(c.At.UTC().Format(time.RFC3339Nano), c.ID)
}

// Decode parses a token produced by Encode.
func Decode(token string) (Cursor, bool) {
	raw, ok := wafflemongo.DecodeCursor(strings.TrimSpace(token))
	if !ok {
		return Cursor{}, false
	}
	at, err := time.Parse(time.RFC3339Nano, raw.CI)
	if err != nil {
		return Cursor{}, false
	}
	return Cursor{At: at, ID: raw.ID}, true
}

// Older returns the filter selecting rows that sort after c, i.e. are
// strictly older or share its timestamp with a smaller _id.
func (c Cursor) Older(field string) bson.M {
	return bson.M{"$or": bson.A{
		bson.M{field: bson.M{"$lt": c.At}},
		bson.M{field: c.At, "_id": bson.M{"$lt": c.ID}},
	}}
}

// Sort is the order Older assumes.
func Sort(field string) bson.D {
	return bson.D{{Key: field, Value: -1}, {Key: "_id", Value: -1}}
}

// TrimPage trims rows fetched with a limit of size+1 and reports whether
// another page exists.
func TrimPage[T any](rows *[]T, size int) (hasNext bool) {
	if len(*rows) > size {
		*rows = (*rows)[:size]
		return true
	}
	return false
}
