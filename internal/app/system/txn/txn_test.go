package txn_test

import (
	"context"
	"errors"
	"testing"

	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/system/txn"
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func TestIsNotSupported(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"illegal operation code", mongo.CommandError{Code: 20, Message: "x"}, true},
		{"legacy code", mongo.CommandError{Code: 51}, true},
		{"not supported in transaction", mongo.CommandError{Code: 263}, true},
		{"standalone message", errors.New("Transaction numbers are only allowed on a replica set member or mongos"), true},
		{"sessions not supported", errors.New("Sessions NOT SUPPORTED here"), true},
		{"illegal operation text", errors.New("Illegal Operation"), true},
		{"duplicate key", mongo.CommandError{Code: 11000, Message: "E11000 duplicate key"}, false},
		{"timeout", context.DeadlineExceeded, false},
		{"unrelated", errors.New("connection refused"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := txn.IsNotSupported(tt.err); got != tt.want {
				t.Errorf("IsNotSupported(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestRun_CommitsBothWrites(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	err := txn.Run(ctx, db, zap.NewNop(), func(ctx context.Context) error {
		if _, err := db.Collection("targets").InsertOne(ctx, bson.M{"n": 1}); err != nil {
			return err
		}
		_, err := db.Collection("targets").InsertOne(ctx, bson.M{"n": 2})
		return err
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	n, err := db.Collection("targets").CountDocuments(ctx, bson.M{})
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 2 {
		t.Errorf("count = %d, want 2", n)
	}
}

func TestRun_ReturnsCallbackError(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	boom := errors.New("boom")
	err := txn.Run(ctx, db, zap.NewNop(), func(context.Context) error { return boom })
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want boom", err)
	}
}
