package timeouts_test

import (
	"context"
	"testing"
	"time"

	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/system/timeouts"
	"go.uber.org/zap"
)

func TestConfigure_KeepsZeroTiers(t *testing.T) {
	t.Cleanup(timeouts.Reset)

	timeouts.Configure(timeouts.Config{Long: 45 * time.Second})

	if got := timeouts.Long(); got != 45*time.Second {
		t.Errorf("Long = %v, want 45s", got)
	}
	if got := timeouts.Short(); got != timeouts.DefaultShort {
		t.Errorf("Short = %v, want default %v", got, timeouts.DefaultShort)
	}
}

func TestConfigureFromEnv(t *testing.T) {
	t.Cleanup(timeouts.Reset)
	t.Setenv("FUNDHUB_TIMEOUT_PING", "500ms")
	t.Setenv("FUNDHUB_TIMEOUT_BATCH", "2m")
	t.Setenv("FUNDHUB_TIMEOUT_MEDIUM", "soon")
	t.Setenv("FUNDHUB_TIMEOUT_LONG", "-1s")

	if n := timeouts.ConfigureFromEnv(); n != 2 {
		t.Errorf("configured = %d, want 2", n)
	}
	got := timeouts.Current()
	want := timeouts.Config{
		Ping:   500 * time.Millisecond,
		Short:  timeouts.DefaultShort,
		Medium: timeouts.DefaultMedium,
		Long:   timeouts.DefaultLong,
		Batch:  2 * time.Minute,
	}
	if got != want {
		t.Errorf("Current = %+v, want %+v", got, want)
	}
}

func TestReset(t *testing.T) {
	timeouts.Configure(timeouts.Config{Ping: time.Hour})
	timeouts.Reset()
	if got := timeouts.Ping(); got != timeouts.DefaultPing {
		t.Errorf("Ping after Reset = %v", got)
	}
}

func TestWithTimeout_Deadline(t *testing.T) {
	ctx, cancel := timeouts.WithTimeout(context.Background(), time.Millisecond, zap.NewNop(), "test op")
	<-ctx.Done()
	cancel()
	if ctx.Err() != context.DeadlineExceeded {
		t.Errorf("err = %v, want deadline exceeded", ctx.Err())
	}
}
