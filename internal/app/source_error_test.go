package app

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/agis/bookcal/internal/source"
)

func TestAnnotateSourceErrorTimeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()

	err := annotateSourceError(ctx, "source.doctor", ctx.Err())
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("annotated error should unwrap to deadline exceeded: %v", err)
	}
	if !strings.HasPrefix(err.Error(), "source.doctor timed out after deadline") {
		t.Fatalf("unexpected message: %q", err.Error())
	}
	meta := sourceErrorMeta(err)
	if meta["phase"] != "source.doctor" || meta["kind"] != "timeout" || meta["deadline"] == nil {
		t.Fatalf("unexpected meta: %+v", meta)
	}
	if again := annotateSourceError(ctx, "other", err); again != err {
		t.Fatalf("already annotated errors must pass through")
	}
}

func TestAnnotateSourceErrorCanceledAndPlain(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := annotateSourceError(ctx, "source.get_booking", context.Canceled)
	if got := err.Error(); got != "source.get_booking canceled: context canceled" {
		t.Fatalf("unexpected message: %q", got)
	}

	if err := annotateSourceError(ctx, "source.get_booking", source.ErrNotFound); err != source.ErrNotFound {
		t.Fatalf("non-context errors must pass through, got %v", err)
	}
	if meta := sourceErrorMeta(source.ErrNotFound); meta != nil {
		t.Fatalf("expected no meta, got %+v", meta)
	}
	if annotateSourceError(ctx, "x", nil) != nil {
		t.Fatalf("nil stays nil")
	}
}

func TestCallSourceRecordsTiming(t *testing.T) {
	ctx, cancel := commandContext(&globalOptions{})
	defer cancel()
	v, err := callSource(ctx, nil, "source.list_bookings", func() (int, error) { return 7, nil })
	if err != nil || v != 7 {
		t.Fatalf("callSource = %d, %v", v, err)
	}
	timings := sourceTimings(ctx)
	if _, ok := timings["source.list_bookings"]; !ok {
		t.Fatalf("expected recorded timing, got %+v", timings)
	}
}
