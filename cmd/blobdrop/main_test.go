package main

import (
	"context"
	"testing"
	"time"
)

func TestWithTimeout(t *testing.T) {
	ctx, cancel := withTimeout(context.Background(), 0)
	defer cancel()
	if _, ok := ctx.Deadline(); ok {
		t.Error("Expected no deadline for a zero timeout")
	}

	ctx, cancel = withTimeout(context.Background(), time.Minute)
	defer cancel()
	deadline, ok := ctx.Deadline()
	if !ok {
		t.Fatal("Expected a deadline")
	}
	if time.Until(deadline) > time.Minute {
		t.Errorf("Deadline too far: %s", deadline)
	}
}
