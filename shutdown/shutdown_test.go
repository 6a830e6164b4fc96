package shutdown

import (
	"context"
	"testing"
	"time"
)

func TestContextCancelFunc(t *testing.T) {
	ctx, cancel := Context(context.Background())
	cancel()
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("context not canceled")
	}
}
