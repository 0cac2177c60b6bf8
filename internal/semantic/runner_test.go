package semantic

import (
	"context"
	"testing"
	"time"
)

func TestCLIRunner_Available(t *testing.T) {
	r := &CLIRunner{Command: "definitely-not-a-real-binary-name"}
	if r.Available() == nil {
		t.Error("nonexistent command reported as available")
	}
}

func TestCLIRunner_MissingCommand(t *testing.T) {
	r := &CLIRunner{Command: "definitely-not-a-real-binary-name"}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, err := r.Run(ctx, "prompt"); err == nil {
		t.Error("expected an error for a missing command")
	}
}
