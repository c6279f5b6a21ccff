package cli

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// lockedWriter is an io.Writer safe to read while the handler goroutine writes.
type lockedWriter struct {
	mu  sync.Mutex
	out strings.Builder
}

func (w *lockedWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.out.Write(p)
}

func (w *lockedWriter) String() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.out.String()
}

func TestNewInterruptHandler_DefaultsToStdout(t *testing.T) {
	h := NewInterruptHandler(nil)
	require.NotNil(t, h.writer)
	assert.False(t, h.WasInterrupted())
}

func TestInterrupt_CollectionRun(t *testing.T) {
	w := &lockedWriter{}
	h := NewInterruptHandler(w)
	ctx := h.HandleInterrupts(context.Background(), "Collection", "Stored centers are kept. Re-run: hawker collect")

	require.NoError(t, ctx.Err(), "context is live until interrupted")

	h.interrupt()
	h.interrupt()
	<-ctx.Done()

	assert.True(t, h.WasInterrupted())
	out := w.String()
	assert.Equal(t, 1, strings.Count(out, "Collection interrupted!"))
	assert.Contains(t, out, "Re-run: hawker collect")
}

func TestInterrupt_ParentCancelIsSilent(t *testing.T) {
	w := &lockedWriter{}
	h := NewInterruptHandler(w)
	parent, cancel := context.WithCancel(context.Background())

	ctx := h.HandleInterrupts(parent, "Serving", "")
	cancel()
	<-ctx.Done()

	assert.False(t, h.WasInterrupted())
	assert.Empty(t, w.String())
}

func TestShowInterruptMessage(t *testing.T) {
	tests := []struct {
		name      string
		operation string
		hint      string
		want      []string
		absent    []string
	}{
		{
			name:      "training with hint",
			operation: "Training",
			hint:      "No model was saved.",
			want:      []string{"Training interrupted!", "No model was saved.", "See you at the next makan!"},
		},
		{
			name:   "unnamed operation",
			want:   []string{"Operation interrupted!", "See you at the next makan!"},
			absent: []string{"No model was saved."},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			h := &InterruptHandler{writer: &buf, operation: tt.operation, hint: tt.hint}
			h.showInterruptMessage()

			for _, s := range tt.want {
				assert.Contains(t, buf.String(), s)
			}
			for _, s := range tt.absent {
				assert.NotContains(t, buf.String(), s)
			}
		})
	}
}
