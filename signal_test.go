package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Tests in this file deliver real signals to the test process, so they do
// not run in parallel with each other.

func TestShutdownContext_SignalStartsDrain(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	defer cancel()

	ctx := shutdownContext(parent, slog.New(slog.NewTextHandler(io.Discard, nil)))

	require.NoError(t, syscall.Kill(os.Getpid(), syscall.SIGTERM))

	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("serve context still live 2s after SIGTERM")
	}

	assert.NoError(t, parent.Err(), "only the serve context ends")
}

func TestShutdownContext_SecondSignalForcesExit(t *testing.T) {
	exited := make(chan int, 1)

	old := forceExit
	forceExit = func(code int) { exited <- code }
	t.Cleanup(func() { forceExit = old })

	parent, cancel := context.WithCancel(context.Background())
	defer cancel()

	ctx := shutdownContext(parent, slog.New(slog.NewTextHandler(io.Discard, nil)))

	require.NoError(t, syscall.Kill(os.Getpid(), syscall.SIGINT))
	<-ctx.Done()

	// Requests are still draining; the next signal must not wait for them.
	require.NoError(t, syscall.Kill(os.Getpid(), syscall.SIGINT))

	select {
	case code := <-exited:
		assert.Equal(t, 1, code)
	case <-time.After(2 * time.Second):
		t.Fatal("second signal did not force an exit")
	}
}

func TestShutdownContext_ParentEndsWithoutSignal(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	ctx := shutdownContext(parent, slog.New(slog.NewTextHandler(io.Discard, nil)))

	cancel()

	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("serve context outlived its parent")
	}
}
