package server

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/orris-inc/gamepanel/internal/shared/logger"
)

type shutdownRecorder struct {
	steps     []string
	serverErr error
}

type recordedServer struct{ r *shutdownRecorder }

func (s recordedServer) Shutdown(context.Context) error {
	s.r.steps = append(s.r.steps, "http")
	return s.r.serverErr
}

type recordedHub struct{ r *shutdownRecorder }

func (h recordedHub) Shutdown() { h.r.steps = append(h.r.steps, "hub") }

type recordedScheduler struct{ r *shutdownRecorder }

func (s recordedScheduler) Stop() error {
	s.r.steps = append(s.r.steps, "scheduler")
	return nil
}

func TestGracefulShutdown_StopsAcceptingBeforeDisconnectingAgents(t *testing.T) {
	r := &shutdownRecorder{}

	err := gracefulShutdown(context.Background(), recordedServer{r}, recordedHub{r}, recordedScheduler{r}, logger.NewNopLogger())

	assert.NoError(t, err)
	assert.Equal(t, []string{"http", "hub", "scheduler"}, r.steps)
}

func TestGracefulShutdown_DisconnectsAgentsWhenServerShutdownFails(t *testing.T) {
	r := &shutdownRecorder{serverErr: errors.New("context deadline exceeded")}

	err := gracefulShutdown(context.Background(), recordedServer{r}, recordedHub{r}, recordedScheduler{r}, logger.NewNopLogger())

	assert.ErrorContains(t, err, "deadline")
	assert.Equal(t, []string{"http", "hub", "scheduler"}, r.steps)
}
