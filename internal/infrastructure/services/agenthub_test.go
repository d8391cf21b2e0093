package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orris-inc/gamepanel/internal/domain/agent"
	sharedConfig "github.com/orris-inc/gamepanel/internal/shared/config"
	protocol "github.com/orris-inc/gamepanel/internal/shared/hubprotocol/agent"
	"github.com/orris-inc/gamepanel/internal/shared/logger"
)

type fakeTransport struct {
	sent    chan *protocol.HubMessage
	sendErr error
	closed  atomic.Bool
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{sent: make(chan *protocol.HubMessage, 64)}
}

func (t *fakeTransport) Send(msg *protocol.HubMessage) error {
	if t.sendErr != nil {
		return t.sendErr
	}
	select {
	case t.sent <- msg:
		return nil
	default:
		return errors.New("send queue full")
	}
}

func (t *fakeTransport) Close() error {
	t.closed.Store(true)
	return nil
}

func newTestHub(t *testing.T, commandTimeout time.Duration) *AgentHub {
	t.Helper()
	cfg := sharedConfig.DefaultAgentHubConfig()
	cfg.CommandTimeout = commandTimeout
	hub := NewAgentHub(cfg, logger.NewNopLogger())
	t.Cleanup(hub.Shutdown)
	return hub
}

// respondWith answers every command written to tr until conn is closed.
func respondWith(hub *AgentHub, conn *AgentConn, tr *fakeTransport, fn func(cmd *protocol.CommandData) *protocol.CommandResultData) {
	go func() {
		for {
			select {
			case msg := <-tr.sent:
				cmd, ok := msg.Data.(*protocol.CommandData)
				if !ok {
					continue
				}
				if res := fn(cmd); res != nil {
					hub.HandleCommandResult(conn, res)
				}
			case <-conn.Done():
				return
			}
		}
	}()
}

func acknowledge(cmd *protocol.CommandData) *protocol.CommandResultData {
	return &protocol.CommandResultData{CommandID: cmd.CommandID, Success: true}
}

func TestAgentHub_NodeThatNeverRegistered(t *testing.T) {
	hub := newTestHub(t, time.Second)

	assert.Equal(t, agent.StatusOffline, hub.AgentStatus("node-001"))
	assert.Empty(t, hub.ConnectedAgents())
	assert.False(t, hub.StartServer("node-001", "srv-1"))

	start := time.Now()
	result := hub.SendCommand("node-001", agent.NewCommand(protocol.CmdActionServerStart, "srv-1", nil))
	elapsed := time.Since(start)

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "not online")
	assert.True(t, result.Is(agent.ErrAgentOffline))
	assert.NotEmpty(t, result.CommandID)
	assert.Less(t, elapsed, 50*time.Millisecond, "offline dispatch must fail locally")
}

func TestAgentHub_RegisterAndUnregister(t *testing.T) {
	hub := newTestHub(t, time.Second)

	connB := hub.Register("node-b", AgentInfo{ProtocolVersion: "1.0.0"}, newFakeTransport())
	hub.Register("node-a", AgentInfo{ProtocolVersion: "1.0.0"}, newFakeTransport())

	assert.Equal(t, []string{"node-a", "node-b"}, hub.ConnectedAgents())
	assert.Equal(t, agent.StatusOnline, hub.AgentStatus("node-b"))
	assert.True(t, hub.IsAgentOnline("node-a"))

	assert.True(t, hub.Unregister(connB, nil))
	assert.Equal(t, agent.StatusOffline, hub.AgentStatus("node-b"))
	assert.Equal(t, []string{"node-a"}, hub.ConnectedAgents())

	// A second unregister of the same connection is a no-op.
	assert.False(t, hub.Unregister(connB, nil))
}

func TestAgentHub_SendCommand_RoundTrip(t *testing.T) {
	hub := newTestHub(t, time.Second)
	tr := newFakeTransport()
	conn := hub.Register("node-1", AgentInfo{}, tr)

	var seen *protocol.CommandData
	respondWith(hub, conn, tr, func(cmd *protocol.CommandData) *protocol.CommandResultData {
		seen = cmd
		return &protocol.CommandResultData{
			CommandID: cmd.CommandID,
			Success:   true,
			Data:      json.RawMessage(`{"state":"running"}`),
		}
	})

	result := hub.SendCommand("node-1", agent.NewCommand(protocol.CmdActionServerStart, "srv-1", nil))

	require.True(t, result.Success, result.Error)
	require.NotNil(t, seen)
	assert.Equal(t, seen.CommandID, result.CommandID)
	assert.Equal(t, protocol.CmdActionServerStart, seen.Action)
	assert.Equal(t, "srv-1", seen.ServerID)
	assert.JSONEq(t, `{"state":"running"}`, string(result.Data))
	assert.Zero(t, conn.pendingCount())
}

func TestAgentHub_SendCommand_AgentRejects(t *testing.T) {
	hub := newTestHub(t, time.Second)
	tr := newFakeTransport()
	conn := hub.Register("node-1", AgentInfo{}, tr)
	respondWith(hub, conn, tr, func(cmd *protocol.CommandData) *protocol.CommandResultData {
		return &protocol.CommandResultData{CommandID: cmd.CommandID, Error: "server is suspended"}
	})

	result := hub.SendCommand("node-1", agent.NewCommand(protocol.CmdActionServerStart, "srv-1", nil))

	assert.False(t, result.Success)
	assert.Equal(t, "server is suspended", result.Error)
	assert.True(t, result.Is(agent.ErrCommandFailed))
	assert.Equal(t, agent.StatusOnline, hub.AgentStatus("node-1"))
}

func TestAgentHub_SendCommand_Timeout(t *testing.T) {
	hub := newTestHub(t, 50*time.Millisecond)
	tr := newFakeTransport()
	conn := hub.Register("node-1", AgentInfo{}, tr)

	start := time.Now()
	result := hub.SendCommand("node-1", agent.NewCommand(protocol.CmdActionServerStop, "srv-1", nil))

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "timeout")
	assert.True(t, result.Is(agent.ErrCommandTimeout))
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
	assert.Zero(t, conn.pendingCount())

	// The late response is dropped instead of reaching a later call.
	msg := <-tr.sent
	late := &protocol.CommandResultData{CommandID: msg.Data.(*protocol.CommandData).CommandID, Success: true}
	assert.False(t, hub.HandleCommandResult(conn, late))

	respondWith(hub, conn, tr, acknowledge)
	next := hub.SendCommand("node-1", agent.NewCommand(protocol.CmdActionServerStart, "srv-1", nil))
	assert.True(t, next.Success)
	assert.NotEqual(t, late.CommandID, next.CommandID)
}

func TestAgentHub_DisconnectWhileWaiting(t *testing.T) {
	hub := newTestHub(t, 5*time.Second)
	tr := newFakeTransport()
	conn := hub.Register("node-001", AgentInfo{}, tr)

	go func() {
		<-tr.sent
		hub.Unregister(conn, agent.ErrAgentDisconnected)
	}()

	start := time.Now()
	result := hub.SendCommand("node-001", agent.NewCommand(protocol.CmdActionServerRestart, "srv-1", nil))

	assert.False(t, result.Success)
	assert.True(t, result.Is(agent.ErrAgentDisconnected))
	assert.Less(t, time.Since(start), time.Second, "in-flight call must not wait for the timeout")
	assert.Equal(t, agent.StatusOffline, hub.AgentStatus("node-001"))
	assert.NotContains(t, hub.ConnectedAgents(), "node-001")
	assert.True(t, tr.closed.Load())
}

func TestAgentHub_ReplaceConnection(t *testing.T) {
	hub := newTestHub(t, 5*time.Second)

	var online atomic.Int32
	hub.SetOnAgentOnline(func(string) { online.Add(1) })
	offline := make(chan error, 4)
	hub.SetOnAgentOffline(func(_ string, reason error) { offline <- reason })

	oldTr := newFakeTransport()
	oldConn := hub.Register("node-1", AgentInfo{AgentVersion: "1.0.0"}, oldTr)

	done := make(chan agent.CommandResult, 1)
	go func() {
		done <- hub.SendCommand("node-1", agent.NewCommand(protocol.CmdActionServerStart, "srv-1", nil))
	}()
	<-oldTr.sent

	newTr := newFakeTransport()
	newConn := hub.Register("node-1", AgentInfo{AgentVersion: "1.1.0"}, newTr)

	select {
	case result := <-done:
		assert.True(t, result.Is(agent.ErrConnectionReplaced))
	case <-time.After(time.Second):
		t.Fatal("in-flight command on the replaced connection did not fail")
	}
	assert.True(t, oldTr.closed.Load())

	// The old connection's read loop ending must not take the node offline.
	assert.False(t, hub.Unregister(oldConn, agent.ErrAgentDisconnected))
	assert.Equal(t, agent.StatusOnline, hub.AgentStatus("node-1"))
	assert.Equal(t, []string{"node-1"}, hub.ConnectedAgents())

	respondWith(hub, newConn, newTr, acknowledge)
	assert.True(t, hub.StartServer("node-1", "srv-1"))

	assert.Eventually(t, func() bool { return online.Load() == 1 }, time.Second, 10*time.Millisecond)
	select {
	case reason := <-offline:
		t.Fatalf("unexpected offline transition: %v", reason)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestAgentHub_InvalidCommandNeverSent(t *testing.T) {
	hub := newTestHub(t, time.Second)
	tr := newFakeTransport()
	hub.Register("node-1", AgentInfo{}, tr)

	result := hub.SendCommand("node-1", agent.NewCommand("rm_rf", "srv-1", nil))
	assert.True(t, result.Is(agent.ErrInvalidCommand))

	result = hub.SendCommand("node-1", agent.NewCommand(protocol.CmdActionFileRead, "srv-1", nil))
	assert.True(t, result.Is(agent.ErrInvalidCommand))

	// Validation runs before the offline check.
	result = hub.SendCommand("node-unknown", agent.NewCommand("", "", nil))
	assert.True(t, result.Is(agent.ErrInvalidCommand))

	assert.Empty(t, tr.sent)
}

func TestAgentHub_TransportFailureTakesNodeOffline(t *testing.T) {
	hub := newTestHub(t, time.Second)
	offline := make(chan error, 1)
	hub.SetOnAgentOffline(func(_ string, reason error) { offline <- reason })

	tr := newFakeTransport()
	tr.sendErr = errors.New("broken pipe")
	hub.Register("node-1", AgentInfo{}, tr)

	result := hub.SendCommand("node-1", agent.NewCommand(protocol.CmdActionServerStart, "srv-1", nil))

	assert.False(t, result.Success)
	assert.True(t, result.Is(agent.ErrTransportFailure))
	assert.Contains(t, result.Error, "broken pipe")
	assert.Equal(t, agent.StatusOffline, hub.AgentStatus("node-1"))

	select {
	case reason := <-offline:
		assert.ErrorIs(t, reason, agent.ErrTransportFailure)
	case <-time.After(time.Second):
		t.Fatal("offline callback not invoked")
	}
}

func TestAgentHub_Notify(t *testing.T) {
	hub := newTestHub(t, time.Second)

	assert.ErrorIs(t, hub.Notify("node-1", protocol.MsgTypeNotify, nil), agent.ErrAgentOffline)
	assert.False(t, hub.SendToAgent("node-1", protocol.MsgTypeNotify, nil))

	tr := newFakeTransport()
	hub.Register("node-1", AgentInfo{}, tr)

	require.NoError(t, hub.Notify("node-1", protocol.MsgTypeNotify, map[string]string{"reason": "maintenance"}))
	msg := <-tr.sent
	assert.Equal(t, protocol.MsgTypeNotify, msg.Type)
	assert.Equal(t, "node-1", msg.NodeID)
	assert.NotZero(t, msg.Timestamp)

	assert.True(t, hub.SendToAgent("node-1", protocol.MsgTypeNotify, nil))

	tr.sendErr = errors.New("queue full")
	assert.ErrorIs(t, hub.Notify("node-1", protocol.MsgTypeNotify, nil), agent.ErrTransportFailure)
	assert.Equal(t, agent.StatusOffline, hub.AgentStatus("node-1"))
}

func TestAgentHub_SweepStale(t *testing.T) {
	hub := newTestHub(t, time.Second)
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	var now atomic.Pointer[time.Time]
	now.Store(&base)
	hub.now = func() time.Time { return *now.Load() }

	stale := hub.Register("node-stale", AgentInfo{}, newFakeTransport())
	fresh := hub.Register("node-fresh", AgentInfo{}, newFakeTransport())

	later := base.Add(60 * time.Second)
	now.Store(&later)
	hub.HandleHeartbeat(fresh)

	assert.Equal(t, 0, hub.SweepStale(base.Add(90*time.Second)))
	assert.Equal(t, 1, hub.SweepStale(base.Add(91*time.Second)))

	assert.Equal(t, []string{"node-fresh"}, hub.ConnectedAgents())
	assert.True(t, later.Equal(fresh.LastHeartbeat()))

	select {
	case <-stale.Done():
		assert.ErrorIs(t, stale.closeReason(), agent.ErrHeartbeatTimeout)
	default:
		t.Fatal("stale connection not closed")
	}
}

func TestAgentHub_ConcurrentCommandsAreCorrelated(t *testing.T) {
	hub := newTestHub(t, 2*time.Second)

	nodes := []string{"node-1", "node-2", "node-3"}
	for _, id := range nodes {
		tr := newFakeTransport()
		conn := hub.Register(id, AgentInfo{}, tr)
		nodeID := id
		respondWith(hub, conn, tr, func(cmd *protocol.CommandData) *protocol.CommandResultData {
			data, _ := json.Marshal(map[string]string{"node": nodeID, "server": cmd.ServerID})
			return &protocol.CommandResultData{CommandID: cmd.CommandID, Success: true, Data: data}
		})
	}

	var wg sync.WaitGroup
	errs := make(chan error, 60)
	for i := 0; i < 60; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			nodeID := nodes[i%len(nodes)]
			serverID := fmt.Sprintf("srv-%d", i)
			result := hub.Execute(nodeID, protocol.CmdActionServerStart, serverID, nil)
			if !result.Success {
				errs <- fmt.Errorf("command %d failed: %s", i, result.Error)
				return
			}
			var got map[string]string
			if err := result.DecodeData(&got); err != nil {
				errs <- err
				return
			}
			if got["node"] != nodeID || got["server"] != serverID {
				errs <- fmt.Errorf("command %d got result for %v", i, got)
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
}

func TestAgentHub_SilentNodeDoesNotBlockOthers(t *testing.T) {
	hub := newTestHub(t, 2*time.Second)

	// node-a receives commands but never answers.
	silentTr := newFakeTransport()
	hub.Register("node-a", AgentInfo{}, silentTr)

	busyTr := newFakeTransport()
	busyConn := hub.Register("node-b", AgentInfo{}, busyTr)
	respondWith(hub, busyConn, busyTr, acknowledge)

	silent := make(chan agent.CommandResult, 1)
	go func() { silent <- hub.SendCommand("node-a", agent.NewCommand(protocol.CmdActionServerStart, "srv-a", nil)) }()
	<-silentTr.sent

	start := time.Now()
	result := hub.SendCommand("node-b", agent.NewCommand(protocol.CmdActionServerStart, "srv-b", nil))
	assert.True(t, result.Success)
	assert.Less(t, time.Since(start), 500*time.Millisecond)

	select {
	case r := <-silent:
		assert.True(t, r.Is(agent.ErrCommandTimeout))
	case <-time.After(4 * time.Second):
		t.Fatal("command to the silent node never timed out")
	}
}

func TestAgentHub_TransitionCallbacksKeepOrder(t *testing.T) {
	hub := newTestHub(t, time.Second)

	release := make(chan struct{})
	var mu sync.Mutex
	var order []string
	record := func(s string) {
		mu.Lock()
		defer mu.Unlock()
		order = append(order, s)
	}
	recorded := func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), order...)
	}

	hub.SetOnAgentOnline(func(nodeID string) {
		<-release
		record("online:" + nodeID)
	})
	hub.SetOnAgentOffline(func(nodeID string, _ error) {
		record("offline:" + nodeID)
	})

	// Connect and drop before the online callback has finished.
	conn := hub.Register("node-1", AgentInfo{}, newFakeTransport())
	require.True(t, hub.Unregister(conn, agent.ErrAgentDisconnected))
	conn = hub.Register("node-1", AgentInfo{}, newFakeTransport())
	require.True(t, hub.Unregister(conn, agent.ErrAgentDisconnected))

	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, recorded())

	close(release)
	assert.Eventually(t, func() bool { return len(recorded()) == 4 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"online:node-1", "offline:node-1", "online:node-1", "offline:node-1"}, recorded())
}

func TestAgentHub_CallbackPanicDoesNotStopLaterCallbacks(t *testing.T) {
	hub := newTestHub(t, time.Second)

	offline := make(chan string, 1)
	hub.SetOnAgentOnline(func(string) { panic("boom") })
	hub.SetOnAgentOffline(func(nodeID string, _ error) { offline <- nodeID })

	conn := hub.Register("node-1", AgentInfo{}, newFakeTransport())
	hub.Unregister(conn, nil)

	select {
	case nodeID := <-offline:
		assert.Equal(t, "node-1", nodeID)
	case <-time.After(time.Second):
		t.Fatal("offline callback did not run after a panicking online callback")
	}
}

func TestAgentHub_LifecycleOperations(t *testing.T) {
	hub := newTestHub(t, time.Second)

	err := hub.DeleteServer("node-1", "srv-1")
	assert.ErrorIs(t, err, agent.ErrNoOnlineAgent)
	assert.Contains(t, err.Error(), "no online agent found")
	for _, fn := range []func() error{
		func() error { return hub.SuspendServer("node-1", "srv-1") },
		func() error { return hub.UnsuspendServer("node-1", "srv-1") },
		func() error { return hub.ReinstallServer("node-1", "srv-1", nil) },
		func() error { return hub.CreateServer("node-1", "srv-1", map[string]any{"egg": "minecraft"}) },
	} {
		assert.ErrorIs(t, fn(), agent.ErrNoOnlineAgent)
	}

	tr := newFakeTransport()
	conn := hub.Register("node-1", AgentInfo{}, tr)
	actions := make(chan *protocol.CommandData, 16)
	respondWith(hub, conn, tr, func(cmd *protocol.CommandData) *protocol.CommandResultData {
		actions <- cmd
		if cmd.Action == protocol.CmdActionServerReinstall {
			return &protocol.CommandResultData{CommandID: cmd.CommandID, Error: "install script failed"}
		}
		return acknowledge(cmd)
	})

	assert.NoError(t, hub.CreateServer("node-1", "srv-1", map[string]any{"egg": "minecraft"}))
	assert.NoError(t, hub.SuspendServer("node-1", "srv-1"))
	assert.NoError(t, hub.UnsuspendServer("node-1", "srv-1"))
	assert.NoError(t, hub.DeleteServer("node-1", "srv-1"))

	err = hub.ReinstallServer("node-1", "srv-1", nil)
	assert.ErrorIs(t, err, agent.ErrCommandFailed)
	assert.Contains(t, err.Error(), "install script failed")

	var got []string
	for len(got) < 5 {
		got = append(got, (<-actions).Action)
	}
	assert.Equal(t, []string{
		protocol.CmdActionServerCreate,
		protocol.CmdActionServerSuspend,
		protocol.CmdActionServerUnsuspend,
		protocol.CmdActionServerDelete,
		protocol.CmdActionServerReinstall,
	}, got)
}

func TestAgentHub_FileOperations(t *testing.T) {
	hub := newTestHub(t, time.Second)

	_, err := hub.ReadFile("node-1", "srv-1", "server.properties")
	assert.ErrorIs(t, err, agent.ErrAgentOffline)
	assert.False(t, hub.WriteFile("node-1", "srv-1", "server.properties", "motd=hi"))

	tr := newFakeTransport()
	conn := hub.Register("node-1", AgentInfo{}, tr)
	files := map[string]string{}
	var mu sync.Mutex
	respondWith(hub, conn, tr, func(cmd *protocol.CommandData) *protocol.CommandResultData {
		mu.Lock()
		defer mu.Unlock()
		switch p := cmd.Payload.(type) {
		case protocol.FileWritePayload:
			files[p.Path] = p.Content
			return acknowledge(cmd)
		case protocol.FileReadPayload:
			content, found := files[p.Path]
			if !found {
				return &protocol.CommandResultData{CommandID: cmd.CommandID, Error: "file not found"}
			}
			data, _ := json.Marshal(protocol.FileReadResult{Content: content})
			return &protocol.CommandResultData{CommandID: cmd.CommandID, Success: true, Data: data}
		}
		return acknowledge(cmd)
	})

	assert.True(t, hub.WriteFile("node-1", "srv-1", "server.properties", "motd=hi"))

	content, err := hub.ReadFile("node-1", "srv-1", "server.properties")
	require.NoError(t, err)
	assert.Equal(t, "motd=hi", content)

	_, err = hub.ReadFile("node-1", "srv-1", "missing.txt")
	assert.ErrorIs(t, err, agent.ErrCommandFailed)
	assert.Contains(t, err.Error(), "file not found")
}

type recordingHandler struct {
	handled chan string
}

func (h *recordingHandler) String() string { return "recording" }

func (h *recordingHandler) HandleMessage(nodeID string, msgType string, _ json.RawMessage) bool {
	if msgType != protocol.MsgTypeEvent {
		return false
	}
	h.handled <- nodeID
	return true
}

func TestAgentHub_RouteAgentMessage(t *testing.T) {
	hub := newTestHub(t, time.Second)
	assert.False(t, hub.RouteAgentMessage("node-1", protocol.MsgTypeEvent, nil))

	handler := &recordingHandler{handled: make(chan string, 1)}
	hub.RegisterMessageHandler(handler)

	assert.True(t, hub.RouteAgentMessage("node-1", protocol.MsgTypeEvent, json.RawMessage(`{}`)))
	assert.Equal(t, "node-1", <-handler.handled)
	assert.False(t, hub.RouteAgentMessage("node-1", "unknown", nil))
}

func TestAgentHub_ShutdownFailsInFlight(t *testing.T) {
	hub := NewAgentHub(sharedConfig.AgentHubConfig{CommandTimeout: 5 * time.Second}, logger.NewNopLogger())
	assert.Equal(t, 90*time.Second, hub.Config().HeartbeatTimeout)

	tr := newFakeTransport()
	hub.Register("node-1", AgentInfo{}, tr)

	done := make(chan agent.CommandResult, 1)
	go func() {
		done <- hub.Execute("node-1", protocol.CmdActionServerStop, "srv-1", nil)
	}()
	<-tr.sent
	hub.Shutdown()

	select {
	case result := <-done:
		assert.True(t, result.Is(agent.ErrAgentDisconnected))
	case <-time.After(time.Second):
		t.Fatal("shutdown did not release in-flight command")
	}
	assert.Empty(t, hub.ConnectedAgents())
}
