package realtime

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap/zaptest"

	"github.com/integrity-watch/report-service/internal/domain"
	"github.com/integrity-watch/report-service/internal/events"
)

type fakeConn struct {
	in        chan []byte
	closed    chan struct{}
	closeOnce sync.Once
	block     chan struct{}

	mu  sync.Mutex
	out []Frame
}

func newFakeConn() *fakeConn {
	return &fakeConn{in: make(chan []byte, 8), closed: make(chan struct{})}
}

func (f *fakeConn) ReadMessage() (int, []byte, error) {
	select {
	case msg := <-f.in:
		return websocket.TextMessage, msg, nil
	case <-f.closed:
		return 0, nil, io.EOF
	}
}

func (f *fakeConn) WriteMessage(messageType int, data []byte) error {
	if f.block != nil {
		select {
		case <-f.block:
		case <-f.closed:
			return io.EOF
		}
	}
	if messageType != websocket.TextMessage {
		return nil
	}
	var frame Frame
	if err := json.Unmarshal(data, &frame); err != nil {
		return err
	}
	f.mu.Lock()
	f.out = append(f.out, frame)
	f.mu.Unlock()
	return nil
}

func (f *fakeConn) Close() error {
	f.closeOnce.Do(func() { close(f.closed) })
	return nil
}

func (f *fakeConn) send(t *testing.T, event string, data any) {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	msg, err := json.Marshal(Frame{Event: event, Data: raw})
	require.NoError(t, err)
	f.in <- msg
}

func (f *fakeConn) frames(event string) []Frame {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Frame
	for _, frame := range f.out {
		if frame.Event == event {
			out = append(out, frame)
		}
	}
	return out
}

type allowList map[string]bool

func (a allowList) CanFollowReport(_ context.Context, _ *domain.User, reportID string) bool {
	return a[reportID]
}

func connect(t *testing.T, hub *Hub, user *domain.User) *fakeConn {
	t.Helper()
	conn := newFakeConn()
	before := hub.ClientCount()
	go hub.Serve(conn, user)
	require.Eventually(t, func() bool { return hub.ClientCount() == before+1 }, time.Second, 5*time.Millisecond)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func testUser(role domain.Role, state string) *domain.User {
	return &domain.User{
		ID:         primitive.NewObjectID(),
		Role:       role,
		IsActive:   true,
		IsVerified: true,
		Location:   domain.Location{State: state},
	}
}

func TestServeJoinsDefaultRooms(t *testing.T) {
	hub := NewHub(Options{Logger: zaptest.NewLogger(t)})
	officer := testUser(domain.RolePolice, "Lagos")
	conn := connect(t, hub, officer)

	assert.Equal(t, 1, hub.RoomSize(UserRoom(officer.ID.Hex())))
	assert.Equal(t, 1, hub.RoomSize(RoleRoom(domain.RolePolice)))
	assert.Equal(t, 1, hub.RoomSize(LocationRoom("lagos")))
	assert.Eventually(t, func() bool { return len(conn.frames("connected")) == 1 }, time.Second, 5*time.Millisecond)

	_ = conn.Close()
	assert.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 5*time.Millisecond)
	assert.Zero(t, hub.RoomSize(RoleRoom(domain.RolePolice)))
}

func TestEmitDeliversOncePerClient(t *testing.T) {
	hub := NewHub(Options{Logger: zaptest.NewLogger(t)})
	citizen := testUser(domain.RoleCitizen, "")
	conn := connect(t, hub, citizen)

	delivered := hub.Emit([]string{UserRoom(citizen.ID.Hex()), RoleRoom(domain.RoleCitizen)}, "report:updated", map[string]string{"reportId": "r1"})
	assert.Equal(t, 1, delivered)
	assert.Eventually(t, func() bool { return len(conn.frames("report:updated")) == 1 }, time.Second, 5*time.Millisecond)

	time.Sleep(20 * time.Millisecond)
	assert.Len(t, conn.frames("report:updated"), 1)
}

func TestJoinReportChecksAccess(t *testing.T) {
	hub := NewHub(Options{Logger: zaptest.NewLogger(t), Authorizer: allowList{"allowed": true}})
	citizen := testUser(domain.RoleCitizen, "")
	conn := connect(t, hub, citizen)

	conn.send(t, "join:report", map[string]string{"reportId": "denied"})
	assert.Eventually(t, func() bool { return len(conn.frames("error")) == 1 }, time.Second, 5*time.Millisecond)
	assert.Zero(t, hub.RoomSize(ReportRoom("denied")))

	conn.send(t, "join:report", map[string]string{"reportId": "allowed"})
	assert.Eventually(t, func() bool { return hub.RoomSize(ReportRoom("allowed")) == 1 }, time.Second, 5*time.Millisecond)

	conn.send(t, "leave:report", map[string]string{"reportId": "allowed"})
	assert.Eventually(t, func() bool { return hub.RoomSize(ReportRoom("allowed")) == 0 }, time.Second, 5*time.Millisecond)
}

func TestJoinLocationRequiresStaff(t *testing.T) {
	hub := NewHub(Options{Logger: zaptest.NewLogger(t)})
	citizen := connect(t, hub, testUser(domain.RoleCitizen, ""))
	admin := connect(t, hub, testUser(domain.RoleAdmin, ""))

	citizen.send(t, "join:location", map[string]string{"state": "Kano"})
	admin.send(t, "join:location", map[string]string{"state": "Kano"})

	assert.Eventually(t, func() bool { return len(citizen.frames("error")) == 1 }, time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool { return hub.RoomSize(LocationRoom("kano")) == 1 }, time.Second, 5*time.Millisecond)
}

func TestPingAnswersPong(t *testing.T) {
	hub := NewHub(Options{Logger: zaptest.NewLogger(t)})
	conn := connect(t, hub, testUser(domain.RoleCitizen, ""))

	conn.send(t, "ping", nil)
	conn.send(t, "bogus", nil)
	assert.Eventually(t, func() bool {
		return len(conn.frames("pong")) == 1 && len(conn.frames("error")) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestSlowClientIsDropped(t *testing.T) {
	hub := NewHub(Options{Logger: zaptest.NewLogger(t), SendBuffer: 1})
	slow := newFakeConn()
	slow.block = make(chan struct{})
	user := testUser(domain.RoleAdmin, "")
	go hub.Serve(slow, user)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	for i := 0; i < 3; i++ {
		hub.Emit([]string{RoleRoom(domain.RoleAdmin)}, "report:new", i)
	}
	assert.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 5*time.Millisecond)
	assert.Zero(t, hub.RoomSize(RoleRoom(domain.RoleAdmin)))
}

func TestRoute(t *testing.T) {
	reporter := primitive.NewObjectID()
	officer := primitive.NewObjectID()
	report := &domain.Report{
		ID:         primitive.NewObjectID(),
		Reporter:   &reporter,
		AssignedTo: &officer,
		Location:   domain.ReportLocation{State: "Oyo"},
	}

	status := events.New(events.EventReportStatusUpdated, nil).ForReport(report)
	assert.ElementsMatch(t, []string{
		ReportRoom(report.ID.Hex()),
		UserRoom(reporter.Hex()),
		UserRoom(officer.Hex()),
		RoleRoom(domain.RoleAdmin),
	}, Route(status))

	created := events.New(events.EventReportCreated, nil).ForReport(report)
	assert.ElementsMatch(t, []string{
		RoleRoom(domain.RoleAdmin),
		RoleRoom(domain.RolePolice),
		LocationRoom("oyo"),
	}, Route(created))

	report.IsAnonymous = true
	anonymous := events.New(events.EventReportMessageAdded, nil).ForReport(report)
	assert.NotContains(t, Route(anonymous), UserRoom(reporter.Hex()))

	assert.Empty(t, Route(events.New(events.EventUserRegistered, nil)))
}

func TestRegisterHandlersForwardsEvents(t *testing.T) {
	logger := zaptest.NewLogger(t)
	hub := NewHub(Options{Logger: logger})
	dispatcher := events.NewInMemoryDispatcher(logger)
	hub.RegisterHandlers(dispatcher)

	admin := connect(t, hub, testUser(domain.RoleAdmin, ""))
	report := &domain.Report{ID: primitive.NewObjectID()}
	event := events.New(events.EventReportDeleted, events.ReportDeletedPayload{ReportID: report.ID.Hex()}).ForReport(report)
	require.NoError(t, dispatcher.Publish(context.Background(), event))

	assert.Eventually(t, func() bool { return len(admin.frames("report:deleted")) == 1 }, time.Second, 5*time.Millisecond)
}

func TestNewReportsReachOnlyActingStaff(t *testing.T) {
	logger := zaptest.NewLogger(t)
	hub := NewHub(Options{Logger: logger})
	dispatcher := events.NewInMemoryDispatcher(logger)
	hub.RegisterHandlers(dispatcher)

	citizenUser := testUser(domain.RoleCitizen, "Lagos")
	pendingUser := testUser(domain.RolePolice, "Lagos")
	pendingUser.IsVerified = false
	citizen := connect(t, hub, citizenUser)
	pending := connect(t, hub, pendingUser)
	officer := connect(t, hub, testUser(domain.RolePolice, "Lagos"))

	assert.Equal(t, 1, hub.RoomSize(LocationRoom("lagos")))
	assert.Equal(t, 1, hub.RoomSize(RoleRoom(domain.RolePolice)))

	report := &domain.Report{
		ID:           primitive.NewObjectID(),
		TrackingCode: "RPT-ABCDEF12",
		IsAnonymous:  true,
		Location:     domain.ReportLocation{State: "Lagos"},
	}
	event := events.New(events.EventReportCreated, events.ReportCreatedPayload{
		ReportID:    report.ID.Hex(),
		State:       "Lagos",
		IsAnonymous: true,
	}).ForReport(report)
	require.NoError(t, dispatcher.Publish(context.Background(), event))

	require.Eventually(t, func() bool { return len(officer.frames("report:new")) == 1 }, time.Second, 5*time.Millisecond)
	assert.NotContains(t, string(officer.frames("report:new")[0].Data), report.TrackingCode)

	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, citizen.frames("report:new"))
	assert.Empty(t, pending.frames("report:new"))

	pending.send(t, "join:location", map[string]string{"state": "Lagos"})
	assert.Eventually(t, func() bool { return len(pending.frames("error")) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, hub.RoomSize(LocationRoom("lagos")))
}

type switchableAuthorizer struct {
	mu      sync.Mutex
	allowed map[string]bool
}

func (a *switchableAuthorizer) set(reportID string, allowed bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.allowed[reportID] = allowed
}

func (a *switchableAuthorizer) CanFollowReport(_ context.Context, _ *domain.User, reportID string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.allowed[reportID]
}

func TestReportRoomRechecksAccessOnEmit(t *testing.T) {
	authorizer := &switchableAuthorizer{allowed: map[string]bool{"r1": true}}
	hub := NewHub(Options{Logger: zaptest.NewLogger(t), Authorizer: authorizer})
	officerUser := testUser(domain.RolePolice, "")
	officer := connect(t, hub, officerUser)

	officer.send(t, "join:report", map[string]string{"reportId": "r1"})
	require.Eventually(t, func() bool { return hub.RoomSize(ReportRoom("r1")) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, hub.Emit([]string{ReportRoom("r1")}, "report:updated", map[string]string{"reportId": "r1"}))

	authorizer.set("r1", false)
	assert.Zero(t, hub.Emit([]string{ReportRoom("r1")}, "report:updated", map[string]string{"reportId": "r1"}))
	assert.Zero(t, hub.RoomSize(ReportRoom("r1")))

	// Reaching the client through its own room skips the report check.
	assert.Equal(t, 1, hub.Emit([]string{ReportRoom("r1"), UserRoom(officerUser.ID.Hex())}, "report:assigned", nil))
	assert.Eventually(t, func() bool { return len(officer.frames("report:updated")) == 1 }, time.Second, 5*time.Millisecond)
}
