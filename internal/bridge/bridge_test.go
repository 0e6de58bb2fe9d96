package bridge_test

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"querypad/internal/bridge"
	"querypad/internal/domain"
	"querypad/internal/storage"
)

// fakeStore implements domain.ProfileStore in memory.
type fakeStore struct {
	profiles  []domain.ConnectionProfile
	nextID    int64
	saveErr   error
	listErr   error
	deleteErr error

	deletedIDs []int64
	lastIsEdit bool
}

func (s *fakeStore) Save(p *domain.ConnectionProfile, isEdit bool) error {
	s.lastIsEdit = isEdit
	if s.saveErr != nil {
		return s.saveErr
	}
	s.nextID++
	p.ID = s.nextID
	s.profiles = append(s.profiles, *p)
	return nil
}

func (s *fakeStore) List() ([]domain.ConnectionProfile, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.profiles, nil
}

func (s *fakeStore) Delete(id int64) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	s.deletedIDs = append(s.deletedIDs, id)
	return nil
}

// fakeGateway implements bridge.QueryGateway.
type fakeGateway struct {
	result  *domain.QueryResult
	execErr error
	testErr error

	gotQuery   string
	gotProfile *domain.ConnectionProfile
}

func (g *fakeGateway) Execute(_ context.Context, p *domain.ConnectionProfile, queryText string) (*domain.QueryResult, error) {
	g.gotProfile = p
	g.gotQuery = queryText
	if g.execErr != nil {
		return nil, g.execErr
	}
	return g.result, nil
}

func (g *fakeGateway) Test(_ context.Context, p *domain.ConnectionProfile) error {
	g.gotProfile = p
	return g.testErr
}

type fakeClipboard struct {
	text string
	err  error
}

func (c *fakeClipboard) GetText(context.Context) (string, error) {
	return c.text, c.err
}

func newBridge(store domain.ProfileStore, gw bridge.QueryGateway, clip bridge.Clipboard) (*bridge.Bridge, *bridge.MockEmitter) {
	emitter := &bridge.MockEmitter{}
	if store == nil {
		store = &fakeStore{}
	}
	if gw == nil {
		gw = &fakeGateway{}
	}
	if clip == nil {
		clip = &fakeClipboard{}
	}
	return bridge.New(store, gw, emitter, clip), emitter
}

func command(t *testing.T, fields map[string]any) any {
	t.Helper()
	// Round-trip through JSON the way the event transport would
	raw, err := json.Marshal(fields)
	if err != nil {
		t.Fatalf("marshal command: %v", err)
	}
	var payload any
	if err := json.Unmarshal(raw, &payload); err != nil {
		t.Fatalf("unmarshal command: %v", err)
	}
	return payload
}

func eventNames(m *bridge.MockEmitter) []string {
	names := make([]string, len(m.Events))
	for i, e := range m.Events {
		names[i] = e.Event
	}
	return names
}

func TestBridge_GetConnections(t *testing.T) {
	store := &fakeStore{profiles: []domain.ConnectionProfile{{ID: 1, Name: "local"}}}
	b, emitter := newBridge(store, nil, nil)

	b.HandleCommand(context.Background(), command(t, map[string]any{"command": "getConnections"}))

	if len(emitter.Events) != 1 || emitter.Events[0].Event != bridge.EventConnectionList {
		t.Fatalf("events = %v, want single connectionList", eventNames(emitter))
	}
	data := emitter.Events[0].Data.(map[string]any)
	conns := data["connections"].([]domain.ConnectionProfile)
	if len(conns) != 1 || conns[0].Name != "local" {
		t.Errorf("connections payload = %+v", conns)
	}
}

func TestBridge_SaveConnection_PushRefreshesList(t *testing.T) {
	store := &fakeStore{}
	b, emitter := newBridge(store, nil, nil)

	b.HandleCommand(context.Background(), command(t, map[string]any{
		"command": "saveConnection",
		"connection": map[string]any{
			"name": "local", "host": "127.0.0.1", "port": 5432,
			"database": "app", "user": "u", "password": "p",
		},
		"isEdit": false,
	}))

	want := []string{bridge.EventSaveSuccess, bridge.EventConnectionList}
	got := eventNames(emitter)
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("events = %v, want %v", got, want)
	}
	if store.lastIsEdit {
		t.Error("isEdit forwarded as true for a new profile")
	}
	if len(store.profiles) != 1 || store.profiles[0].Password != "p" {
		t.Errorf("store received %+v", store.profiles)
	}
}

func TestBridge_SaveConnection_ErrorIsContained(t *testing.T) {
	store := &fakeStore{saveErr: errors.New("UNIQUE constraint failed")}
	b, emitter := newBridge(store, nil, nil)

	b.HandleCommand(context.Background(), command(t, map[string]any{
		"command":    "saveConnection",
		"connection": map[string]any{"name": "dup"},
	}))

	if len(emitter.Events) != 1 || emitter.Events[0].Event != bridge.EventError {
		t.Fatalf("events = %v, want single error notification", eventNames(emitter))
	}
	msg := emitter.Events[0].Data.(map[string]string)["message"]
	if !strings.Contains(msg, "UNIQUE constraint failed") {
		t.Errorf("error message %q does not carry the cause", msg)
	}
}

func TestBridge_DeleteConnection_PushRefreshesList(t *testing.T) {
	store := &fakeStore{}
	b, emitter := newBridge(store, nil, nil)

	b.HandleCommand(context.Background(), command(t, map[string]any{
		"command":      "deleteConnection",
		"connectionId": 7,
	}))

	want := []string{bridge.EventDeleteSuccess, bridge.EventConnectionList}
	got := eventNames(emitter)
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("events = %v, want %v", got, want)
	}
	if len(store.deletedIDs) != 1 || store.deletedIDs[0] != 7 {
		t.Errorf("deleted ids = %v, want [7]", store.deletedIDs)
	}
}

func TestBridge_Execute_Success(t *testing.T) {
	gw := &fakeGateway{result: &domain.QueryResult{
		Columns: []string{"?column?"},
		Rows:    []map[string]any{{"?column?": int64(1)}},
	}}
	b, emitter := newBridge(nil, gw, nil)

	b.HandleCommand(context.Background(), command(t, map[string]any{
		"command":    "execute",
		"connection": map[string]any{"name": "local", "host": "127.0.0.1", "password": "p"},
		"query":      "select 1",
	}))

	if len(emitter.Events) != 1 || emitter.Events[0].Event != bridge.EventResults {
		t.Fatalf("events = %v, want single results", eventNames(emitter))
	}
	if gw.gotQuery != "select 1" {
		t.Errorf("query forwarded as %q", gw.gotQuery)
	}
	if gw.gotProfile == nil || gw.gotProfile.Password != "p" {
		t.Errorf("profile forwarded as %+v", gw.gotProfile)
	}
	result := emitter.Events[0].Data.(*domain.QueryResult)
	if result.Columns[0] != "?column?" {
		t.Errorf("result = %+v", result)
	}
}

func TestBridge_Execute_ErrorIsContained(t *testing.T) {
	gw := &fakeGateway{execErr: errors.New("connection refused")}
	b, emitter := newBridge(nil, gw, nil)

	b.HandleCommand(context.Background(), command(t, map[string]any{
		"command":    "execute",
		"connection": map[string]any{"host": "nowhere"},
		"query":      "select 1",
	}))

	if len(emitter.Events) != 1 || emitter.Events[0].Event != bridge.EventError {
		t.Fatalf("events = %v, want single error notification", eventNames(emitter))
	}
	msg := emitter.Events[0].Data.(map[string]string)["message"]
	if !strings.Contains(msg, "connection refused") {
		t.Errorf("error message %q does not carry the cause", msg)
	}
}

func TestBridge_TestConnection(t *testing.T) {
	gw := &fakeGateway{}
	b, emitter := newBridge(nil, gw, nil)

	b.HandleCommand(context.Background(), command(t, map[string]any{
		"command":    "testConnection",
		"connection": map[string]any{"host": "db"},
	}))
	if got := emitter.Events[0]; got.Event != bridge.EventTestResult ||
		got.Data.(map[string]any)["success"] != true {
		t.Errorf("success test: %+v", got)
	}

	gw.testErr = errors.New("tls handshake failed")
	b.HandleCommand(context.Background(), command(t, map[string]any{
		"command":    "testConnection",
		"connection": map[string]any{"host": "db"},
	}))
	got := emitter.Events[1]
	if got.Event != bridge.EventTestResult {
		t.Fatalf("events = %v", eventNames(emitter))
	}
	data := got.Data.(map[string]any)
	if data["success"] != false || !strings.Contains(data["error"].(string), "tls handshake") {
		t.Errorf("failure test payload: %+v", data)
	}
}

func TestBridge_GetClipboardText(t *testing.T) {
	b, emitter := newBridge(nil, nil, &fakeClipboard{text: "select * from t"})

	b.HandleCommand(context.Background(), command(t, map[string]any{"command": "getClipboardText"}))

	if len(emitter.Events) != 1 || emitter.Events[0].Event != bridge.EventClipboardText {
		t.Fatalf("events = %v, want single clipboardText", eventNames(emitter))
	}
	if text := emitter.Events[0].Data.(map[string]string)["text"]; text != "select * from t" {
		t.Errorf("text = %q", text)
	}
}

func TestBridge_UnrecognizedCommandIsReported(t *testing.T) {
	b, emitter := newBridge(nil, nil, nil)

	b.HandleCommand(context.Background(), command(t, map[string]any{"command": "formatQuery"}))

	if len(emitter.Events) != 1 || emitter.Events[0].Event != bridge.EventError {
		t.Fatalf("events = %v, want single error notification", eventNames(emitter))
	}
	msg := emitter.Events[0].Data.(map[string]string)["message"]
	if !strings.Contains(msg, "formatQuery") {
		t.Errorf("error message %q does not name the command", msg)
	}
}

func TestBridge_MalformedPayloadIsReported(t *testing.T) {
	b, emitter := newBridge(nil, nil, nil)

	b.HandleCommand(context.Background(), "{not json")
	b.HandleCommand(context.Background(), command(t, map[string]any{"query": "select 1"})) // no command name

	if len(emitter.Events) != 2 {
		t.Fatalf("events = %v", eventNames(emitter))
	}
	for _, e := range emitter.Events {
		if e.Event != bridge.EventError {
			t.Errorf("event = %q, want error notification", e.Event)
		}
	}
}

func TestBridge_PanelLifecycle(t *testing.T) {
	b, emitter := newBridge(nil, nil, nil)
	ctx := context.Background()

	if b.PanelActive() {
		t.Fatal("panel active before first open")
	}

	first := b.OpenEditor(ctx)
	if first == "" || !b.PanelActive() {
		t.Fatal("expected active panel after open")
	}
	if emitter.Events[0].Event != bridge.EventPanelShow {
		t.Errorf("first open emitted %q", emitter.Events[0].Event)
	}

	// Second open reveals, it does not re-create
	second := b.OpenEditor(ctx)
	if second != first {
		t.Errorf("reveal returned a different panel id: %q vs %q", second, first)
	}
	if emitter.Events[1].Event != bridge.EventPanelReveal {
		t.Errorf("second open emitted %q", emitter.Events[1].Event)
	}

	b.PanelClosed()
	if b.PanelActive() {
		t.Fatal("panel still active after close")
	}

	// Re-open starts from scratch
	third := b.OpenEditor(ctx)
	if third == first {
		t.Error("re-created panel reused the old id")
	}
	if emitter.Events[2].Event != bridge.EventPanelShow {
		t.Errorf("re-open emitted %q", emitter.Events[2].Event)
	}
}

// TestBridge_Scenario drives the full save → execute → delete flow
// through a real (temp-dir) profile store and a scripted gateway.
func TestBridge_Scenario(t *testing.T) {
	store := storage.NewProfileStore(filepath.Join(t.TempDir(), "connections.db"))
	if err := store.Initialize(); err != nil {
		t.Fatalf("initialize store: %v", err)
	}
	defer store.Close()

	gw := &fakeGateway{result: &domain.QueryResult{
		Columns: []string{"?column?"},
		Rows:    []map[string]any{{"?column?": int64(1)}},
	}}
	emitter := &bridge.MockEmitter{}
	b := bridge.New(store, gw, emitter, &fakeClipboard{})
	ctx := context.Background()

	listPayload := func(i int) []domain.ConnectionProfile {
		t.Helper()
		e := emitter.Events[i]
		if e.Event != bridge.EventConnectionList {
			t.Fatalf("event[%d] = %q, want connectionList", i, e.Event)
		}
		return e.Data.(map[string]any)["connections"].([]domain.ConnectionProfile)
	}

	// Empty store → empty list
	b.HandleCommand(ctx, command(t, map[string]any{"command": "getConnections"}))
	if conns := listPayload(0); len(conns) != 0 {
		t.Fatalf("expected empty list, got %+v", conns)
	}

	// Save → saveSuccess + pushed list with id=1
	b.HandleCommand(ctx, command(t, map[string]any{
		"command": "saveConnection",
		"connection": map[string]any{
			"name": "local", "host": "127.0.0.1", "port": 5432,
			"database": "app", "user": "u", "password": "p",
		},
		"isEdit": false,
	}))
	if emitter.Events[1].Event != bridge.EventSaveSuccess {
		t.Fatalf("event[1] = %q", emitter.Events[1].Event)
	}
	conns := listPayload(2)
	if len(conns) != 1 || conns[0].ID != 1 || conns[0].Name != "local" {
		t.Fatalf("pushed list = %+v", conns)
	}

	// Execute against the stored profile
	raw, _ := json.Marshal(map[string]any{
		"command":    "execute",
		"connection": conns[0],
		"query":      "select 1",
	})
	b.HandleCommand(ctx, json.RawMessage(raw))
	if emitter.Events[3].Event != bridge.EventResults {
		t.Fatalf("event[3] = %q", emitter.Events[3].Event)
	}
	result := emitter.Events[3].Data.(*domain.QueryResult)
	if result.Columns[0] != "?column?" || result.Rows[0]["?column?"] != int64(1) {
		t.Fatalf("results payload = %+v", result)
	}

	// Delete → deleteSuccess + pushed empty list
	b.HandleCommand(ctx, command(t, map[string]any{
		"command":      "deleteConnection",
		"connectionId": 1,
	}))
	if emitter.Events[4].Event != bridge.EventDeleteSuccess {
		t.Fatalf("event[4] = %q", emitter.Events[4].Event)
	}
	if conns := listPayload(5); len(conns) != 0 {
		t.Fatalf("expected empty list after delete, got %+v", conns)
	}
}
