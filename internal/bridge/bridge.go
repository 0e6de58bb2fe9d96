package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"querypad/internal/domain"
)

// Inbound command names. The UI surface emits these on the
// "editor:command" event with the payload fields of CommandMessage.
const (
	CmdGetConnections   = "getConnections"
	CmdSaveConnection   = "saveConnection"
	CmdDeleteConnection = "deleteConnection"
	CmdExecute          = "execute"
	CmdTestConnection   = "testConnection"
	CmdGetClipboardText = "getClipboardText"
)

// Outbound event names.
const (
	EventConnectionList = "connectionList"
	EventSaveSuccess    = "saveSuccess"
	EventDeleteSuccess  = "deleteSuccess"
	EventResults        = "results"
	EventTestResult     = "testResult"
	EventClipboardText  = "clipboardText"
	EventError          = "editor:error"
	EventPanelShow      = "panel:show"
	EventPanelReveal    = "panel:reveal"
)

// CommandMessage is one decoded inbound command. Only the fields
// relevant to the named command are populated; the bridge forwards
// them as-is and lets the target operation complain.
type CommandMessage struct {
	Command      string                    `json:"command"`
	Connection   *domain.ConnectionProfile `json:"connection,omitempty"`
	IsEdit       bool                      `json:"isEdit,omitempty"`
	ConnectionID int64                     `json:"connectionId,omitempty"`
	Query        string                    `json:"query,omitempty"`
}

// QueryGateway runs one statement against one short-lived connection.
type QueryGateway interface {
	Execute(ctx context.Context, p *domain.ConnectionProfile, queryText string) (*domain.QueryResult, error)
	Test(ctx context.Context, p *domain.ConnectionProfile) error
}

// Clipboard reads the host clipboard.
type Clipboard interface {
	GetText(ctx context.Context) (string, error)
}

// Bridge is the single dispatch point between the UI surface and the
// privileged operations, and the owner of the singleton panel
// lifecycle. One inbound command yields exactly one outbound event
// (plus a push-refreshed connection list after mutations); every
// operation failure is converted into an error notification and never
// escapes the handler.
type Bridge struct {
	store     domain.ProfileStore
	gateway   QueryGateway
	emitter   Emitter
	clipboard Clipboard

	mu      sync.Mutex
	panelID string // empty while no panel is active
}

// New creates a Bridge.
func New(store domain.ProfileStore, gateway QueryGateway, emitter Emitter, clipboard Clipboard) *Bridge {
	return &Bridge{
		store:     store,
		gateway:   gateway,
		emitter:   emitter,
		clipboard: clipboard,
	}
}

// OpenEditor moves the panel from Absent to Active, or reveals the
// existing panel when one is already active. Returns the panel id.
func (b *Bridge) OpenEditor(ctx context.Context) string {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.panelID != "" {
		b.emitter.Emit(ctx, EventPanelReveal, map[string]string{"id": b.panelID})
		return b.panelID
	}
	b.panelID = uuid.New().String()
	b.emitter.Emit(ctx, EventPanelShow, map[string]string{"id": b.panelID})
	return b.panelID
}

// PanelClosed records that the user closed the panel. The next
// OpenEditor starts from scratch with no memory of in-panel state.
func (b *Bridge) PanelClosed() {
	b.mu.Lock()
	b.panelID = ""
	b.mu.Unlock()
}

// PanelActive reports whether a panel currently exists.
func (b *Bridge) PanelActive() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.panelID != ""
}

// HandleCommand decodes one inbound command message and dispatches it.
// payload is whatever the event transport delivered: a JSON object
// already decoded into a map, raw bytes, or a JSON string.
func (b *Bridge) HandleCommand(ctx context.Context, payload any) {
	// A malformed payload must not take the host down with it.
	defer func() {
		if r := recover(); r != nil {
			b.fail(ctx, fmt.Errorf("internal error handling command: %v", r))
		}
	}()

	msg, err := decodeCommand(payload)
	if err != nil {
		b.fail(ctx, fmt.Errorf("invalid command message: %w", err))
		return
	}

	switch msg.Command {
	case CmdGetConnections:
		b.pushConnections(ctx)

	case CmdSaveConnection:
		if err := b.store.Save(msg.Connection, msg.IsEdit); err != nil {
			b.fail(ctx, fmt.Errorf("error saving connection: %w", err))
			return
		}
		b.emitter.Emit(ctx, EventSaveSuccess, nil)
		b.pushConnections(ctx)

	case CmdDeleteConnection:
		if err := b.store.Delete(msg.ConnectionID); err != nil {
			b.fail(ctx, fmt.Errorf("error deleting connection: %w", err))
			return
		}
		b.emitter.Emit(ctx, EventDeleteSuccess, nil)
		b.pushConnections(ctx)

	case CmdExecute:
		result, err := b.gateway.Execute(ctx, msg.Connection, msg.Query)
		if err != nil {
			b.fail(ctx, fmt.Errorf("error executing query: %w", err))
			return
		}
		b.emitter.Emit(ctx, EventResults, result)

	case CmdTestConnection:
		if err := b.gateway.Test(ctx, msg.Connection); err != nil {
			b.emitter.Emit(ctx, EventTestResult, map[string]any{
				"success": false,
				"error":   err.Error(),
			})
			return
		}
		b.emitter.Emit(ctx, EventTestResult, map[string]any{"success": true})

	case CmdGetClipboardText:
		text, err := b.clipboard.GetText(ctx)
		if err != nil {
			b.fail(ctx, fmt.Errorf("error reading clipboard: %w", err))
			return
		}
		b.emitter.Emit(ctx, EventClipboardText, map[string]string{"text": text})

	default:
		b.fail(ctx, fmt.Errorf("unrecognized command: %q", msg.Command))
	}
}

// pushConnections re-reads the full profile list and sends it to the
// surface. Used both as the getConnections response and as the
// push-refresh after save/delete.
func (b *Bridge) pushConnections(ctx context.Context) {
	profiles, err := b.store.List()
	if err != nil {
		b.fail(ctx, fmt.Errorf("error loading connections: %w", err))
		return
	}
	b.emitter.Emit(ctx, EventConnectionList, map[string]any{"connections": profiles})
}

func (b *Bridge) fail(ctx context.Context, err error) {
	b.emitter.Emit(ctx, EventError, map[string]string{"message": err.Error()})
}

func decodeCommand(payload any) (*CommandMessage, error) {
	var raw []byte
	switch v := payload.(type) {
	case []byte:
		raw = v
	case json.RawMessage:
		raw = v
	case string:
		raw = []byte(v)
	default:
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		raw = data
	}

	var msg CommandMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, err
	}
	if msg.Command == "" {
		return nil, errors.New("missing command name")
	}
	return &msg, nil
}
