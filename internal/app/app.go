package app

import (
	"context"
	"os"
	"path/filepath"

	wailsRuntime "github.com/wailsapp/wails/v2/pkg/runtime"

	"querypad/internal/bridge"
	"querypad/internal/gateway"
	"querypad/internal/storage"
)

// App is the main Wails application struct. It wires the profile
// store and the query gateway into the session bridge and subscribes
// the bridge to command events from the UI surface.
type App struct {
	ctx    context.Context
	store  *storage.ProfileStore
	bridge *bridge.Bridge
}

// New creates a new App.
func New() *App {
	return &App{}
}

// Startup is called when the app starts.
func (a *App) Startup(ctx context.Context) {
	a.ctx = ctx

	homeDir, _ := os.UserHomeDir()
	dbPath := filepath.Join(homeDir, ".local", "share", "querypad", "connections.db")
	wailsRuntime.LogInfof(ctx, "Profile store path: %s", dbPath)

	a.store = storage.NewProfileStore(dbPath)
	if err := a.store.Initialize(); err != nil {
		wailsRuntime.LogFatalf(ctx, "Failed to open profile store: %v", err)
		return
	}

	a.bridge = bridge.New(a.store, gateway.New(), wailsEmitter{}, wailsClipboard{})

	// All UI intents arrive as messages on a single event; the bridge
	// answers each with exactly one response event.
	wailsRuntime.EventsOn(ctx, "editor:command", func(args ...any) {
		if len(args) == 0 {
			return
		}
		wailsRuntime.LogDebugf(ctx, "[bridge] command received")
		a.bridge.HandleCommand(ctx, args[0])
	})
}

// Shutdown is called when the app is closing.
func (a *App) Shutdown(ctx context.Context) {
	if a.store != nil {
		a.store.Close()
	}
}

// OpenEditor creates the editor panel, or reveals the existing one
// when it is already open. Returns the panel id.
func (a *App) OpenEditor() string {
	return a.bridge.OpenEditor(a.ctx)
}

// EditorClosed is called by the frontend when the user closes the
// editor panel.
func (a *App) EditorClosed() {
	a.bridge.PanelClosed()
}

// wailsEmitter adapts wailsRuntime.EventsEmit to the bridge.Emitter
// interface.
type wailsEmitter struct{}

func (wailsEmitter) Emit(ctx context.Context, event string, data any) {
	wailsRuntime.EventsEmit(ctx, event, data)
}

// wailsClipboard reads the host clipboard through the Wails runtime.
type wailsClipboard struct{}

func (wailsClipboard) GetText(ctx context.Context) (string, error) {
	return wailsRuntime.ClipboardGetText(ctx)
}
