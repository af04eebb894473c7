package controller

import (
	"context"

	"github.com/park285/tsc-client/internal/realtime"
	"github.com/park285/tsc-client/internal/view"
	"github.com/park285/tsc-client/pkg/tscproto"
)

// AuthAPI is the HTTP credential exchange.
type AuthAPI interface {
	Register(ctx context.Context, username, password string) (string, error)
	Login(ctx context.Context, username, password string) (string, error)
	Me(ctx context.Context, credential string) (*tscproto.Identity, error)
}

// Channel is the realtime connection as seen by the controller.
type Channel interface {
	Connect(ctx context.Context, credential string) error
	Close(ctx context.Context) error
	Connected() bool
	Subscribe(kind tscproto.EventKind, h realtime.Handler) error
	Send(ctx context.Context, kind tscproto.IntentKind, payload any) error
	OnStateChange(cb realtime.StateCallback)
}

// Display receives everything the user sees. All calls happen on the
// controller's loop goroutine, one at a time.
type Display interface {
	ShowScreen(s Screen)
	SetMe(text string)
	SetAuthError(text string)
	SetQueueStatus(text string)
	SetGameStatus(text string)
	RenderMatch(f *view.Frame)
}

type Screen string

const (
	ScreenAuth  Screen = "auth"
	ScreenLobby Screen = "lobby"
	ScreenGame  Screen = "game"
)

// DropResult tells the board widget what to do with a dropped piece.
type DropResult string

// DropSnapback returns the piece to its origin; positions only advance when
// the next snapshot arrives.
const DropSnapback DropResult = "snapback"

type nopDisplay struct{}

func (nopDisplay) ShowScreen(Screen)       {}
func (nopDisplay) SetMe(string)            {}
func (nopDisplay) SetAuthError(string)     {}
func (nopDisplay) SetQueueStatus(string)   {}
func (nopDisplay) SetGameStatus(string)    {}
func (nopDisplay) RenderMatch(*view.Frame) {}
