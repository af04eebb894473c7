package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/park285/tsc-client/internal/adapter/console"
	appcfg "github.com/park285/tsc-client/internal/config"
	"github.com/park285/tsc-client/internal/controller"
	"github.com/park285/tsc-client/internal/match"
	"github.com/park285/tsc-client/internal/view"
	"github.com/park285/tsc-client/pkg/tscproto"
)

const requestTimeout = 15 * time.Second

// clientSession is the part of the controller the command loop drives.
type clientSession interface {
	Register(ctx context.Context, username, password string) error
	Login(ctx context.Context, username, password string) error
	Logout(ctx context.Context)
	JoinQueue(ctx context.Context, mode tscproto.Mode, timeControl string) error
	LeaveQueue(ctx context.Context) error
	Resign(ctx context.Context) error
	BackToLobby()
	DragStart(board int, piece string) bool
	Drop(ctx context.Context, board int, from, to, promotion string) controller.DropResult
	Frame() *view.Frame
	QueueText() string
}

type app struct {
	ctrl clientSession
	cfg  *appcfg.AppConfig
	out  io.Writer
}

var errUsage = errors.New("usage")

// run executes one command line and reports whether the client should exit.
func (a *app) run(ctx context.Context, line string) bool {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return false
	}
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	var err error
	switch cmd {
	case "help":
		fmt.Fprintln(a.out, helpText())
	case "quit", "exit":
		return true
	case "register", "login":
		if len(args) != 2 {
			err = fmt.Errorf("%w: %s <username> <password>", errUsage, cmd)
			break
		}
		if cmd == "register" {
			_ = a.ctrl.Register(ctx, args[0], args[1])
		} else {
			_ = a.ctrl.Login(ctx, args[0], args[1])
		}
	case "logout":
		a.ctrl.Logout(ctx)
	case "queue":
		mode, tc := a.defaultMode(), a.defaultTimeControl()
		if len(args) >= 1 {
			mode = tscproto.Mode(strings.ToLower(args[0]))
		}
		if len(args) >= 2 {
			tc = args[1]
		}
		if mode != tscproto.ModeSolo && mode != tscproto.ModeTeam {
			err = fmt.Errorf("%w: queue [solo|team] [time control]", errUsage)
			break
		}
		err = a.ctrl.JoinQueue(ctx, mode, tc)
	case "leave":
		err = a.ctrl.LeaveQueue(ctx)
	case "resign":
		err = a.ctrl.Resign(ctx)
	case "lobby":
		a.ctrl.BackToLobby()
	case "move":
		err = a.move(ctx, args)
	case "show":
		if f := a.ctrl.Frame(); f != nil {
			fmt.Fprint(a.out, view.Text(f))
		} else if q := a.ctrl.QueueText(); q != "" {
			fmt.Fprintln(a.out, q)
		} else {
			fmt.Fprintln(a.out, "No match in progress.")
		}
	case "png":
		err = a.export(ctx, args)
	default:
		fmt.Fprintln(a.out, "Unknown command. Try 'help'.")
	}
	if err != nil {
		fmt.Fprintf(a.out, "! %v\n", err)
	}
	return false
}

// move looks up the piece on the origin square, asks the drag gate and only
// then drops. The piece snaps back until the server confirms.
func (a *app) move(ctx context.Context, args []string) error {
	if len(args) < 3 || len(args) > 4 {
		return fmt.Errorf("%w: move <board 1-3> <from> <to> [promotion]", errUsage)
	}
	board, err := strconv.Atoi(args[0])
	if err != nil || board < 1 || board > tscproto.BoardCount {
		return fmt.Errorf("board must be 1..%d", tscproto.BoardCount)
	}
	from, to := strings.ToLower(args[1]), strings.ToLower(args[2])
	if _, err := match.ParseSquare(from); err != nil {
		return err
	}
	if _, err := match.ParseSquare(to); err != nil {
		return err
	}
	promotion := ""
	if len(args) == 4 {
		promotion = args[3]
	}

	f := a.ctrl.Frame()
	if f == nil {
		return errors.New("no match in progress")
	}
	pos, err := match.ParsePosition(f.Board(board).Position)
	if err != nil {
		return err
	}
	piece, ok := match.PieceAt(pos, from)
	if !ok {
		return fmt.Errorf("no piece on %s", from)
	}
	if !a.ctrl.DragStart(board, piece) {
		return fmt.Errorf("you cannot move %s on board %d now", piece, board)
	}
	a.ctrl.Drop(ctx, board, from, to, promotion)
	fmt.Fprintf(a.out, "Sent %s %s-%s on board %d.\n", piece, from, to, board)
	return nil
}

func (a *app) export(ctx context.Context, args []string) error {
	dir := a.cfg.ExportDir
	if len(args) >= 1 {
		dir = args[0]
	}
	if dir == "" {
		return fmt.Errorf("%w: png <dir>", errUsage)
	}
	f := a.ctrl.Frame()
	if f == nil {
		return errors.New("no match in progress")
	}
	path, err := console.Export(ctx, f, dir)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Wrote %s\n", path)
	return nil
}

func (a *app) defaultMode() tscproto.Mode {
	if a.cfg == nil || a.cfg.DefaultMode == "" {
		return tscproto.ModeSolo
	}
	return tscproto.Mode(a.cfg.DefaultMode)
}

func (a *app) defaultTimeControl() string {
	if a.cfg == nil || a.cfg.DefaultTimeControl == "" {
		return "5+0"
	}
	return a.cfg.DefaultTimeControl
}

func helpText() string {
	return strings.Join([]string{
		"♞ Triple simultaneous chess",
		"",
		"• register <user> <password> | login <user> <password> | logout",
		"• queue [solo|team] [5+0] | leave",
		"• move <board> <from> <to> [q|r|b|n] | resign | lobby",
		"• show | png <dir> | help | quit",
	}, "\n")
}
