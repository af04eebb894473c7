// Package console renders the client session to a terminal.
package console

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/park285/tsc-client/internal/controller"
	"github.com/park285/tsc-client/internal/view"
	"github.com/park285/tsc-client/internal/view/boardimage"
)

// Presenter writes display updates as lines of text and optionally exports
// every rendered frame as a PNG.
type Presenter struct {
	mu        sync.Mutex
	out       io.Writer
	exportDir string
	logger    *zap.Logger
}

func NewPresenter(out io.Writer, exportDir string, logger *zap.Logger) *Presenter {
	if out == nil {
		out = os.Stdout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Presenter{out: out, exportDir: strings.TrimSpace(exportDir), logger: logger}
}

var _ controller.Display = (*Presenter)(nil)

func (p *Presenter) ShowScreen(s controller.Screen) {
	p.printf("== %s ==\n", s)
}

func (p *Presenter) SetMe(text string) {
	if text == "" {
		return
	}
	p.printf("Signed in as %s\n", text)
}

func (p *Presenter) SetAuthError(text string) {
	if text == "" {
		return
	}
	p.printf("! %s\n", text)
}

func (p *Presenter) SetQueueStatus(text string) {
	if text == "" {
		return
	}
	p.printf("[queue] %s\n", text)
}

func (p *Presenter) SetGameStatus(text string) {
	if text == "" {
		return
	}
	p.printf("[status] %s\n", text)
}

func (p *Presenter) RenderMatch(f *view.Frame) {
	if f == nil {
		return
	}
	p.printf("%s", view.Text(f))
	if p.exportDir == "" {
		return
	}
	if _, err := Export(context.Background(), f, p.exportDir); err != nil {
		p.logger.Warn("frame_export_failed", zap.String("match", f.MatchID), zap.Error(err))
	}
}

func (p *Presenter) printf(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, format, args...)
}

// Export writes f as <dir>/<matchID>.png and returns the path.
func Export(ctx context.Context, f *view.Frame, dir string) (string, error) {
	data, err := boardimage.RenderPNG(ctx, f)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	name := sanitizeFileName(f.MatchID)
	if name == "" {
		name = "match"
	}
	path := filepath.Join(dir, name+".png")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write png: %w", err)
	}
	return path, nil
}

func sanitizeFileName(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, strings.TrimSpace(s))
}
