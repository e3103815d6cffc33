package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/gliderlabs/ssh"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"tileworld/internal/config"
	"tileworld/internal/diag"
	"tileworld/internal/game"
	"tileworld/internal/logger"
	"tileworld/internal/maps"
	"tileworld/internal/nav"
	"tileworld/internal/render"
	"tileworld/internal/store"
)

// Options configures the SSH host.
type Options struct {
	Addr         string
	HostKey      string
	DefaultScene string
	Sim          config.SimConfig

	Catalog *maps.Catalog
	Loader  game.SceneLoader
	Sheet   *render.Sheet

	Store *store.Store // optional
	Diag  *diag.Hub    // optional

	Log logrus.FieldLogger
}

// SSHServer runs one engine per SSH session, drawn into the session's
// terminal.
type SSHServer struct {
	opts   Options
	log    logrus.FieldLogger
	srv    *ssh.Server
	active atomic.Int64
}

// NewSSHServer creates a new SSH server bound to opts.Addr.
func NewSSHServer(opts Options) *SSHServer {
	if opts.Log == nil {
		opts.Log = logger.Discard()
	}
	s := &SSHServer{opts: opts, log: opts.Log.WithField("component", "ssh")}
	s.srv = &ssh.Server{
		Addr:    opts.Addr,
		Handler: s.handleSession,
	}
	return s
}

// Start begins listening for SSH connections.
func (s *SSHServer) Start() error {
	if err := s.srv.SetOption(ssh.HostKeyFile(s.opts.HostKey)); err != nil {
		return fmt.Errorf("set host key: %w", err)
	}

	s.log.WithField("addr", s.opts.Addr).Info("SSH server listening")
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, ssh.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting sessions and waits for active ones to end.
func (s *SSHServer) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// Active returns the number of connected sessions.
func (s *SSHServer) Active() int64 { return s.active.Load() }

// control messages are handled on the session goroutine, which owns the
// loop and the terminal.
type control struct {
	action game.Action
	mouse  *mouseReport
	focus  focusChange
	resize *ssh.Window
}

func (s *SSHServer) handleSession(sess ssh.Session) {
	ptyReq, winCh, ok := sess.Pty()
	if !ok {
		fmt.Fprintln(sess, "Error: PTY required. Use: ssh -t ...")
		return
	}

	username := sess.User()
	if username == "" {
		username = "Anonymous"
	}
	id := uuid.NewString()
	log := s.log.WithFields(logrus.Fields{"user": username, "session": id})

	s.active.Add(1)
	log.Info("Player connected")
	defer func() {
		s.active.Add(-1)
		log.Info("Player disconnected")
	}()

	ctx, cancel := context.WithCancel(sess.Context())
	defer cancel()

	term := render.NewTerminal(ptyReq.Window.Width, ptyReq.Window.Height, s.opts.Sheet)
	overlay := &hudOverlay{}
	eng := s.newEngine(id, username, term, overlay, log)
	defer eng.Close()
	if s.opts.Diag != nil {
		defer s.opts.Diag.Forget(id)
	}

	eng.Boot(ctx, s.opts.DefaultScene)

	loop := game.NewLoop(eng, game.LoopConfig{
		Step:         s.opts.Sim.Step(),
		Stall:        s.opts.Sim.Stall(),
		DiagInterval: s.opts.Sim.DiagInterval(),
	}, log)
	if err := loop.Start(time.Now()); err != nil {
		log.WithError(err).Error("Could not start simulation loop")
		return
	}
	defer loop.Stop()

	io.WriteString(sess, render.EnableAltScreen())
	io.WriteString(sess, render.HideCursor())
	io.WriteString(sess, render.EnableMouse())
	io.WriteString(sess, render.EnableFocus())
	io.WriteString(sess, render.ClearScreen())
	defer func() {
		io.WriteString(sess, render.DisableFocus())
		io.WriteString(sess, render.DisableMouse())
		io.WriteString(sess, render.ShowCursor())
		io.WriteString(sess, render.DisableAltScreen())
	}()

	ctl := make(chan control, game.InputQueueSize)
	quitCh := make(chan struct{})

	// Goroutine: read input
	go func() {
		defer close(quitCh)
		buf := make([]byte, 256)
		for {
			n, err := sess.Read(buf)
			if err != nil {
				return
			}
			for _, in := range parseInput(buf[:n]) {
				if in.Action == game.ActionQuit {
					return
				}
				select {
				case ctl <- control{action: in.Action, mouse: in.Mouse, focus: in.Focus}:
				default:
				}
			}
		}
	}()

	// Goroutine: handle window resizes
	go func() {
		for win := range winCh {
			w := win
			select {
			case ctl <- control{resize: &w}:
			case <-ctx.Done():
				return
			}
		}
	}()

	eng.Resize(term.ScreenSize())
	frameRate := s.opts.Sim.FrameRate
	if frameRate <= 0 {
		frameRate = 30
	}
	ticker := time.NewTicker(time.Second / time.Duration(frameRate))
	defer ticker.Stop()

	for {
		select {
		case <-quitCh:
			return
		case <-ctx.Done():
			return
		case c := <-ctl:
			s.handleControl(ctx, c, eng, loop, term, overlay, log)
		case now := <-ticker.C:
			loop.Tick(now)
			hud := eng.HUD(loop.Stats())
			if overlay.enabled {
				hud.Status = overlay.line()
			}
			if out := term.Finish(hud); len(out) > 0 {
				io.WriteString(sess, out)
			}
		}
	}
}

func (s *SSHServer) newEngine(id, username string, term *render.Terminal, overlay *hudOverlay, log logrus.FieldLogger) *game.Engine {
	w, h := term.ScreenSize()
	var eng *game.Engine
	pathfinder := nav.New(func() *maps.OccupancyGrid { return eng.World().Grid }, game.WalkSpeed, log)

	opts := []game.Option{
		game.WithCompositor(term),
		game.WithLighting(term, term),
		game.WithPathfinder(pathfinder),
		game.WithDebugOverlay(overlay),
	}
	if s.opts.Store != nil {
		opts = append(opts, game.WithSession(s.opts.Store.Session(username)))
	}
	if s.opts.Diag != nil {
		opts = append(opts, game.WithDiagnostics(s.opts.Diag))
	}

	eng = game.NewEngine(game.EngineConfig{
		Session:         id,
		Player:          username,
		Catalog:         s.opts.Catalog,
		Loader:          s.opts.Loader,
		Sheet:           s.opts.Sheet,
		ScreenW:         w,
		ScreenH:         h,
		Zoom:            s.opts.Sim.Zoom,
		StartHour:       12,
		ClockMultiplier: s.opts.Sim.ClockMultiplier,
		Log:             log,
	}, opts...)
	return eng
}

func (s *SSHServer) handleControl(ctx context.Context, c control, eng *game.Engine, loop *game.Loop, term *render.Terminal, overlay *hudOverlay, log logrus.FieldLogger) {
	switch {
	case c.resize != nil:
		term.Resize(c.resize.Width, c.resize.Height)
		eng.Resize(term.ScreenSize())
	case c.mouse != nil:
		_, viewH := term.ScreenSize()
		x, y := render.CellToScreen(c.mouse.Col, c.mouse.Row)
		if y >= float64(viewH) && c.mouse.Kind == game.PointerDown {
			return // click on the HUD
		}
		eng.HandlePointer(game.PointerEvent{
			Kind:    c.mouse.Kind,
			Button:  c.mouse.Button,
			ScreenX: x + 0.5,
			ScreenY: y + 1,
			Shift:   c.mouse.Shift,
		})
	case c.focus != focusNone:
		if err := loop.SetFocused(ctx, c.focus == focusIn); err != nil {
			log.WithError(err).Warn("Focus change failed")
		}
	case c.action == game.ActionPause:
		var err error
		if loop.State() == game.StatePaused {
			err = loop.Resume(ctx)
		} else {
			err = loop.Pause(ctx)
		}
		if err != nil {
			log.WithError(err).Warn("Pause toggle failed")
		}
	case c.action == game.ActionDebug:
		overlay.enabled = !overlay.enabled
	default:
		eng.HandleAction(c.action)
	}
}
