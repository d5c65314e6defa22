// Package wm is the window manager behind the pipe server: it turns hook
// records into Script callbacks and sends the script's answers back.
package wm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/TheSmallBoat/wlw/hookevent"
	"github.com/TheSmallBoat/wlw/pipeserver"
)

const DefaultBacklog = 256

var (
	ErrServerFailed = errors.New("pipe server failed")
	ErrScript       = errors.New("window script failed")
)

type Config struct {
	// PipeName defaults to wlw_server_<pid>.
	PipeName string

	// GrowBy is passed on to the pipe server.
	GrowBy int

	// Backlog is the number of requests queued for Run. Requests arriving
	// while it is full are acknowledged without reaching the script.
	Backlog int

	Logger logrus.FieldLogger
}

func (cfg Config) withDefaults() Config {
	if cfg.PipeName == "" {
		cfg.PipeName = DefaultPipeName()
	}
	if cfg.Backlog <= 0 {
		cfg.Backlog = DefaultBacklog
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger().WithField("component", "wm")
	}
	return cfg
}

// DefaultPipeName is the pipe name hook helpers of this process connect to.
func DefaultPipeName() string {
	return fmt.Sprintf("wlw_server_%d", os.Getpid())
}

// Context owns the pipe server and the window registry. Requests arrive on
// the pipe server's goroutine and are handled by Run.
type Context struct {
	cfg    Config
	script Script
	server *pipeserver.Server

	requests chan *pipeserver.Request
	failed   chan error
	closing  chan struct{}
	once     sync.Once

	mu       sync.Mutex
	registry *windowRegistry

	buf []byte
}

func New(cfg Config, script Script) (*Context, error) {
	cfg = cfg.withDefaults()
	if script == nil {
		script = NopScript{}
	}

	c := &Context{
		cfg:      cfg,
		script:   script,
		requests: make(chan *pipeserver.Request, cfg.Backlog),
		failed:   make(chan error, 1),
		closing:  make(chan struct{}),
		registry: newWindowRegistry(),
		buf:      make([]byte, 0, hookevent.ResponseSize),
	}

	server, err := pipeserver.New(pipeserver.Config{
		Name:         cfg.PipeName,
		RequestSize:  hookevent.RequestSize,
		ResponseSize: hookevent.ResponseSize,
		GrowBy:       cfg.GrowBy,
		Logger:       cfg.Logger.WithField("pipe", cfg.PipeName),
	}, pipeserver.HandlerFunc(c.enqueue), c.onFail)
	if err != nil {
		return nil, err
	}
	c.server = server
	return c, nil
}

// enqueue runs on the pipe server's poller and never blocks it: a request
// that finds the backlog full is acknowledged unhandled.
func (c *Context) enqueue(req *pipeserver.Request) {
	select {
	case <-c.closing:
		_ = req.Acknowledge()
		return
	default:
	}

	select {
	case c.requests <- req:
	default:
		droppedCounter.Inc()
		c.cfg.Logger.WithField("slot", req.Slot()).WithField("backlog", c.cfg.Backlog).Warn("hook request backlog full, dropping event")
		_ = req.Acknowledge()
	}
}

func (c *Context) onFail(err error) {
	select {
	case c.failed <- err:
	default:
	}
}

// PipeName is the name hook helpers pass to pipeserver.Dial.
func (c *Context) PipeName() string { return c.cfg.PipeName }

func (c *Context) Stats() pipeserver.Stats { return c.server.Stats() }

// Run handles requests until ctx is done, the pipe server fails or the
// script returns an error.
func (c *Context) Run(ctx context.Context) error {
	c.cfg.Logger.WithField("pipe", c.cfg.PipeName).Info("window manager running")
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-c.failed:
			return fmt.Errorf("%w: %v", ErrServerFailed, err)
		case req := <-c.requests:
			if err := c.handle(req); err != nil {
				return err
			}
		}
	}
}

// Close stops the pipe server. Requests still queued are dropped.
func (c *Context) Close() {
	c.once.Do(func() {
		close(c.closing)
		c.server.Stop()
	})
}

func (c *Context) handle(req *pipeserver.Request) error {
	event, err := hookevent.UnmarshalEvent(req.Message())
	if err != nil {
		c.cfg.Logger.WithError(err).WithField("slot", req.Slot()).Warn("ignoring malformed hook record")
		c.answer(req, nil)
		return nil
	}

	start := time.Now()
	res, err := c.dispatch(event)
	eventTimer.WithValues(event.Kind().String()).UpdateSince(start)
	if err != nil {
		c.answer(req, nil)
		return fmt.Errorf("%w: %s on window %#x: %v", ErrScript, event.Kind(), event.Window(), err)
	}
	c.answer(req, res)
	return nil
}

func (c *Context) answer(req *pipeserver.Request, res *hookevent.PosAndSize) {
	var err error
	if res == nil {
		err = req.Acknowledge()
	} else {
		c.buf = res.AppendTo(c.buf[:0])
		err = req.Respond(c.buf)
	}
	if err != nil {
		c.cfg.Logger.WithError(err).WithField("slot", req.Slot()).Debug("could not answer hook request")
	}
}

func (c *Context) dispatch(event hookevent.Event) (*hookevent.PosAndSize, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch e := event.(type) {
	case hookevent.ShowWindow:
		w := c.registry.get(e.HWND)
		w.Shown = e.Shown
		return nil, c.script.OnWindowShow(w, e.Shown)

	case hookevent.Activate:
		w := c.registry.get(e.HWND)
		c.registry.active = e.HWND
		return nil, c.script.OnWindowActivate(w, e.CausedByMouse)

	case hookevent.CreateWindow:
		w := c.registry.get(e.HWND)
		w.Rect = e.Rect
		rect, err := c.script.OnWindowCreate(w, e.Rect)
		if err != nil {
			return nil, err
		}
		w.Rect = rect
		return &hookevent.PosAndSize{Rect: rect}, nil

	case hookevent.DestroyWindow:
		w, ok := c.registry.remove(e.HWND)
		if !ok {
			return nil, nil
		}
		return nil, c.script.OnWindowDestroy(w)

	case hookevent.MinMax:
		w := c.registry.get(e.HWND)
		if !e.ShowCommand.Valid() {
			c.cfg.Logger.WithField("hwnd", e.HWND).WithField("command", int32(e.ShowCommand)).Warn("ignoring unknown show command")
			return nil, nil
		}
		w.ShowCommand = e.ShowCommand
		return nil, c.script.OnWindowMinMax(w, e.ShowCommand)

	case hookevent.MoveSize:
		w := c.registry.get(e.HWND)
		rect, err := c.script.OnWindowMoveResize(w, e.Rect)
		if err != nil {
			return nil, err
		}
		w.Rect = rect
		return &hookevent.PosAndSize{Rect: rect}, nil
	}
	return nil, fmt.Errorf("%w: %T", hookevent.ErrUnknownKind, event)
}

// Windows returns a copy of every tracked window, ordered by handle.
func (c *Context) Windows() []Window {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Window, 0, len(c.registry.windows))
	for _, w := range c.registry.windows {
		out = append(out, *w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].HWND < out[j].HWND })
	return out
}

// Active returns the last activated window, or 0.
func (c *Context) Active() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.registry.active
}
