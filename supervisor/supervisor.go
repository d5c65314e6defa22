// Package supervisor keeps the hook helper processes running for as long as
// the server runs.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jpillora/backoff"
	"github.com/sirupsen/logrus"
)

const (
	DefaultPollInterval = 500 * time.Millisecond

	EnvPID   = "WLW_PID"
	EnvPipe  = "WLW_PIPE"
	EnvToken = "WLW_TOKEN"
)

var ErrNoHelpers = errors.New("no helpers configured")

// Helper is one command to keep alive.
type Helper struct {
	Name string
	Path string
	Args []string
	Env  []string // added to the server's environment
}

type Config struct {
	Helpers []Helper

	// PipeName is passed to every helper in WLW_PIPE.
	PipeName string

	// Token is passed in WLW_TOKEN. A random one is generated when empty.
	Token string

	PollInterval time.Duration
	MinBackoff   time.Duration
	MaxBackoff   time.Duration

	// Stdout and Stderr receive helper output. nil discards it.
	Stdout io.Writer
	Stderr io.Writer

	Logger logrus.FieldLogger
}

func (cfg Config) withDefaults() Config {
	if cfg.Token == "" {
		cfg.Token = uuid.NewString()
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.MinBackoff <= 0 {
		cfg.MinBackoff = cfg.PollInterval
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 30 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger().WithField("component", "supervisor")
	}
	return cfg
}

// Status describes one helper.
type Status struct {
	Name     string
	PID      int
	Running  bool
	Starts   int
	LastExit error
}

type process struct {
	helper  Helper
	backoff *backoff.Backoff

	cmd     *exec.Cmd
	running bool
	started time.Time
	next    time.Time // earliest restart
	starts  int

	exited  chan struct{}
	waitErr error // valid once exited is closed
	last    error
}

type Supervisor struct {
	cfg Config
	env []string

	mu    sync.Mutex
	procs []*process
}

func New(cfg Config) (*Supervisor, error) {
	if len(cfg.Helpers) == 0 {
		return nil, ErrNoHelpers
	}
	cfg = cfg.withDefaults()

	s := &Supervisor{
		cfg: cfg,
		env: append(os.Environ(),
			EnvPID+"="+strconv.Itoa(os.Getpid()),
			EnvPipe+"="+cfg.PipeName,
			EnvToken+"="+cfg.Token,
		),
	}
	for i, h := range cfg.Helpers {
		if h.Path == "" {
			return nil, fmt.Errorf("helper %d has no path", i)
		}
		if h.Name == "" {
			h.Name = h.Path
		}
		s.procs = append(s.procs, &process{
			helper: h,
			backoff: &backoff.Backoff{
				Factor: 2,
				Jitter: true,
				Min:    cfg.MinBackoff,
				Max:    cfg.MaxBackoff,
			},
		})
	}
	return s, nil
}

// Token is the session token handed to helpers.
func (s *Supervisor) Token() string { return s.cfg.Token }

// Run starts every helper, restarts the ones that exit and kills them all
// once ctx is done.
func (s *Supervisor) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		s.poll(time.Now())

		select {
		case <-ctx.Done():
			s.killAll()
			return nil
		case <-ticker.C:
		}
	}
}

func (s *Supervisor) poll(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.procs {
		if p.running {
			select {
			case <-p.exited:
				s.onExit(p, now)
			default:
				continue
			}
		}
		if !now.Before(p.next) {
			s.start(p, now)
		}
	}
}

func (s *Supervisor) onExit(p *process, now time.Time) {
	p.running = false
	p.last = p.waitErr
	if p.last == nil {
		p.last = errors.New("exited")
	}
	if now.Sub(p.started) > p.backoff.Max {
		p.backoff.Reset()
	}
	delay := p.backoff.Duration()
	p.next = now.Add(delay)

	s.cfg.Logger.WithFields(logrus.Fields{
		"helper": p.helper.Name,
		"pid":    p.cmd.Process.Pid,
		"retry":  delay,
	}).WithError(p.last).Error("hook helper exited prematurely")
}

func (s *Supervisor) start(p *process, now time.Time) {
	cmd := exec.Command(p.helper.Path, p.helper.Args...)
	cmd.Env = append(append([]string(nil), s.env...), p.helper.Env...)
	cmd.Stdout = s.cfg.Stdout
	cmd.Stderr = s.cfg.Stderr

	if err := cmd.Start(); err != nil {
		p.last = err
		delay := p.backoff.Duration()
		p.next = now.Add(delay)
		s.cfg.Logger.WithField("helper", p.helper.Name).WithField("retry", delay).WithError(err).Error("could not start hook helper")
		return
	}

	exited := make(chan struct{})
	p.cmd = cmd
	p.exited = exited
	p.running = true
	p.started = now
	p.starts++

	go func() {
		p.waitErr = cmd.Wait()
		close(exited)
	}()

	s.cfg.Logger.WithFields(logrus.Fields{"helper": p.helper.Name, "pid": cmd.Process.Pid}).Info("started hook helper")
}

func (s *Supervisor) killAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.procs {
		if !p.running {
			continue
		}
		select {
		case <-p.exited:
		default:
			if err := p.cmd.Process.Kill(); err != nil {
				s.cfg.Logger.WithField("helper", p.helper.Name).WithError(err).Warn("could not kill hook helper")
			}
			<-p.exited
		}
		p.running = false
		s.cfg.Logger.WithField("helper", p.helper.Name).Debug("stopped hook helper")
	}
}

// Status reports every helper in configuration order.
func (s *Supervisor) Status() []Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Status, 0, len(s.procs))
	for _, p := range s.procs {
		st := Status{Name: p.helper.Name, Running: p.running, Starts: p.starts, LastExit: p.last}
		if p.running {
			st.PID = p.cmd.Process.Pid
		}
		out = append(out, st)
	}
	return out
}
