package pipeserver

import (
	"fmt"
	"net"
	"sync"

	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"
)

const DefaultGrowBy = 16

type Config struct {
	// Name scopes the endpoint address, see Addr.
	Name string

	RequestSize  int
	ResponseSize int

	// GrowBy is the number of slots added whenever no slot is free.
	GrowBy int

	ConnState ConnStateHandler
	Logger    logrus.FieldLogger
}

func (cfg Config) withDefaults() Config {
	if cfg.GrowBy <= 0 {
		cfg.GrowBy = DefaultGrowBy
	}
	if cfg.ConnState == nil {
		cfg.ConnState = DefaultConnStateHandler
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger().WithField("component", "pipeserver")
	}
	return cfg
}

func (cfg Config) validate() error {
	if cfg.Name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidConfig)
	}
	if cfg.RequestSize <= 0 || cfg.ResponseSize <= 0 {
		return fmt.Errorf("%w: request size %d and response size %d must be positive",
			ErrInvalidConfig, cfg.RequestSize, cfg.ResponseSize)
	}
	return nil
}

// Server accepts clients on a named endpoint and serves fixed-size requests
// from all of them on a single poller goroutine.
type Server struct {
	cfg    Config
	ln     net.Listener
	stop   *signal
	router *router
	stats  counters

	once    sync.Once
	done    chan struct{}
	closing error // set by the poller before done is closed
}

// New creates the endpoint and starts the poller. handler receives every
// request; onFail, if not nil, is called at most once if the poller dies,
// after the pool is torn down, so it may call Stop.
func New(cfg Config, handler Handler, onFail func(error)) (*Server, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()

	cfg.Logger.WithField("addr", address(cfg.Name)).Debug("creating pipe server")

	ln, err := listen(cfg.Name, cfg.RequestSize, cfg.ResponseSize)
	if err != nil {
		return nil, &OpError{Op: opListen, Slot: -1, Err: err}
	}

	s := newServer(cfg, ln)
	s.start(handler, onFail)
	return s, nil
}

func newServer(cfg Config, ln net.Listener) *Server {
	return &Server{
		cfg:    cfg,
		ln:     ln,
		stop:   newSignal(),
		router: newRouter(),
		done:   make(chan struct{}),
	}
}

func (s *Server) start(handler Handler, onFail func(error)) {
	if handler == nil {
		handler = DefaultHandler
	}
	go s.run(handler, onFail)
}

func (s *Server) run(handler Handler, onFail func(error)) {
	list := newConnectionList(s.ln, s.cfg.RequestSize, s.cfg.ResponseSize, s.stop, s.router,
		handler, s.cfg.ConnState, &s.stats, s.cfg.Logger)

	err := func() error {
		for {
			if list.free == 0 {
				list.grow(s.cfg.GrowBy)
			}
			stop, err := list.poll()
			s.stats.setFree(list.free)
			if err != nil {
				return err
			}
			if stop {
				return nil
			}
		}
	}()

	s.router.close()
	s.closing = multierr.Combine(s.ln.Close(), list.close())
	s.stats.setFree(0)
	s.stats.addSlots(-len(list.connections))
	close(s.done)

	if err != nil {
		s.cfg.Logger.WithError(err).Error("pipe server failed")
		if onFail != nil {
			onFail(err)
		}
		return
	}
	s.cfg.Logger.Debug("pipe server stopped")
}

// Addr returns the platform address clients connect to.
func (s *Server) Addr() string { return address(s.cfg.Name) }

func (s *Server) Stats() Stats { return s.stats.snapshot() }

// Done is closed once the poller has exited and every slot is torn down.
func (s *Server) Done() <-chan struct{} { return s.done }

// Stop ends the poller and waits for it. No handler call happens after Stop
// returns. Stop must not be called from a handler. A failure to release a
// slot during teardown is a programming error and panics.
func (s *Server) Stop() {
	s.once.Do(func() {
		s.stop.set()
		<-s.done
		if s.closing != nil {
			panic(fmt.Sprintf("pipeserver: teardown failed: %v", s.closing))
		}
	})
}
