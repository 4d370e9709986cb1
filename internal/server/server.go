// Package server runs the listeners that feed connections into the hub.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/spock-server/internal/httpapi"
	"github.com/DoyleJ11/spock-server/internal/hub"
	"github.com/DoyleJ11/spock-server/internal/protocol"
	"github.com/DoyleJ11/spock-server/internal/transport"
)

const defaultShutdownTimeout = 5 * time.Second

type Options struct {
	TCPAddr  string
	HTTPAddr string // empty disables the HTTP API
	// Console, when set, is seated before any network player.
	Console         transport.Conn
	ShutdownTimeout time.Duration
	Logger          *zap.Logger
}

type Server struct {
	hub  *hub.Hub
	opts Options
	log  *zap.Logger
}

func New(h *hub.Hub, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = defaultShutdownTimeout
	}
	return &Server{hub: h, opts: opts, log: opts.Logger}
}

// Run listens on the configured addresses and serves until the hub is idle
// or ctx ends.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.TCPAddr)
	if err != nil {
		return err
	}
	var httpLn net.Listener
	if s.opts.HTTPAddr != "" {
		httpLn, err = net.Listen("tcp", s.opts.HTTPAddr)
		if err != nil {
			_ = ln.Close()
			return err
		}
	}
	return s.Serve(ctx, ln, httpLn)
}

// Serve is Run on listeners the caller already holds. httpLn may be nil.
func (s *Server) Serve(ctx context.Context, ln, httpLn net.Listener) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	if s.opts.Console != nil {
		if _, err := s.hub.JoinConn(gctx, s.opts.Console); err != nil {
			_ = ln.Close()
			if httpLn != nil {
				_ = httpLn.Close()
			}
			return err
		}
	}

	var srv *http.Server
	if httpLn != nil {
		srv = &http.Server{
			Handler:           httpapi.SetupRoutes(s.hub, s.log),
			ReadHeaderTimeout: 10 * time.Second,
		}
		g.Go(func() error {
			s.log.Info("http listening", zap.String("addr", httpLn.Addr().String()))
			if err := srv.Serve(httpLn); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}

	g.Go(func() error {
		s.log.Info("tcp listening", zap.String("addr", ln.Addr().String()))
		return s.accept(gctx, ln)
	})

	g.Go(func() error {
		select {
		case <-s.hub.Idle():
			s.log.Info("all sessions finished")
		case <-gctx.Done():
			s.drain()
		}
		cancel()
		_ = ln.Close()
		if srv != nil {
			sctx, scancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
			defer scancel()
			if err := srv.Shutdown(sctx); err != nil {
				s.log.Warn("http shutdown", zap.Error(err))
			}
		}
		return nil
	})

	return g.Wait()
}

// drain asks the hub to end every session and waits for the QUITs to go out.
func (s *Server) drain() {
	timer := time.NewTimer(s.opts.ShutdownTimeout)
	defer timer.Stop()
	select {
	case s.hub.Inbox() <- hub.ShutdownHub{}:
	case <-s.hub.Idle():
		return
	case <-timer.C:
		return
	}
	select {
	case <-s.hub.Idle():
	case <-timer.C:
		s.log.Warn("sessions still running at shutdown")
	}
}

func (s *Server) accept(ctx context.Context, ln net.Listener) error {
	for {
		c, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		lc := transport.NewLineConn(c)
		ack, err := s.hub.JoinConn(ctx, lc)
		if err != nil {
			if errors.Is(err, hub.ErrClosed) {
				wctx, wcancel := context.WithTimeout(ctx, time.Second)
				_ = lc.WriteMessage(wctx, protocol.EncodeQuit())
				wcancel()
			}
			_ = lc.Close()
			s.log.Info("player turned away", zap.String("conn", lc.Label()), zap.Error(err))
			continue
		}
		s.log.Info("player connected", zap.String("conn", lc.Label()),
			zap.Int("seat", ack.Seat), zap.Int("waiting", ack.Waiting))
	}
}
