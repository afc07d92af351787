package console

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// Server is the TCP admin console. Every connection is a line-oriented
// session whose commands go through the same Console queue as stdin.
type Server struct {
	listener net.Listener
	console  *Console
	nextID   atomic.Uint64
	log      *zap.Logger
	wg       sync.WaitGroup
}

func NewServer(bindAddr string, c *Console, log *zap.Logger) (*Server, error) {
	ln, err := net.Listen("tcp", bindAddr)
	if err != nil {
		return nil, fmt.Errorf("console listen %s: %w", bindAddr, err)
	}
	return &Server{listener: ln, console: c, log: log}, nil
}

// Serve accepts sessions until ctx is cancelled, then closes every open
// session and waits for them.
func (s *Server) Serve(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { s.listener.Close() })
	defer stop()
	defer s.wg.Wait()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.log.Error("console accept failed", zap.Error(err))
			continue
		}
		id := s.nextID.Add(1)
		s.wg.Add(1)
		go s.session(ctx, id, conn)
	}
}

func (s *Server) session(ctx context.Context, id uint64, conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	source := fmt.Sprintf("tcp#%d", id)
	log := s.log.With(zap.Uint64("session", id), zap.String("ip", conn.RemoteAddr().String()))
	log.Info("console session opened")
	if err := s.console.ServeReader(ctx, source, conn, conn); err != nil {
		log.Debug("console session error", zap.Error(err))
	}
	log.Info("console session closed")
}

func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}
