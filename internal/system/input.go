package system

import (
	"context"
	"time"

	"github.com/gitbgo/server/internal/console"
	coresys "github.com/gitbgo/server/internal/core/system"
	"go.uber.org/zap"
)

// commandTimeout bounds a single console command, including any store
// query it makes.
const commandTimeout = 5 * time.Second

// Executor runs one console line. command.Dispatcher implements it.
type Executor interface {
	Execute(ctx context.Context, line string) (string, error)
}

// InputSystem drains queued console requests and executes them on the game
// loop. Phase 0 (Input).
type InputSystem struct {
	ctx        context.Context
	requests   <-chan console.Request
	exec       Executor
	maxPerTick int
	log        *zap.Logger
}

func NewInputSystem(ctx context.Context, requests <-chan console.Request, exec Executor, maxPerTick int, log *zap.Logger) *InputSystem {
	if maxPerTick <= 0 {
		maxPerTick = 16
	}
	return &InputSystem{
		ctx:        ctx,
		requests:   requests,
		exec:       exec,
		maxPerTick: maxPerTick,
		log:        log,
	}
}

func (s *InputSystem) Phase() coresys.Phase { return coresys.PhaseInput }

func (s *InputSystem) Update(_ time.Duration) {
	for range s.maxPerTick {
		select {
		case req := <-s.requests:
			s.run(req)
		default:
			return
		}
	}
}

func (s *InputSystem) run(req console.Request) {
	ctx, cancel := context.WithTimeout(s.ctx, commandTimeout)
	defer cancel()
	reply, err := s.exec.Execute(ctx, req.Line)
	if err != nil {
		s.log.Info("console command rejected", zap.String("source", req.Source), zap.String("line", req.Line), zap.Error(err))
	} else {
		s.log.Debug("console command", zap.String("source", req.Source), zap.String("line", req.Line))
	}
	req.Reply(reply, err)
}
