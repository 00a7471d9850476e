package runtime

import (
	"context"

	"go.uber.org/zap"

	"github.com/wippyai/prolog-runtime/engine"
)

// session owns one engine startup. Creating it is the startup call and
// close is the matching cleanup call.
type session struct {
	eng    engine.Engine
	argv   []string
	closed bool
}

// start initialises eng with argv. A refused startup is cleaned up before
// returning so the engine never stays half started.
func start(ctx context.Context, eng engine.Engine, argv []string) (*session, error) {
	s := &session{eng: eng, argv: argv}
	if err := eng.Initialise(ctx, argv); err != nil {
		s.close(ctx)
		return nil, err
	}
	return s, nil
}

// close cleans the engine up once. Errors are logged and dropped.
func (s *session) close(ctx context.Context) {
	if s == nil || s.closed {
		return
	}
	s.closed = true
	if err := s.eng.Cleanup(ctx); err != nil {
		engine.Logger().Warn("engine cleanup failed", zap.Error(err), zap.Strings("argv", s.argv))
	}
}
