package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"meetingintel/internal/logging"
)

type httpServer struct {
	bind   string
	logger *slog.Logger

	listener net.Listener
	server   *http.Server
}

func newHTTPServer(bind string, handler http.Handler, logger *slog.Logger) *httpServer {
	return &httpServer{
		bind:   bind,
		logger: logging.NewComponentLogger(logger, "http-server"),
		server: &http.Server{
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Minute,
			WriteTimeout:      15 * time.Minute,
			IdleTimeout:       60 * time.Second,
		},
	}
}

func (s *httpServer) start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		s.shutdown()
	}()

	s.logger.Info("api server listening",
		logging.String(logging.FieldEventType, "api_listening"),
		logging.String("address", listener.Addr().String()),
	)
	return nil
}

func (s *httpServer) shutdown() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.server.Shutdown(shutdownCtx)
}

func (s *httpServer) stop() {
	s.shutdown()
	if s.listener != nil {
		_ = s.listener.Close()
	}
}

func (s *httpServer) addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}
