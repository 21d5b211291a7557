package main

import (
	"context"  // Shutdown deadline
	"errors"   // Server close detection
	"net"      // Listener
	"net/http" // HTTP server
	"os"       // Signals
	"time"     // Grace period

	"github.com/sirupsen/logrus" // Logging library
)

// serve runs server on ln until a signal arrives on stop, then shuts it down
// and returns only after in-flight requests have finished or grace ran out.
func serve(server *http.Server, ln net.Listener, stop <-chan os.Signal, grace time.Duration) error {
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.Serve(ln)
	}()

	select {
	case err := <-serveErr:
		return err // Listener failed before any signal
	case sig := <-stop:
		logrus.WithField("signal", sig.String()).Info("Shutting down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	shutdownErr := server.Shutdown(ctx) // Blocks until handlers return

	if err := <-serveErr; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return shutdownErr
}
