package utils //nolint:revive // var-naming: utils is an acceptable package name for shared utilities

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/lewisedginton/ward_desk/pkg/logger"
)

// Serve runs srv in the background. The channel carries any error other than
// http.ErrServerClosed and closes when the server stops.
func Serve(srv *http.Server) <-chan error {
	errChan := make(chan error, 1)
	go func() {
		defer close(errChan)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()
	return errChan
}

// WaitForShutdown blocks until ctx is cancelled, SIGINT/SIGTERM arrives, or
// errs yields. It returns the error that ended the wait, nil for signals and
// cancellation.
func WaitForShutdown(ctx context.Context, log logger.Logger, errs <-chan error) error {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sig)

	select {
	case <-ctx.Done():
		log.Info("Context cancelled, shutting down")
		return nil
	case s := <-sig:
		log.Info("Received signal, shutting down", logger.StringField("signal", s.String()))
		return nil
	case err, ok := <-errs:
		if !ok {
			return nil
		}
		log.Error("Listener failed", logger.ErrorField(err))
		return err
	}
}
