package cliapp

import (
	"context"
	"fmt"
	"os"

	"dezap/internal/logging"
	"dezap/internal/service"
	"dezap/internal/uicontract"
)

// RunListener starts svc listening on addr and logs events until sigCh
// fires, at which point it requests a graceful StopListening and waits
// for confirmation before canceling cancel and returning.
func RunListener(ctx context.Context, cancel context.CancelFunc, svc *service.Service, addr string, password *string, sigCh <-chan os.Signal, log logging.Logger) error {
	svc.Commands() <- uicontract.ListenCommand{Addr: addr, Password: password}

	stopRequested := false
	for {
		select {
		case <-sigCh:
			if !stopRequested {
				stopRequested = true
				log.Printf("interrupt received, stopping listener")
				svc.Commands() <- uicontract.StopListeningCommand{}
			}
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-svc.Events():
			logEvent(log, ev)
			if _, ok := ev.(uicontract.ListenerStoppedEvent); ok {
				cancel()
				return nil
			}
			if e, ok := ev.(uicontract.ErrorEvent); ok && !stopRequested {
				cancel()
				return fmt.Errorf("listener: %s", e.Message)
			}
		}
	}
}
