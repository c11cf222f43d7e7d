package cliapp

import (
	"context"
	"fmt"

	"dezap/internal/logging"
	"dezap/internal/service"
	"dezap/internal/uicontract"
)

// RunSendFile connects to addr, offers path once connected, disconnects
// once the outgoing transfer completes, and returns when the disconnect
// completes.
func RunSendFile(ctx context.Context, cancel context.CancelFunc, svc *service.Service, addr string, password *string, path string, log logging.Logger) error {
	defer cancel()

	svc.Commands() <- uicontract.ConnectCommand{Addr: addr, Password: password}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-svc.Events():
			logEvent(log, ev)
			switch e := ev.(type) {
			case uicontract.ConnectedEvent:
				svc.Commands() <- uicontract.SendFileCommand{Path: path}
			case uicontract.FileTransferEvent:
				if e.Completed && e.Direction == uicontract.DirectionOutgoing {
					svc.Commands() <- uicontract.DisconnectCommand{}
				}
			case uicontract.DisconnectedEvent:
				return nil
			case uicontract.ErrorEvent:
				return fmt.Errorf("send file: %s", e.Message)
			}
		}
	}
}
