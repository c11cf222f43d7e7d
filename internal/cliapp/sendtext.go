package cliapp

import (
	"context"
	"fmt"

	"dezap/internal/logging"
	"dezap/internal/service"
	"dezap/internal/uicontract"
)

// RunSendText connects to addr, sends text once connected, disconnects
// once the send is confirmed, and returns when the disconnect completes.
func RunSendText(ctx context.Context, cancel context.CancelFunc, svc *service.Service, addr string, password *string, text string, log logging.Logger) error {
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
				svc.Commands() <- uicontract.SendTextCommand{Text: text}
			case uicontract.MessageSentEvent:
				svc.Commands() <- uicontract.DisconnectCommand{}
			case uicontract.DisconnectedEvent:
				return nil
			case uicontract.ErrorEvent:
				return fmt.Errorf("send text: %s", e.Message)
			}
		}
	}
}
