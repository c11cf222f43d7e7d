package connio

import (
	"context"
	"errors"

	"github.com/quic-go/quic-go"
	"golang.org/x/sync/errgroup"

	"dezap/internal/logging"
	"dezap/internal/wire"
)

// Handler reacts to frames dispatched off a connection's streams. Stream
// is the underlying receive stream, handed to FileMeta handling so the
// subsequent FileChunk frames can be read off the same stream.
type Handler interface {
	HandleText(h *Handle, text wire.Text)
	HandleCiphertext(h *Handle, ct wire.Ciphertext)
	HandleFileMeta(h *Handle, stream quic.ReceiveStream, meta wire.FileMeta)
	HandleControl(h *Handle, ctrl wire.Control)
	ConnectionClosed(h *Handle)
}

// Run loops over h's connection accepting unidirectional and
// bidirectional streams until the connection closes, dispatching each
// stream's leading frame to handler. It blocks until both accept loops
// return or ctx is canceled.
func Run(ctx context.Context, h *Handle, handler Handler, log logging.Logger) {
	defer handler.ConnectionClosed(h)

	errGroup, egCtx := errgroup.WithContext(ctx)

	// peer -> us, unidirectional streams (text, ciphertext, control, file)
	errGroup.Go(func() error {
		for {
			stream, err := h.Conn.AcceptUniStream(egCtx)
			if err != nil {
				return err
			}
			go dispatchStream(h, stream, handler, log)
		}
	})

	// peer -> us, bidirectional streams (reserved for future request/response use)
	errGroup.Go(func() error {
		for {
			stream, err := h.Conn.AcceptStream(egCtx)
			if err != nil {
				return err
			}
			go dispatchStream(h, stream, handler, log)
		}
	})

	_ = errGroup.Wait()
}

// dispatchStream reads exactly one leading frame from stream and routes it
// by kind. FileMeta handling takes ownership of stream to keep reading the
// chunk tail; every other kind's stream is done after the leading frame.
func dispatchStream(h *Handle, stream quic.ReceiveStream, handler Handler, log logging.Logger) {
	msg, err := wire.ReadFrame(stream)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			log.Printf("connio: failed to read leading frame from %s: %v", h.Addr, err)
		}
		return
	}
	if msg == nil {
		return
	}

	switch msg.Tag {
	case wire.TagText:
		handler.HandleText(h, *msg.Text)
	case wire.TagCiphertext:
		handler.HandleCiphertext(h, *msg.Ciphertext)
	case wire.TagFileMeta:
		handler.HandleFileMeta(h, stream, *msg.FileMeta)
	case wire.TagControl:
		handler.HandleControl(h, *msg.Control)
	default:
		log.Printf("connio: dropping unknown leading frame tag from %s", h.Addr)
	}
}
