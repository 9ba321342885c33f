package main

import (
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"websocket-core/internal/domain"
	"websocket-core/internal/infrastructure"
	"websocket-core/pkg/protocol"
)

// serveConn upgrades r to a WebSocket connection and echoes back every
// text or binary message it receives until the peer closes the
// connection or a protocol error occurs. Ping frames are answered with a
// matching Pong; Close frames are echoed once and the connection is torn
// down per RFC 6455 Section 5.5.1.
//
// The handshake response is written directly to the hijacked connection,
// not through the http.ResponseWriter: net/http's own framing for the
// response body would otherwise get in the way of the raw frame stream
// that follows.
func serveConn(l zerolog.Logger, w http.ResponseWriter, r *http.Request) {
	validator := infrastructure.NewHandshakeValidator()
	if err := validator.ValidateRequest(r); err != nil {
		l.Warn().Err(err).Msg("rejected handshake")
		http.Error(w, "Bad Request: "+err.Error(), http.StatusBadRequest)
		return
	}

	conn, bufrw, err := http.NewResponseController(w).Hijack()
	if err != nil {
		l.Error().Err(err).Msg("failed to hijack connection")
		return
	}
	defer conn.Close()

	acceptKey := validator.GenerateAcceptKey(r.Header.Get(protocol.HeaderSecWebSocketKey))
	if err := writeUpgradeResponse(bufrw, acceptKey); err != nil {
		l.Error().Err(err).Msg("failed to write handshake response")
		return
	}

	l = l.With().Str("remote_addr", conn.RemoteAddr().String()).Logger()
	l.Info().Msg("connection upgraded")

	// A server must reject any client frame that is not masked, and never
	// masks its own outgoing frames.
	receiver := infrastructure.NewReceiver(true)
	sender := infrastructure.NewSender(false)

	if err := echoLoop(l, conn, bufrw, receiver, sender); err != nil {
		l.Info().Err(err).Msg("connection closed")
	}
}

func echoLoop(l zerolog.Logger, conn net.Conn, bufrw readWriteFlusher, receiver *infrastructure.Receiver, sender *infrastructure.Sender) error {
	for {
		_ = conn.SetReadDeadline(time.Now().Add(idleTimeout))

		msg, err := receiver.RecvMessage(bufrw)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			sendProtocolError(l, bufrw, sender, err)
			return err
		}

		switch {
		case msg.IsPing():
			l.Debug().Msg("replying to ping")
			if err := sendFlush(bufrw, sender, msg.ToPong()); err != nil {
				return err
			}
		case msg.IsPong():
			l.Debug().Msg("received unsolicited pong")
		case msg.IsClose():
			l.Debug().Msg("peer requested close")
			_ = sendFlush(bufrw, sender, msg)
			return nil
		default:
			if err := sendFlush(bufrw, sender, msg); err != nil {
				return err
			}
		}
	}
}

// sendProtocolError answers an unreadable or invalid stream with a Close
// frame carrying the protocol error status code, matching RFC 6455
// Section 7.1.5's guidance to report the offending condition before
// dropping the connection.
func sendProtocolError(l zerolog.Logger, bufrw readWriteFlusher, sender *infrastructure.Sender, cause error) {
	l.Warn().Err(cause).Msg("protocol violation, closing connection")
	closeMsg := domain.NewCloseMessageWithCode(1002, cause.Error())
	_ = sendFlush(bufrw, sender, closeMsg)
}

// writeUpgradeResponse writes the HTTP/1.1 101 Switching Protocols
// response directly to the hijacked connection's buffered writer.
func writeUpgradeResponse(bufrw readWriteFlusher, acceptKey string) error {
	header := http.Header{
		protocol.HeaderUpgrade:            []string{protocol.HeaderValueWebSocket},
		protocol.HeaderConnection:         []string{protocol.HeaderValueUpgrade},
		protocol.HeaderSecWebSocketAccept: []string{acceptKey},
	}

	if _, err := io.WriteString(bufrw, "HTTP/1.1 101 Switching Protocols\r\n"); err != nil {
		return err
	}
	if err := header.Write(bufrw); err != nil {
		return err
	}
	if _, err := io.WriteString(bufrw, "\r\n"); err != nil {
		return err
	}
	return bufrw.Flush()
}

func sendFlush(bufrw readWriteFlusher, sender *infrastructure.Sender, msg *domain.Message) error {
	if err := sender.SendMessage(bufrw, msg); err != nil {
		return err
	}
	return bufrw.Flush()
}

// readWriteFlusher is the subset of *bufio.ReadWriter that the echo loop
// depends on, satisfied by the buffer net/http's Hijack returns.
type readWriteFlusher interface {
	io.Reader
	io.Writer
	Flush() error
}
