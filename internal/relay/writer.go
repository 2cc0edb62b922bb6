package relay

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
)

const (
	writeDeadline     = 5 * time.Second
	pingInterval      = 30 * time.Second
	pongDeadline      = 60 * time.Second
	messageBufferSize = 16
)

type subscriberWriter struct {
	connection  *websocket.Conn
	clock       clockwork.Clock
	sendChannel chan []byte
	doneChannel chan struct{}
	stopOnce    sync.Once
	wg          sync.WaitGroup
}

func newSubscriberWriter(connection *websocket.Conn, clock clockwork.Clock) *subscriberWriter {
	sw := &subscriberWriter{
		connection:  connection,
		clock:       clock,
		sendChannel: make(chan []byte, messageBufferSize),
		doneChannel: make(chan struct{}),
	}
	sw.configurePongHandler()
	sw.wg.Add(1)
	go sw.run()
	return sw
}

func (sw *subscriberWriter) run() {
	ticker := sw.clock.NewTicker(pingInterval)
	defer ticker.Stop()
	defer sw.wg.Done()

	for {
		select {
		case msg, ok := <-sw.sendChannel:
			if !ok {
				return
			}
			sw.updateWriteDeadline()
			if err := sw.connection.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.Chan():
			sw.updateWriteDeadline()
			if err := sw.connection.WriteMessage(websocket.PingMessage, nil); err != nil {
				// Ping failed, client likely disconnected
				return
			}
		case <-sw.doneChannel:
			return
		}
	}
}

func (sw *subscriberWriter) stop() {
	sw.stopOnce.Do(func() {
		close(sw.doneChannel)
		_ = sw.connection.Close()
	})
	sw.wg.Wait()
}

// stopGraceful sends a WebSocket close frame with reason before closing.
func (sw *subscriberWriter) stopGraceful(reason string) {
	sw.stopOnce.Do(func() {
		// Signal the run goroutine to exit first, then wait for it, so the
		// close frame is never written concurrently with a payload.
		close(sw.doneChannel)
		sw.wg.Wait()

		closeMsg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason)
		sw.updateWriteDeadline()
		_ = sw.connection.WriteMessage(websocket.CloseMessage, closeMsg)
		_ = sw.connection.Close()
	})
}

func (sw *subscriberWriter) configurePongHandler() {
	sw.updateReadDeadline()
	sw.connection.SetPongHandler(func(string) error {
		sw.updateReadDeadline()
		return nil
	})
}

func (sw *subscriberWriter) updateWriteDeadline() {
	deadline := sw.clock.Now().Add(writeDeadline)
	_ = sw.connection.SetWriteDeadline(deadline)
}

func (sw *subscriberWriter) updateReadDeadline() {
	deadline := sw.clock.Now().Add(pongDeadline)
	_ = sw.connection.SetReadDeadline(deadline)
}
