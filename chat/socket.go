package chat

import (
	"context"

	"github.com/gorilla/websocket"
)

// TwitchIRCURL is the production chat endpoint.
const TwitchIRCURL = "wss://irc-ws.chat.twitch.tv:443"

// DialWebsocket returns a Dialer for a websocket chat endpoint.
func DialWebsocket(url string) Dialer {
	return func(ctx context.Context) (Socket, error) {
		conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
		if resp != nil && resp.Body != nil {
			_ = resp.Body.Close()
		}
		if err != nil {
			return nil, err
		}
		return &wsSocket{conn: conn}, nil
	}
}

type wsSocket struct{ conn *websocket.Conn }

func (s *wsSocket) ReadMessage() (string, error) {
	_, data, err := s.conn.ReadMessage()
	return string(data), err
}

func (s *wsSocket) WriteMessage(msg string) error {
	return s.conn.WriteMessage(websocket.TextMessage, []byte(msg))
}

func (s *wsSocket) Close() error { return s.conn.Close() }
