package websocket

import (
	"github.com/gofiber/websocket/v2"
)

// ServeWs attaches a websocket to the hub under key and blocks until it
// closes.
func ServeWs(hub *Hub, c *websocket.Conn, key string) {
	client := &Client{Hub: hub, Conn: c, Key: key, Send: make(chan []byte, 256)}
	if !hub.join(client) {
		c.Close()
		return
	}

	go client.writePump()
	client.readPump()
}
