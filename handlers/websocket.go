package handlers

import (
	"log"
	"net/http"
	"sync"
	"time"

	"patio/auth"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const socketWriteTimeout = 10 * time.Second

var upgrader = websocket.Upgrader{
	// any origin, like the rest of the API
	CheckOrigin: func(r *http.Request) bool { return true },
}

// LibraryWatch upgrades to a websocket that gets a message every time the
// library changes. Anyone may watch a library that exists, the messages only
// carry its id.
func (api *API) LibraryWatch(c *gin.Context, id *auth.Identity) {
	l, _, err := api.loadLibrary(c, id)
	if err != nil {
		fail(c, err)
		return
	}
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Print("upgrade:", err)
		return
	}
	defer conn.Close()

	// Writes come from the read loop and from Notify in other requests
	var writeLock sync.Mutex
	write := func(mt int, data []byte) bool {
		writeLock.Lock()
		defer writeLock.Unlock()
		_ = conn.SetWriteDeadline(time.Now().Add(socketWriteTimeout))
		if err := conn.WriteMessage(mt, data); err != nil {
			log.Println("write err:", err)
			return false
		}
		return true
	}
	sub := api.Hub.Subscribe(l.ID, func(data []byte) bool {
		return write(websocket.TextMessage, data)
	})
	defer api.Hub.Unsubscribe(l.ID, sub)

	for {
		mt, message, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Println("read err:", err)
			}
			return
		}
		if string(message) == "ping" && !write(mt, []byte("pong")) {
			return
		}
	}
}
