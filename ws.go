package main

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"taskman/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// wsHub fans task mutation events out to every connected client. Delivery
// is best-effort: a failed write drops the connection and nothing is
// replayed on reconnect.
type wsHub struct {
	mu    sync.Mutex
	conns map[*websocket.Conn]bool
}

var hub = newWSHub()

func newWSHub() *wsHub {
	return &wsHub{conns: make(map[*websocket.Conn]bool)}
}

type wsMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func (h *wsHub) add(conn *websocket.Conn) {
	h.mu.Lock()
	h.conns[conn] = true
	h.mu.Unlock()
}

func (h *wsHub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.conns, conn)
	h.mu.Unlock()
}

// Broadcast sends {"event": ..., "data": ...} to all connections, dropping
// any that fail to take the write.
func (h *wsHub) Broadcast(event string, data interface{}) {
	message, err := json.Marshal(map[string]interface{}{"event": event, "data": data})
	if err != nil {
		log.Printf("failed to marshal %s broadcast: %v", event, err)
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.conns {
		if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
			log.Printf("failed to send websocket message: %v", err)
			delete(h.conns, conn)
			conn.Close()
		}
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Adjust for production (e.g., check specific origins)
	},
}

// wsHandler upgrades the connection, registers it with the hub and serves
// the mirror events clients may emit instead of calling the REST routes.
func wsHandler(c *gin.Context) {
	userID := c.GetString("userID")
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("websocket upgrade failed: %v", err)
		return
	}
	hub.add(conn)
	defer func() {
		hub.remove(conn)
		conn.Close()
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var msg wsMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			log.Printf("ignoring malformed websocket message: %v", err)
			continue
		}
		switch msg.Event {
		case "createTask":
			// Re-broadcast as-is; persistence happens on the REST path.
			hub.Broadcast("taskCreated", msg.Data)
		case "updateTask":
			handleWSTaskUpdate(userID, msg.Data)
		case "deleteTask":
			hub.Broadcast("taskDeleted", msg.Data)
		}
	}
}

// handleWSTaskUpdate persists a task edit received over the socket and
// broadcasts the updated record. Only the owner's tasks are reachable.
func handleWSTaskUpdate(userID string, data json.RawMessage) {
	var patch struct {
		ID     string `json:"id"`
		Title  string `json:"title"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal(data, &patch); err != nil || patch.ID == "" {
		log.Printf("ignoring malformed updateTask event: %v", err)
		return
	}
	var task models.Task
	if err := db.Where("id = ? AND user_id = ?", patch.ID, userID).First(&task).Error; err != nil {
		log.Printf("updateTask event for unknown task %s", patch.ID)
		return
	}
	if patch.Title != "" {
		task.Title = patch.Title
	}
	if patch.Status != "" && models.ValidStatus(patch.Status) {
		task.Status = patch.Status
	}
	if err := db.Save(&task).Error; err != nil {
		log.Printf("failed to persist updateTask event: %v", err)
		return
	}
	hub.Broadcast("taskUpdated", gin.H{"task": task, "userId": userID})
}
