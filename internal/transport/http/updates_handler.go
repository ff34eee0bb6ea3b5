package http

import (
	"log"
	"net/http"

	"chromamind-service/internal/app"
	"chromamind-service/internal/domain"
	"github.com/gorilla/websocket"
)

// UpdatesHandler pushes refreshed merged history over a websocket whenever
// the reconciler reports a change, so history views update live instead of
// polling while background sync drains the ledger.
type UpdatesHandler struct {
	reconciler *app.Reconciler
	upgrader   websocket.Upgrader
}

func NewUpdatesHandler(reconciler *app.Reconciler) *UpdatesHandler {
	return &UpdatesHandler{
		reconciler: reconciler,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type updateMessage struct {
	Type    string               `json:"type"`
	Payload domain.MergedHistory `json:"payload"`
}

// ServeWS upgrades the connection and streams merged-view snapshots: one on
// connect, then one per reconciler notification. All writes happen on this
// goroutine; the read pump only detects the peer going away.
func (h *UpdatesHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	updates, cancel := h.reconciler.Subscribe()
	defer cancel()

	peerGone := make(chan struct{})
	go func() {
		defer close(peerGone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	snapshot := h.reconciler.MergedView(r.Context())
	if err := conn.WriteJSON(updateMessage{Type: "submissionsUpdated", Payload: snapshot}); err != nil {
		return
	}

	for {
		select {
		case _, ok := <-updates:
			if !ok {
				return
			}
			history := h.reconciler.MergedView(r.Context())
			if err := conn.WriteJSON(updateMessage{Type: "submissionsUpdated", Payload: history}); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		case <-peerGone:
			return
		}
	}
}
