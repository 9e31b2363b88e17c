// Package push fans out library change notifications to connected watchers.
// Delivery is in-process only and best effort: a watcher whose send fails is
// dropped.
package push

import (
	"encoding/json"
	"log"
	"time"

	cmap "github.com/orcaman/concurrent-map/v2"
)

const NotificationTypeLibrary = "library"

type Notification struct {
	Type    string `json:"type"`
	Library string `json:"library"`
	At      string `json:"at"`
}

// SendFunc returns true if data was successfully sent
type SendFunc func([]byte) bool

type Subscriber struct {
	send SendFunc
}

// Hub is needed as a library may be watched by many clients at once
type Hub struct {
	watchers cmap.ConcurrentMap[string, []*Subscriber]
}

func NewHub() *Hub {
	return &Hub{watchers: cmap.New[[]*Subscriber]()}
}

func (h *Hub) Subscribe(libraryID string, send SendFunc) *Subscriber {
	s := &Subscriber{send: send}
	h.watchers.Upsert(libraryID, []*Subscriber{s}, func(exist bool, valueInMap, newValue []*Subscriber) []*Subscriber {
		if exist {
			return append(valueInMap, s)
		}
		return newValue
	})
	return s
}

func (h *Hub) Unsubscribe(libraryID string, s *Subscriber) {
	h.watchers.Upsert(libraryID, nil, func(exist bool, valueInMap, newValue []*Subscriber) []*Subscriber {
		if !exist {
			return newValue
		}
		for _, o := range valueInMap {
			if o != s {
				newValue = append(newValue, o)
			}
		}
		return newValue
	})
	h.watchers.RemoveCb(libraryID, func(key string, v []*Subscriber, exists bool) bool {
		return exists && len(v) == 0
	})
}

func (h *Hub) Count(libraryID string) int {
	v, _ := h.watchers.Get(libraryID)
	return len(v)
}

// Notify tells every watcher of libraryID that it changed and returns how
// many received the message.
func (h *Hub) Notify(libraryID string, at time.Time) int {
	subs, ok := h.watchers.Get(libraryID)
	if !ok || len(subs) == 0 {
		return 0
	}
	data, err := json.Marshal(Notification{
		Type:    NotificationTypeLibrary,
		Library: libraryID,
		At:      at.UTC().Format(time.RFC3339),
	})
	if err != nil {
		log.Printf("push: cannot encode notification: %v", err)
		return 0
	}
	sent := 0
	for _, s := range subs {
		if s.send(data) {
			sent++
		} else {
			h.Unsubscribe(libraryID, s)
		}
	}
	return sent
}
