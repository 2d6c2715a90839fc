package ws

import (
	"github.com/rs/zerolog"

	"github.com/potureddigowtham/Collab-rooms/internal/protocol"
)

// ContentStore is the slice of the persistence store the router writes to.
type ContentStore interface {
	UpdateRoomContent(name, content string) error
}

// Router classifies each inbound frame and applies its side effect:
// content updates are persisted then relayed, selection events are relayed
// as-is with the sender's client id attached.
type Router struct {
	registry *Registry
	store    ContentStore
	log      zerolog.Logger
}

func NewRouter(registry *Registry, store ContentStore, log zerolog.Logger) *Router {
	return &Router{
		registry: registry,
		store:    store,
		log:      log.With().Str("component", "router").Logger(),
	}
}

// Route handles one inbound frame from sender.
func (rt *Router) Route(room string, sender Handle, raw []byte) {
	msg := protocol.Classify(raw)

	switch msg.Kind {
	case protocol.KindSelection:
		// Ephemeral presence data: relay to everyone else, never persist.
		id, ok := rt.registry.ClientID(room, sender)
		if !ok {
			return
		}
		rt.registry.Broadcast(room, protocol.SelectionRelay(msg.Fields, id), sender)

	case protocol.KindContent:
		// Persist before relaying so a client joining right after the
		// broadcast reads committed state, not a race.
		if err := rt.store.UpdateRoomContent(room, msg.Content); err != nil {
			rt.log.Error().Err(err).Str("room", room).Msg("content update not persisted, relay skipped")
			return
		}
		rt.registry.Broadcast(room, protocol.ContentNotice(msg.Content), sender)
	}
}

// UserCountNotice broadcasts the room's live member count to every member,
// sender included. The lifecycle handler calls this on join and leave.
func (rt *Router) UserCountNotice(room string) {
	count := rt.registry.CountInRoom(room)
	rt.registry.Broadcast(room, protocol.UsersNotice(count), nil)
}
