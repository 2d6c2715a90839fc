package api

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/potureddigowtham/Collab-rooms/internal/db"
	"github.com/potureddigowtham/Collab-rooms/internal/ws"
)

type API struct {
	registry     *ws.Registry
	database     *db.Database
	roomSecret   string
	autoLockDays int
	log          zerolog.Logger
}

func New(registry *ws.Registry, database *db.Database, roomSecret string, autoLockDays int, log zerolog.Logger) *API {
	return &API{
		registry:     registry,
		database:     database,
		roomSecret:   roomSecret,
		autoLockDays: autoLockDays,
		log:          log.With().Str("component", "api").Logger(),
	}
}

func (a *API) jsonResponse(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		a.log.Error().Err(err).Msg("encoding response failed")
	}
}

func (a *API) errorResponse(w http.ResponseWriter, status int, message string) {
	a.jsonResponse(w, status, map[string]string{"error": message})
}

func (a *API) HealthHandler(w http.ResponseWriter, r *http.Request) {
	a.jsonResponse(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *API) StatsHandler(w http.ResponseWriter, r *http.Request) {
	stats := map[string]interface{}{
		"active_rooms":   a.registry.RoomCount(),
		"active_clients": a.registry.ClientCount(),
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
	}

	dbStats, err := a.database.GetStats()
	if err == nil {
		stats["total_rooms"] = dbStats["room_count"]
		stats["locked_rooms"] = dbStats["locked_count"]
	}

	a.jsonResponse(w, http.StatusOK, stats)
}

// Room handlers

type RoomSummary struct {
	Name      string    `json:"room_name"`
	CreatedAt time.Time `json:"created_at"`
	Locked    bool      `json:"locked"`
}

// CreateRoomHandler handles POST /create_room?room_name=.
func (a *API) CreateRoomHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		a.errorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	roomName := r.URL.Query().Get("room_name")
	if roomName == "" {
		a.errorResponse(w, http.StatusBadRequest, "room_name is required")
		return
	}

	if err := a.database.CreateRoom(roomName); err != nil {
		if errors.Is(err, db.ErrRoomExists) {
			a.errorResponse(w, http.StatusBadRequest, "Room already exists")
			return
		}
		a.errorResponse(w, http.StatusInternalServerError, "Failed to create room")
		return
	}

	a.jsonResponse(w, http.StatusOK, map[string]string{
		"message":   "Room created",
		"room_name": roomName,
	})
}

// ListRoomsHandler handles GET /rooms. With auto_lock=true it first locks
// rooms older than the threshold (days overrides the configured default).
func (a *API) ListRoomsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		a.errorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	if r.URL.Query().Get("auto_lock") == "true" {
		days := a.autoLockDays
		if d, err := strconv.Atoi(r.URL.Query().Get("days")); err == nil && d > 0 {
			days = d
		}
		if _, err := a.database.LockRoomsOlderThan(days); err != nil {
			a.log.Error().Err(err).Msg("auto-lock sweep failed")
		}
	}

	rooms, err := a.database.ListRooms()
	if err != nil {
		a.errorResponse(w, http.StatusInternalServerError, "Failed to list rooms")
		return
	}

	response := make([]RoomSummary, len(rooms))
	for i, room := range rooms {
		response[i] = RoomSummary{
			Name:      room.Name,
			CreatedAt: room.CreatedAt,
			Locked:    room.Locked,
		}
	}

	a.jsonResponse(w, http.StatusOK, map[string]interface{}{"rooms": response})
}

// DeleteRoomHandler handles DELETE /delete_room/{room_name}. Members
// still joined get their streams closed via the registry eviction.
func (a *API) DeleteRoomHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		a.errorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	roomName := strings.Trim(strings.TrimPrefix(r.URL.Path, "/delete_room/"), "/")
	if roomName == "" {
		a.errorResponse(w, http.StatusBadRequest, "room_name is required")
		return
	}

	if err := a.database.DeleteRoom(roomName); err != nil {
		if errors.Is(err, db.ErrRoomNotFound) {
			a.errorResponse(w, http.StatusNotFound, "Room not found")
			return
		}
		a.errorResponse(w, http.StatusInternalServerError, "Failed to delete room")
		return
	}

	// Deleting a room closes the streams of anyone still joined.
	a.registry.EvictRoom(roomName)

	a.jsonResponse(w, http.StatusOK, map[string]string{"message": "Room deleted"})
}

// DetailsHandler handles GET /ws/details?room_name=.
func (a *API) DetailsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		a.errorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	roomName := r.URL.Query().Get("room_name")
	if roomName == "" {
		a.errorResponse(w, http.StatusBadRequest, "room_name is required")
		return
	}

	room, err := a.database.GetRoom(roomName)
	if err != nil {
		a.errorResponse(w, http.StatusInternalServerError, "Failed to get room")
		return
	}
	if room == nil {
		a.errorResponse(w, http.StatusNotFound, "Room not found")
		return
	}

	a.jsonResponse(w, http.StatusOK, map[string]interface{}{
		"room":               room,
		"active_connections": a.registry.CountInRoom(roomName),
	})
}

// Per-room content / lock / password

type updateContentRequest struct {
	Content string `json:"content"`
}

type updateLockRequest struct {
	Locked bool `json:"locked"`
}

type validatePasswordRequest struct {
	Password string `json:"password"`
}

func (a *API) getContentHandler(w http.ResponseWriter, r *http.Request, roomName string) {
	content, err := a.database.GetRoomContent(roomName)
	if err != nil {
		if errors.Is(err, db.ErrRoomNotFound) {
			a.errorResponse(w, http.StatusNotFound, "Room not found")
			return
		}
		a.errorResponse(w, http.StatusInternalServerError, "Failed to get content")
		return
	}

	a.jsonResponse(w, http.StatusOK, map[string]string{
		"room_name": roomName,
		"content":   content,
	})
}

func (a *API) setContentHandler(w http.ResponseWriter, r *http.Request, roomName string) {
	var req updateContentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := a.database.UpdateRoomContent(roomName, req.Content); err != nil {
		if errors.Is(err, db.ErrRoomNotFound) {
			a.errorResponse(w, http.StatusNotFound, "Room not found")
			return
		}
		a.errorResponse(w, http.StatusInternalServerError, "Failed to update content")
		return
	}

	a.jsonResponse(w, http.StatusOK, map[string]string{"message": "Content updated"})
}

func (a *API) getLockHandler(w http.ResponseWriter, r *http.Request, roomName string) {
	locked, err := a.database.GetRoomLock(roomName)
	if err != nil {
		if errors.Is(err, db.ErrRoomNotFound) {
			a.errorResponse(w, http.StatusNotFound, "Room not found")
			return
		}
		a.errorResponse(w, http.StatusInternalServerError, "Failed to get lock")
		return
	}

	a.jsonResponse(w, http.StatusOK, map[string]interface{}{
		"room_name": roomName,
		"locked":    locked,
	})
}

func (a *API) setLockHandler(w http.ResponseWriter, r *http.Request, roomName string) {
	var req updateLockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := a.database.SetRoomLock(roomName, req.Locked); err != nil {
		if errors.Is(err, db.ErrRoomNotFound) {
			a.errorResponse(w, http.StatusNotFound, "Room not found")
			return
		}
		a.errorResponse(w, http.StatusInternalServerError, "Failed to update lock")
		return
	}

	a.jsonResponse(w, http.StatusOK, map[string]interface{}{
		"message": "Lock updated",
		"locked":  req.Locked,
	})
}

// validatePasswordHandler accepts when the room is unlocked or the
// candidate equals the shared secret.
func (a *API) validatePasswordHandler(w http.ResponseWriter, r *http.Request, roomName string) {
	if r.Method != http.MethodPost {
		a.errorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req validatePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	locked, err := a.database.GetRoomLock(roomName)
	if err != nil {
		if errors.Is(err, db.ErrRoomNotFound) {
			a.errorResponse(w, http.StatusNotFound, "Room not found")
			return
		}
		a.errorResponse(w, http.StatusInternalServerError, "Failed to get lock")
		return
	}

	if !locked || a.secretMatches(req.Password) {
		a.jsonResponse(w, http.StatusOK, map[string]interface{}{"valid": true})
		return
	}

	a.jsonResponse(w, http.StatusOK, map[string]interface{}{
		"valid":   false,
		"message": "Invalid password",
	})
}

func (a *API) secretMatches(candidate string) bool {
	return subtle.ConstantTimeCompare([]byte(candidate), []byte(a.roomSecret)) == 1
}

// RoomRouter dispatches /room/{room_name}/(content|lock|validate-password).
func (a *API) RoomRouter(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/room/"), "/")
	parts := strings.SplitN(path, "/", 2)
	if len(parts) != 2 || parts[0] == "" {
		a.errorResponse(w, http.StatusNotFound, "Not found")
		return
	}
	roomName, action := parts[0], parts[1]

	switch action {
	case "content":
		switch r.Method {
		case http.MethodGet:
			a.getContentHandler(w, r, roomName)
		case http.MethodPut:
			a.setContentHandler(w, r, roomName)
		default:
			a.errorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	case "lock":
		switch r.Method {
		case http.MethodGet:
			a.getLockHandler(w, r, roomName)
		case http.MethodPut:
			a.setLockHandler(w, r, roomName)
		default:
			a.errorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	case "validate-password":
		a.validatePasswordHandler(w, r, roomName)
	default:
		a.errorResponse(w, http.StatusNotFound, "Not found")
	}
}

// Admin content handlers. Create and update take query parameters, the
// shape the admin panel has always sent.

func (a *API) createAdminContentHandler(w http.ResponseWriter, r *http.Request) {
	title := r.URL.Query().Get("title")
	content := r.URL.Query().Get("content")
	if title == "" || content == "" {
		a.errorResponse(w, http.StatusBadRequest, "title and content are required")
		return
	}

	created, err := a.database.CreateAdminContent(title, content)
	if err != nil || created == nil {
		a.errorResponse(w, http.StatusBadRequest, "Failed to create content")
		return
	}

	a.jsonResponse(w, http.StatusOK, map[string]interface{}{
		"message": "Content created",
		"title":   created.Title,
		"id":      created.ID,
	})
}

func (a *API) getAdminContentHandler(w http.ResponseWriter, r *http.Request) {
	idParam := r.URL.Query().Get("content_id")
	if idParam == "" {
		contents, err := a.database.ListAdminContent()
		if err != nil {
			a.errorResponse(w, http.StatusInternalServerError, "Failed to list content")
			return
		}
		if contents == nil {
			contents = []db.AdminContent{}
		}
		a.jsonResponse(w, http.StatusOK, map[string]interface{}{"content": contents})
		return
	}

	id, err := strconv.Atoi(idParam)
	if err != nil {
		a.errorResponse(w, http.StatusBadRequest, "Invalid content_id")
		return
	}

	content, err := a.database.GetAdminContent(id)
	if err != nil {
		a.errorResponse(w, http.StatusInternalServerError, "Failed to get content")
		return
	}
	if content == nil {
		a.errorResponse(w, http.StatusNotFound, "Content not found")
		return
	}

	a.jsonResponse(w, http.StatusOK, map[string]interface{}{"content": content})
}

func (a *API) updateAdminContentHandler(w http.ResponseWriter, r *http.Request, id int) {
	title := r.URL.Query().Get("title")
	content := r.URL.Query().Get("content")
	if title == "" || content == "" {
		a.errorResponse(w, http.StatusBadRequest, "title and content are required")
		return
	}

	updated, err := a.database.UpdateAdminContent(id, title, content)
	if err != nil {
		a.errorResponse(w, http.StatusInternalServerError, "Failed to update content")
		return
	}
	if !updated {
		a.errorResponse(w, http.StatusNotFound, "Content not found")
		return
	}

	a.jsonResponse(w, http.StatusOK, map[string]interface{}{
		"message": "Content updated",
		"id":      id,
	})
}

func (a *API) deleteAdminContentHandler(w http.ResponseWriter, r *http.Request, id int) {
	deleted, err := a.database.DeleteAdminContent(id)
	if err != nil {
		a.errorResponse(w, http.StatusInternalServerError, "Failed to delete content")
		return
	}
	if !deleted {
		a.errorResponse(w, http.StatusNotFound, "Content not found")
		return
	}

	a.jsonResponse(w, http.StatusOK, map[string]string{"message": "Content deleted"})
}

// AdminContentRouter dispatches /admin/content and /admin/content/{id}.
func (a *API) AdminContentRouter(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/admin/content"), "/")

	if path == "" {
		switch r.Method {
		case http.MethodPost:
			a.createAdminContentHandler(w, r)
		case http.MethodGet:
			a.getAdminContentHandler(w, r)
		default:
			a.errorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
		return
	}

	id, err := strconv.Atoi(path)
	if err != nil {
		a.errorResponse(w, http.StatusBadRequest, "Invalid content id")
		return
	}

	switch r.Method {
	case http.MethodPut:
		a.updateAdminContentHandler(w, r, id)
	case http.MethodDelete:
		a.deleteAdminContentHandler(w, r, id)
	default:
		a.errorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// Interview notes: per-room private notes behind the shared secret.

type saveNotesRequest struct {
	Notes    string `json:"notes"`
	Password string `json:"password"`
}

func (a *API) NotesRouter(w http.ResponseWriter, r *http.Request) {
	roomName := strings.Trim(strings.TrimPrefix(r.URL.Path, "/interview-notes/"), "/")
	if roomName == "" {
		a.errorResponse(w, http.StatusBadRequest, "room_name is required")
		return
	}

	switch r.Method {
	case http.MethodGet:
		notes, err := a.database.GetNotes(roomName)
		if err != nil {
			a.errorResponse(w, http.StatusInternalServerError, "Failed to get notes")
			return
		}
		a.jsonResponse(w, http.StatusOK, map[string]string{"notes": notes})

	case http.MethodPost:
		var req saveNotesRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			a.errorResponse(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if !a.secretMatches(req.Password) {
			a.errorResponse(w, http.StatusForbidden, "Invalid password")
			return
		}
		if err := a.database.SetNotes(roomName, req.Notes); err != nil {
			a.errorResponse(w, http.StatusInternalServerError, "Failed to save notes")
			return
		}
		a.jsonResponse(w, http.StatusOK, map[string]string{"message": "Notes saved"})

	default:
		a.errorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}
