// internal/httpserver/routes_rooms.go
//
// Relay rooms for networked play.
//   - POST /rooms               → {passcode?} → {roomId, token} (host seat)
//   - GET  /rooms/{id}          → room info
//   - POST /rooms/{id}/join     → {passcode?} → {roomId, token} (client seat)
//   - GET  /rooms/{id}/ws?token → websocket; frames are relayed to the other seat
//
// The server never decodes relayed frames: both peers run their own session
// and agree through the message protocol.

package httpserver

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/shakiller/shiphexwar/internal/lobby"
	"github.com/shakiller/shiphexwar/internal/transport"
)

func (s *Server) mountRooms(r chi.Router) {
	r.Post("/rooms", s.handleCreateRoom)
	r.Get("/rooms/{id}", s.handleRoomInfo)
	r.Post("/rooms/{id}/join", s.handleJoinRoom)
}

type roomReq struct {
	Passcode string `json:"passcode"`
}

type roomRes struct {
	RoomID string `json:"roomId"`
	Token  string `json:"token"`
}

func (s *Server) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	var req roomReq
	if err := decode(r, &req); err != nil {
		http.Error(w, `{"error":"bad_json"}`, http.StatusBadRequest)
		return
	}
	room, token, err := s.rooms.Create(req.Passcode)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, roomRes{RoomID: room.ID, Token: token})
}

func (s *Server) handleRoomInfo(w http.ResponseWriter, r *http.Request) {
	room, ok := s.rooms.Get(chi.URLParam(r, "id"))
	if !ok {
		s.writeError(w, lobby.ErrRoomNotFound)
		return
	}
	writeJSON(w, http.StatusOK, room.Info())
}

func (s *Server) handleJoinRoom(w http.ResponseWriter, r *http.Request) {
	var req roomReq
	if err := decode(r, &req); err != nil {
		http.Error(w, `{"error":"bad_json"}`, http.StatusBadRequest)
		return
	}
	id := chi.URLParam(r, "id")
	token, err := s.rooms.Join(id, req.Passcode)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, roomRes{RoomID: id, Token: token})
}

func (s *Server) upgrader() *websocket.Upgrader {
	return &websocket.Upgrader{
		// Browsers send Origin; the peer CLI does not.
		CheckOrigin: func(r *http.Request) bool {
			o := r.Header.Get("Origin")
			return o == "" || o == s.cfg.ClientOrigin
		},
	}
}

func (s *Server) handleRoomSocket(w http.ResponseWriter, r *http.Request) {
	room, role, err := s.rooms.Verify(r.URL.Query().Get("token"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	if room.ID != chi.URLParam(r, "id") {
		s.writeError(w, fmt.Errorf("token for room %s: %w", room.ID, lobby.ErrBadToken))
		return
	}
	conn, err := s.upgrader().Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}

	log := s.log.With().Str("room", room.ID).Str("role", string(role)).Logger()
	link := transport.New(conn, log)
	room.Attach(role, link)
	defer room.Detach(role, link)

	err = link.Frames(r.Context(), func(frame []byte) {
		if !room.Relay(role, frame) {
			log.Debug().Msg("peer absent, frame held")
		}
	})
	log.Info().Err(err).Msg("seat closed")
}
