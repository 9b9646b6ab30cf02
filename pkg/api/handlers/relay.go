package handlers

import (
	"net/http"

	"github.com/cbodonnell/vibemod/pkg/network"
)

func HandleListRooms(rooms *network.RoomManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, rooms.Rooms())
	}
}

func HandleGetRoom(rooms *network.RoomManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomID, err := network.RoomVar(r)
		if err != nil {
			http.Error(w, "Invalid room", http.StatusBadRequest)
			return
		}
		info, ok := rooms.Room(roomID)
		if !ok {
			http.Error(w, "Room not found", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, info)
	}
}
