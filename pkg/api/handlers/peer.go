package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/cbodonnell/vibemod/pkg/game/types"
	"github.com/cbodonnell/vibemod/pkg/log"
	"github.com/cbodonnell/vibemod/pkg/queue"
	"github.com/cbodonnell/vibemod/pkg/repositories"
	"github.com/cbodonnell/vibemod/pkg/state"
	"github.com/gorilla/mux"
)

const maxListLimit = 100

func HandleGetState(stateManager state.StateManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view, err := stateManager.Get(r.Context())
		if err != nil {
			log.Error("failed to get state: %v", err)
			http.Error(w, "Failed to get state", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

// HandleListResults lists the saved results of the room, newest first.
func HandleListResults(repository repositories.Repository, room string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repository == nil {
			http.Error(w, "Results are not persisted", http.StatusServiceUnavailable)
			return
		}

		limit := repositories.DefaultListLimit
		if v := r.URL.Query().Get("limit"); v != "" {
			parsed, err := strconv.Atoi(v)
			if err != nil || parsed < 1 || parsed > maxListLimit {
				http.Error(w, "Limit must be between 1 and 100", http.StatusBadRequest)
				return
			}
			limit = parsed
		}

		results, err := repository.ListRoundResults(r.Context(), room, limit)
		if err != nil {
			log.Error("failed to list round results: %v", err)
			http.Error(w, "Failed to list round results", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, results)
	}
}

func HandleGetResult(repository repositories.Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repository == nil {
			http.Error(w, "Results are not persisted", http.StatusServiceUnavailable)
			return
		}

		result, err := repository.GetRoundResult(r.Context(), mux.Vars(r)["id"])
		if err != nil {
			if repositories.IsNotFound(err) {
				http.Error(w, "Result not found", http.StatusNotFound)
				return
			}
			log.Error("failed to get round result: %v", err)
			http.Error(w, "Failed to get round result", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

// HandleCommand queues the command built from the request for the
// coordinator. Commands the local peer may not apply are ignored there.
func HandleCommand(inboundQueue queue.Queue, build func(r *http.Request) (interface{}, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cmd, err := build(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		if err := inboundQueue.Enqueue(cmd); err != nil {
			if errors.Is(err, queue.ErrQueueFull) {
				http.Error(w, "Coordinator is busy", http.StatusServiceUnavailable)
				return
			}
			log.Error("failed to enqueue command: %v", err)
			http.Error(w, "Failed to enqueue command", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}
}

func SetGameModeCommand(r *http.Request) (interface{}, error) {
	mode, err := types.ParseGameMode(mux.Vars(r)["mode"])
	if err != nil {
		return nil, err
	}
	return &types.SetGameModeCommand{Mode: mode}, nil
}

func ReportFoundCommand(r *http.Request) (interface{}, error) {
	participantID := mux.Vars(r)["participant"]
	if participantID == "" {
		return nil, errors.New("missing participant")
	}
	return &types.ReportFoundCommand{ParticipantID: participantID}, nil
}

func ReportInfectedCommand(r *http.Request) (interface{}, error) {
	participantID := mux.Vars(r)["participant"]
	if participantID == "" {
		return nil, errors.New("missing participant")
	}
	return &types.ReportInfectedCommand{ParticipantID: participantID}, nil
}

// StaticCommand builds the same command for every request.
func StaticCommand(cmd interface{}) func(r *http.Request) (interface{}, error) {
	return func(r *http.Request) (interface{}, error) {
		return cmd, nil
	}
}
