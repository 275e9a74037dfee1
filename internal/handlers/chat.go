package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/xisxus/ConnectApp/internal/middleware"
	"github.com/xisxus/ConnectApp/internal/models"
	"github.com/xisxus/ConnectApp/internal/ws"
)

// ChatHandler serves message history and group membership reads. History goes
// through the hub so the ascending-order contract is applied in one place.
type ChatHandler struct {
	Hub *ws.Hub
}

func historyLimit(r *http.Request) int {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	return limit
}

func (h *ChatHandler) GetPublicMessages(w http.ResponseWriter, r *http.Request) {
	username := middleware.Username(r)
	if username == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	messages, err := h.Hub.RecentBroadcast(historyLimit(r))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeMessages(w, messages)
}

func (h *ChatHandler) GetPrivateMessages(w http.ResponseWriter, r *http.Request) {
	username := middleware.Username(r)
	if username == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	peer := mux.Vars(r)["user"]

	messages, err := h.Hub.RecentPrivate(username, peer, historyLimit(r))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeMessages(w, messages)
}

func (h *ChatHandler) GetGroupMessages(w http.ResponseWriter, r *http.Request) {
	username := middleware.Username(r)
	if username == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	groupName := mux.Vars(r)["name"]

	messages, err := h.Hub.RecentGroup(groupName, historyLimit(r))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeMessages(w, messages)
}

func (h *ChatHandler) GetGroups(w http.ResponseWriter, r *http.Request) {
	username := middleware.Username(r)
	if username == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	groups, err := h.Hub.GroupsOf(username)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if groups == nil {
		groups = []string{}
	}
	json.NewEncoder(w).Encode(groups)
}

func writeMessages(w http.ResponseWriter, messages []models.Message) {
	if messages == nil {
		messages = []models.Message{}
	}
	json.NewEncoder(w).Encode(messages)
}
