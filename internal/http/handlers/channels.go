package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/pribylovaa/go-media-hub/internal/http/models"
	"github.com/pribylovaa/go-media-hub/internal/http/response"
)

// ChannelProfile отдаёт профиль канала; isSubscribed считается относительно вызывающего.
func (h *Handlers) ChannelProfile(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(w, r)
	if !ok {
		return
	}

	profile, err := h.svc.ChannelProfile(r.Context(), chi.URLParam(r, "username"), user.ID)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, models.ChannelFromModel(profile), "User channel fetched successfully")
}

func (h *Handlers) Subscribe(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(w, r)
	if !ok {
		return
	}

	channel := chi.URLParam(r, "username")
	if err := h.svc.Subscribe(r.Context(), user.ID, channel); err != nil {
		response.WriteError(w, r, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, models.Subscription{Channel: channel, Subscribed: true}, "Subscribed successfully")
}

func (h *Handlers) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(w, r)
	if !ok {
		return
	}

	channel := chi.URLParam(r, "username")
	if err := h.svc.Unsubscribe(r.Context(), user.ID, channel); err != nil {
		response.WriteError(w, r, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, models.Subscription{Channel: channel, Subscribed: false}, "Unsubscribed successfully")
}

func (h *Handlers) WatchHistory(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(w, r)
	if !ok {
		return
	}

	history, err := h.svc.WatchHistory(r.Context(), user.ID)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, models.HistoryFromModel(history), "Watch history fetched successfully")
}
