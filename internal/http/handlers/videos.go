package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/pribylovaa/go-media-hub/internal/http/models"
	"github.com/pribylovaa/go-media-hub/internal/http/response"
)

// VideosHealth - проверка, что роутер видео подключён.
func (h *Handlers) VideosHealth(w http.ResponseWriter, r *http.Request) {
	response.WriteJSON(w, http.StatusOK, emptyObject{}, "All good!")
}

// RecordWatch добавляет видео в историю просмотров вызывающего.
func (h *Handlers) RecordWatch(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(w, r)
	if !ok {
		return
	}

	videoID, err := uuid.Parse(chi.URLParam(r, "videoId"))
	if err != nil {
		response.WriteError(w, r, response.BadRequest("Invalid video id"))
		return
	}

	if err := h.svc.RecordWatch(r.Context(), user.ID, videoID); err != nil {
		response.WriteError(w, r, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, models.Watch{VideoID: videoID.String()}, "Video added to watch history")
}
