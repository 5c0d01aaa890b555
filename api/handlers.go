package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/jonwraymond/healthops/auth"
	"github.com/jonwraymond/healthops/health"
	"github.com/jonwraymond/healthops/notify"
	"github.com/jonwraymond/healthops/observe"
	"github.com/jonwraymond/healthops/selection"
)

const maxBodyBytes = 64 << 10

// SelectionBody is the request and response body of the selection routes.
type SelectionBody struct {
	Servers selection.Selection `json:"servers"`

	// Persisted is false when the selection was applied but could not be
	// saved. Ignored on input.
	Persisted bool `json:"persisted"`
}

// NotificationList is the body of GET /v1/notifications.
type NotificationList struct {
	Notifications []notify.Notification `json:"notifications"`
	Unread        int                   `json:"unread"`
}

type handlers struct {
	engine *health.Engine
	prefs  *notify.Preferences
	inbox  notify.Inbox
	logger observe.Logger
}

func (h *handlers) refresh(w http.ResponseWriter, r *http.Request) {
	snap, err := h.engine.Refresh(r.Context())
	if err != nil {
		code := http.StatusServiceUnavailable
		if !errors.Is(err, health.ErrEngineClosed) {
			code = http.StatusGatewayTimeout
		}
		writeError(w, code, err.Error())
		return
	}

	h.logger.Info(r.Context(), "manual refresh",
		observe.String("principal", auth.PrincipalFromContext(r.Context())),
		observe.String("overall", snap.OverallStatus.String()))
	health.WriteJSON(w, http.StatusOK, snap)
}

func (h *handlers) getSelection(w http.ResponseWriter, r *http.Request) {
	health.WriteJSON(w, http.StatusOK, SelectionBody{Servers: h.engine.Selection(r.Context()), Persisted: true})
}

func (h *handlers) putSelection(w http.ResponseWriter, r *http.Request) {
	var body SelectionBody
	if err := decodeBody(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	persisted := true
	if err := h.engine.SetSelection(r.Context(), body.Servers); err != nil {
		if !errors.Is(err, selection.ErrNotPersisted) {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		persisted = false
	}

	h.logger.Info(r.Context(), "selection updated",
		observe.String("principal", auth.PrincipalFromContext(r.Context())),
		observe.String("selection", body.Servers.String()),
		observe.Bool("persisted", persisted))
	health.WriteJSON(w, http.StatusOK, SelectionBody{Servers: h.engine.Selection(r.Context()), Persisted: persisted})
}

func (h *handlers) listNotifications(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("%v: limit must be a non-negative integer", ErrBadRequest))
			return
		}
		limit = n
	}

	items, err := h.inbox.List(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	unread := 0
	for _, n := range items {
		if !n.Read {
			unread++
		}
	}
	health.WriteJSON(w, http.StatusOK, NotificationList{Notifications: items, Unread: unread})
}

func (h *handlers) markRead(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("%v: invalid notification id", ErrBadRequest))
		return
	}

	if err := h.inbox.MarkRead(r.Context(), id); err != nil {
		if errors.Is(err, notify.ErrNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) getPreferences(w http.ResponseWriter, r *http.Request) {
	settings, err := h.prefs.Get(r.Context())
	if err != nil {
		h.logger.Warn(r.Context(), "notification preferences unavailable, serving defaults", observe.Err(err))
	}
	health.WriteJSON(w, http.StatusOK, settings)
}

func (h *handlers) putPreferences(w http.ResponseWriter, r *http.Request) {
	settings := notify.DefaultSettings()
	if err := decodeBody(w, r, &settings); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.prefs.Set(r.Context(), settings); err != nil {
		h.logger.Error(r.Context(), "notification preferences not saved", observe.Err(err))
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	health.WriteJSON(w, http.StatusOK, settings)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	return nil
}

func writeError(w http.ResponseWriter, code int, msg string) {
	health.WriteJSON(w, code, map[string]string{"error": msg})
}
