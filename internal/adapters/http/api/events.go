package api

import (
	"net/http"
	"strconv"
)

// EventsHandler handles event CRUD requests.
type EventsHandler struct {
	deps          Dependencies
	maxTextLength int
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(deps Dependencies, maxTextLength int) *EventsHandler {
	return &EventsHandler{deps: deps, maxTextLength: maxTextLength}
}

// HandleList handles GET /events requests.
func (h *EventsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_events"
	events, err := h.deps.ListEvents(r.Context())
	if err != nil {
		fail(r.Context(), w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, toEventList(events, h.deps.Location()))
}

// HandleListByUser handles GET /events/user/{user_id} requests.
func (h *EventsHandler) HandleListByUser(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_user_events"
	owner, err := userID(r)
	if err != nil {
		fail(r.Context(), w, WrapKind(op, ErrBadRequest, err))
		return
	}
	events, err := h.deps.ListUserEvents(r.Context(), owner)
	if err != nil {
		fail(r.Context(), w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, toEventList(events, h.deps.Location()))
}

// HandleCreate handles POST /events requests.
func (h *EventsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_event"
	var req createEventRequest
	if err := decodeJSON(w, r, bodyLimit(h.maxTextLength), &req); err != nil {
		fail(r.Context(), w, Wrap(op, err))
		return
	}
	e, err := req.toEvent(h.deps.Location())
	if err != nil {
		fail(r.Context(), w, WrapKind(op, ErrBadRequest, err))
		return
	}
	created, err := h.deps.CreateEvent(r.Context(), e)
	if err != nil {
		fail(r.Context(), w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusCreated, toEventResponse(created, h.deps.Location()))
}

// HandleParseEvent handles POST /events/parse: extract and store in one step.
func (h *EventsHandler) HandleParseEvent(w http.ResponseWriter, r *http.Request) {
	const op = "api.parse_event"
	var req parseEventRequest
	if err := decodeJSON(w, r, bodyLimit(h.maxTextLength), &req); err != nil {
		fail(r.Context(), w, Wrap(op, err))
		return
	}
	if err := checkText(req.Text, h.maxTextLength); err != nil {
		fail(r.Context(), w, Wrap(op, err))
		return
	}
	created, c, err := h.deps.ParseAndCreate(r.Context(), req.UserID, req.Text)
	if err != nil {
		fail(r.Context(), w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusCreated, parsedEventResponse{
		Event:  toEventResponse(created, h.deps.Location()),
		Parsed: toCandidateResponse(c),
	})
}

// HandleGet handles GET /events/{id} requests.
func (h *EventsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_event"
	e, err := h.deps.GetEvent(r.Context(), r.PathValue("id"))
	if err != nil {
		fail(r.Context(), w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, toEventResponse(e, h.deps.Location()))
}

// HandleUpdate handles PUT /events/{id} requests.
func (h *EventsHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	const op = "api.update_event"
	var req updateEventRequest
	if err := decodeJSON(w, r, bodyLimit(h.maxTextLength), &req); err != nil {
		fail(r.Context(), w, Wrap(op, err))
		return
	}
	p, err := req.toPatch(h.deps.Location())
	if err != nil {
		fail(r.Context(), w, WrapKind(op, ErrBadRequest, err))
		return
	}
	e, err := h.deps.UpdateEvent(r.Context(), r.PathValue("id"), p)
	if err != nil {
		fail(r.Context(), w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, toEventResponse(e, h.deps.Location()))
}

type deleteResponse struct {
	Status string `json:"status"`
	ID     string `json:"id"`
}

// HandleDelete handles DELETE /events/{id} requests.
func (h *EventsHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	const op = "api.delete_event"
	id := r.PathValue("id")
	if err := h.deps.DeleteEvent(r.Context(), id); err != nil {
		fail(r.Context(), w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, deleteResponse{Status: "deleted", ID: id})
}

func userID(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("user_id"), 10, 64)
}
