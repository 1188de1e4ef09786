package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/vsinha/mrpbom/pkg/infrastructure/events"
)

// EventsHandler exposes the run event log
type EventsHandler struct {
	store events.EventStore
}

func NewEventsHandler(store events.EventStore) *EventsHandler {
	return &EventsHandler{store: store}
}

// List returns events from global position ?from= (default 0). With ?stream=
// only that stream is read and from is a stream version. Events dropped by
// retention are skipped, so the first position may be greater than from.
func (h *EventsHandler) List(c *gin.Context) {
	from, err := strconv.Atoi(c.DefaultQuery("from", "0"))
	if err != nil || from < 0 {
		errorResponse(c, http.StatusBadRequest, "invalid from", err)
		return
	}

	var list []events.Event
	if stream := c.Query("stream"); stream != "" {
		list, err = h.store.ReadEvents(stream, from)
	} else {
		list, err = h.store.ReadAllEvents(from)
	}
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, "failed to read events", err)
		return
	}
	c.JSON(http.StatusOK, list)
}
