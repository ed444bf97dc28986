package http

import (
	"context"
	"net/http"
	"strconv"

	syncx "github.com/mind-engage/mindengage-iq/internal/sync"
)

type EventLister interface {
	Since(ctx context.Context, after int64, limit int) ([]syncx.Event, error)
}

type eventJSON struct {
	Seq       int64  `json:"seq"`
	SiteID    string `json:"site_id"`
	Type      string `json:"type"`
	Key       string `json:"key"`
	Data      string `json:"data"`
	CreatedAt int64  `json:"created_at"`
}

// GET /events?after=0&limit=100
func EventsHandler(ev EventLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		after, _ := strconv.ParseInt(q.Get("after"), 10, 64)
		limit, _ := strconv.Atoi(q.Get("limit"))
		if limit <= 0 || limit > 500 {
			limit = 100
		}
		list, err := ev.Since(r.Context(), after, limit)
		if err != nil {
			http.Error(w, "list events", http.StatusInternalServerError)
			return
		}
		out := make([]eventJSON, 0, len(list))
		for _, e := range list {
			out = append(out, eventJSON{e.Seq, e.SiteID, e.Type, e.Key, e.DataJSON, e.CreatedAt})
		}
		writeJSON(w, http.StatusOK, out)
	}
}
