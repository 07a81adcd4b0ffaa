package httpapi

import (
	"net/http"
	"time"

	"usfconnect.africa/internal/activity"
)

type activityItemResponse struct {
	activity.Item
	TimeAgo string `json:"time_ago"`
}

type activityResponse struct {
	Activities []activityItemResponse `json:"activities"`
	Error      string                 `json:"error,omitempty"`
	HasMore    bool                   `json:"has_more"`
}

func (a *API) handleActivity(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if a.feeds == nil {
		writeError(w, r, http.StatusServiceUnavailable, "activity feed unavailable")
		return
	}

	limit, err := parseLimit(r.URL.Query().Get("limit"), activity.DefaultMaxItems, 1, activity.MaxItemsCeiling)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	feed, err := activity.NewFeed(a.feeds, activity.WithMaxItems(limit))
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "activity feed unavailable")
		return
	}
	state := feed.Refresh(r.Context())

	// time_ago is rendered per response so it always reflects elapsed time.
	now := time.Now().UTC()
	items := make([]activityItemResponse, 0, len(state.Activities))
	for _, item := range state.Activities {
		items = append(items, activityItemResponse{
			Item:    item,
			TimeAgo: activity.TimeAgo(item.Timestamp, now),
		})
	}
	writeJSON(w, http.StatusOK, activityResponse{
		Activities: items,
		Error:      state.Error,
		HasMore:    state.HasMore,
	})
}
