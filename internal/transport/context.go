package transport

import (
	"net/http"

	"foodcourt-be/internal/utils"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// requireActor returns the authenticated user or writes 401.
func requireActor(w http.ResponseWriter, r *http.Request) (int64, bool) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		respondMessage(w, http.StatusUnauthorized, "authentication required")
		return 0, false
	}
	return userID, true
}

// requireSelf checks that the user id in the path is the actor's own.
func requireSelf(w http.ResponseWriter, r *http.Request, param string) (int64, bool) {
	actor, ok := requireActor(w, r)
	if !ok {
		return 0, false
	}
	pathID, ok := pathInt(w, r, param)
	if !ok {
		return 0, false
	}
	if pathID != actor {
		respondMessage(w, http.StatusForbidden, "path user does not match the authenticated user")
		return 0, false
	}
	return actor, true
}

func pathInt(w http.ResponseWriter, r *http.Request, param string) (int64, bool) {
	id, err := utils.ParseID(chi.URLParam(r, param))
	if err != nil {
		respondMessage(w, http.StatusBadRequest, param+": "+err.Error())
		return 0, false
	}
	return id, true
}

func pathUUID(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		respondMessage(w, http.StatusBadRequest, param+": invalid id")
		return uuid.Nil, false
	}
	return id, true
}

// pagination reads limit and page from the query string.
func pagination(w http.ResponseWriter, r *http.Request) (utils.Pagination, bool) {
	q := r.URL.Query()
	limit, err := utils.ParseIntDefault(q.Get("limit"), utils.DefaultPageLimit)
	if err != nil {
		respondMessage(w, http.StatusBadRequest, "limit must be a number")
		return utils.Pagination{}, false
	}
	page, err := utils.ParseIntDefault(q.Get("page"), 1)
	if err != nil {
		respondMessage(w, http.StatusBadRequest, "page must be a number")
		return utils.Pagination{}, false
	}
	return utils.Pagination{Limit: limit, Page: page}.Normalize(), true
}
