package server

import (
	"encoding/json"
	"net/http"

	"github.com/jrsteele09/go-catalog-link/catalog"
	"github.com/jrsteele09/go-catalog-link/collection"
)

const maxChangeBody = 16 << 10

// itemRequest extracts the caller and the item id shared by the collection routes.
// It writes the error response itself and reports false on failure.
func itemRequest(w http.ResponseWriter, r *http.Request) (collection.User, catalog.ItemID, bool) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Missing user")
		return collection.User{}, 0, false
	}
	item, err := catalog.ParseItemID(r.PathValue("itemID"))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "invalid item id")
		return collection.User{}, 0, false
	}
	return user, item, true
}

func (s *Server) CollectionOverviewHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, item, ok := itemRequest(w, r)
		if !ok {
			return
		}

		entry, err := s.services.Collection.Overview(r.Context(), user, item)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		if entry == nil {
			writeJSONError(w, http.StatusNotFound, "not_found", "item is not in the wantlist or collection")
			return
		}
		writeJSON(w, http.StatusOK, entry)
	}
}

// CollectionUpsertHandler applies a JSON change:
//
//	{"membership": "wantlist", "notes": "...", "price_threshold": 12.5, "rating": 4}
//
// Omitted fields are left alone; "rating": null or 0 clears the rating.
func (s *Server) CollectionUpsertHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, item, ok := itemRequest(w, r)
		if !ok {
			return
		}

		var change collection.Change
		decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxChangeBody))
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&change); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid_request", "invalid change body")
			return
		}

		entry, err := s.services.Collection.Upsert(r.Context(), user, item, change)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, entry)
	}
}

func (s *Server) CollectionRemoveHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, item, ok := itemRequest(w, r)
		if !ok {
			return
		}

		if err := s.services.Collection.Remove(r.Context(), user, item); err != nil {
			writeServiceError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
