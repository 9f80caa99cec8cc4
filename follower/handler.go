package follower

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"yatube/user"
)

func ListHandler(w http.ResponseWriter, r *http.Request) {
	actor := user.FromRequest(r)
	if actor.Anonymous() {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	follows, err := List(actor, r.URL.Query().Get("search"))
	if err != nil {
		log.Printf("[Follow] Query failed: %v", err)
		http.Error(w, "Error retrieving follows", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(follows)
}

// CreateHandler runs the follow pipeline. Every rejection is surfaced as
// 400, a missing target username included: answering 404 here would
// confirm which usernames exist to anyone probing this endpoint.
func CreateHandler(w http.ResponseWriter, r *http.Request) {
	actor := user.FromRequest(r)
	if actor.Anonymous() {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	f, err := Create(actor, req)
	switch {
	case errors.Is(err, ErrTargetNotFound),
		errors.Is(err, ErrSelfFollow),
		errors.Is(err, ErrInvalidPayload),
		errors.Is(err, ErrDuplicate):
		log.Printf("[Follow] Rejected follow %s -> %s: %v", actor.Username, req.Following, err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	case err != nil:
		log.Printf("[Follow] Create failed: %v", err)
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}

	log.Printf("[Follow] %s now follows %s", f.User, f.Following)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(f)
}
