package group

import (
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"yatube/db"
)

// Groups are read-only through the API; rows are created by operators
// directly in the database.

func ListHandler(w http.ResponseWriter, r *http.Request) {
	rows, err := db.Instance.Query(`SELECT id, title, slug, description FROM groups ORDER BY id`)
	if err != nil {
		log.Printf("[Groups] Query failed: %v", err)
		http.Error(w, "Error retrieving groups", http.StatusInternalServerError)
		return
	}
	defer rows.Close()

	groups := []Group{}
	for rows.Next() {
		var g Group
		if err := rows.Scan(&g.ID, &g.Title, &g.Slug, &g.Description); err != nil {
			log.Printf("[Groups] Scan failed: %v", err)
			http.Error(w, "Error scanning groups", http.StatusInternalServerError)
			return
		}
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		log.Printf("[Groups] Rows iteration error: %v", err)
		http.Error(w, "Error retrieving groups", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(groups)
}

func RetrieveHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		http.Error(w, "Invalid group ID", http.StatusBadRequest)
		return
	}

	var g Group
	err = db.Instance.QueryRow(
		`SELECT id, title, slug, description FROM groups WHERE id = ?`, id).
		Scan(&g.ID, &g.Title, &g.Slug, &g.Description)
	if err == sql.ErrNoRows {
		http.Error(w, "Group not found", http.StatusNotFound)
		return
	} else if err != nil {
		log.Printf("[Groups] Query by ID failed: %v", err)
		http.Error(w, "Server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(g)
}
