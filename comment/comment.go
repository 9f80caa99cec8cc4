package comment

import (
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"yatube/db"
	"yatube/policy"
	"yatube/user"
	"yatube/validate"
)

const selectComment = `
	SELECT c.id, c.author_id, u.username, c.post_id, c.text, c.created
	FROM comments c
	JOIN users u ON c.author_id = u.id`

func postExists(postID int) (bool, error) {
	var one int
	err := db.Instance.QueryRow(`SELECT 1 FROM posts WHERE id = ?`, postID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return err == nil, err
}

func fetchComment(postID, id int) (Comment, int, error) {
	var (
		c        Comment
		authorID int
	)
	err := db.Instance.QueryRow(selectComment+` WHERE c.id = ? AND c.post_id = ?`, id, postID).
		Scan(&c.ID, &authorID, &c.Author, &c.Post, &c.Text, &c.Created)
	if err != nil {
		return Comment{}, 0, err
	}
	return c, authorID, nil
}

// parentPost resolves the post_id path segment and writes the error
// response when the segment is malformed or the post does not exist.
func parentPost(w http.ResponseWriter, r *http.Request) (int, bool) {
	postID, err := strconv.Atoi(r.PathValue("post_id"))
	if err != nil {
		http.Error(w, "Invalid post ID", http.StatusBadRequest)
		return 0, false
	}

	exists, err := postExists(postID)
	if err != nil {
		log.Printf("[Comments] Post lookup failed: %v", err)
		http.Error(w, "Server error", http.StatusInternalServerError)
		return 0, false
	}
	if !exists {
		http.Error(w, "Post not found", http.StatusNotFound)
		return 0, false
	}
	return postID, true
}

func ListHandler(w http.ResponseWriter, r *http.Request) {
	postID, ok := parentPost(w, r)
	if !ok {
		return
	}

	rows, err := db.Instance.Query(selectComment+` WHERE c.post_id = ? ORDER BY c.created ASC, c.id ASC`, postID)
	if err != nil {
		log.Printf("[Comments] Query failed: %v", err)
		http.Error(w, "Error retrieving comments", http.StatusInternalServerError)
		return
	}
	defer rows.Close()

	comments := []Comment{}
	for rows.Next() {
		var (
			c        Comment
			authorID int
		)
		if err := rows.Scan(&c.ID, &authorID, &c.Author, &c.Post, &c.Text, &c.Created); err != nil {
			log.Printf("[Comments] Scan failed: %v", err)
			http.Error(w, "Error scanning comments", http.StatusInternalServerError)
			return
		}
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		log.Printf("[Comments] Rows iteration error: %v", err)
		http.Error(w, "Error retrieving comments", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(comments)
}

func CreateHandler(w http.ResponseWriter, r *http.Request) {
	actor := user.FromRequest(r)
	if !policy.Allow(actor, policy.OpCreate, 0) {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	postID, ok := parentPost(w, r)
	if !ok {
		return
	}

	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	if err := validate.Struct(req); err != nil {
		http.Error(w, "Text is required", http.StatusBadRequest)
		return
	}

	res, err := db.Instance.Exec(
		`INSERT INTO comments (author_id, post_id, text) VALUES (?, ?, ?)`,
		actor.UserID, postID, req.Text)
	if err != nil {
		log.Printf("[Comments] Insert failed: %v", err)
		http.Error(w, "Failed to create comment", http.StatusInternalServerError)
		return
	}

	commentID, err := res.LastInsertId()
	if err != nil {
		log.Printf("[Comments] Getting comment ID failed: %v", err)
		http.Error(w, "Failed to create comment", http.StatusInternalServerError)
		return
	}

	c, _, err := fetchComment(postID, int(commentID))
	if err != nil {
		log.Printf("[Comments] Reload after insert failed: %v", err)
		http.Error(w, "Failed to create comment", http.StatusInternalServerError)
		return
	}

	log.Printf("[Comments] User %d commented on post %d (ID: %d)", actor.UserID, postID, c.ID)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(c)
}

func RetrieveHandler(w http.ResponseWriter, r *http.Request) {
	postID, ok := parentPost(w, r)
	if !ok {
		return
	}
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		http.Error(w, "Invalid comment ID", http.StatusBadRequest)
		return
	}

	c, _, err := fetchComment(postID, id)
	if err == sql.ErrNoRows {
		http.Error(w, "Comment not found", http.StatusNotFound)
		return
	} else if err != nil {
		log.Printf("[Comments] Query by ID failed: %v", err)
		http.Error(w, "Server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(c)
}

// UpdateHandler edits the comment text; only the author may edit.
func UpdateHandler(w http.ResponseWriter, r *http.Request) {
	actor := user.FromRequest(r)

	postID, ok := parentPost(w, r)
	if !ok {
		return
	}
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		http.Error(w, "Invalid comment ID", http.StatusBadRequest)
		return
	}

	_, authorID, err := fetchComment(postID, id)
	if err == sql.ErrNoRows {
		http.Error(w, "Comment not found", http.StatusNotFound)
		return
	} else if err != nil {
		log.Printf("[Comments] Query by ID failed: %v", err)
		http.Error(w, "Server error", http.StatusInternalServerError)
		return
	}

	if !policy.Allow(actor, policy.OpModify, authorID) {
		http.Error(w, "You are not the author of this comment", http.StatusForbidden)
		return
	}

	var updateData struct {
		Text *string `json:"text,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&updateData); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	if updateData.Text == nil {
		http.Error(w, "No fields to update", http.StatusBadRequest)
		return
	}
	if *updateData.Text == "" {
		http.Error(w, "Text is required", http.StatusBadRequest)
		return
	}

	if _, err := db.Instance.Exec(`UPDATE comments SET text = ? WHERE id = ?`, *updateData.Text, id); err != nil {
		log.Printf("[Comments] Update failed: %v", err)
		http.Error(w, "Failed to update comment", http.StatusInternalServerError)
		return
	}

	c, _, err := fetchComment(postID, id)
	if err != nil {
		log.Printf("[Comments] Reload after update failed: %v", err)
		http.Error(w, "Server error", http.StatusInternalServerError)
		return
	}

	log.Printf("[Comments] User %d updated comment %d", actor.UserID, id)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(c)
}

// DeleteHandler removes a comment; only the author may delete.
func DeleteHandler(w http.ResponseWriter, r *http.Request) {
	actor := user.FromRequest(r)

	postID, ok := parentPost(w, r)
	if !ok {
		return
	}
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		http.Error(w, "Invalid comment ID", http.StatusBadRequest)
		return
	}

	_, authorID, err := fetchComment(postID, id)
	if err == sql.ErrNoRows {
		http.Error(w, "Comment not found", http.StatusNotFound)
		return
	} else if err != nil {
		log.Printf("[Comments] Query by ID failed: %v", err)
		http.Error(w, "Server error", http.StatusInternalServerError)
		return
	}

	if !policy.Allow(actor, policy.OpModify, authorID) {
		http.Error(w, "You are not the author of this comment", http.StatusForbidden)
		return
	}

	if _, err := db.Instance.Exec(`DELETE FROM comments WHERE id = ?`, id); err != nil {
		log.Printf("[Comments] Delete failed: %v", err)
		http.Error(w, "Failed to delete comment", http.StatusInternalServerError)
		return
	}

	log.Printf("[Comments] User %d deleted comment %d", actor.UserID, id)
	w.WriteHeader(http.StatusNoContent)
}
