package post

import (
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"

	"yatube/db"
	"yatube/policy"
	"yatube/user"
	"yatube/validate"
)

const selectPost = `
	SELECT p.id, p.author_id, u.username, p.text, p.pub_date, p.image, p.group_id
	FROM posts p
	JOIN users u ON p.author_id = u.id`

// page is the response envelope for limit/offset pagination.
type page struct {
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []Post  `json:"results"`
}

func scanPost(row *sql.Row) (Post, int, error) {
	var (
		p        Post
		authorID int
		image    sql.NullString
		groupID  sql.NullInt64
	)
	err := row.Scan(&p.ID, &authorID, &p.Author, &p.Text, &p.PubDate, &image, &groupID)
	if err != nil {
		return Post{}, 0, err
	}
	if image.Valid {
		p.Image = &image.String
	}
	if groupID.Valid {
		gid := int(groupID.Int64)
		p.Group = &gid
	}
	return p, authorID, nil
}

func fetchPost(id int) (Post, int, error) {
	return scanPost(db.Instance.QueryRow(selectPost+` WHERE p.id = ?`, id))
}

// ListHandler returns posts newest first. Without a limit parameter the
// whole list is returned as a plain array; with one, a paginated envelope.
func ListHandler(w http.ResponseWriter, r *http.Request) {
	limitStr := r.URL.Query().Get("limit")
	offsetStr := r.URL.Query().Get("offset")

	query := selectPost + ` ORDER BY p.pub_date DESC, p.id DESC`

	if limitStr == "" {
		posts, err := queryPosts(query)
		if err != nil {
			log.Printf("[Posts] Query failed: %v", err)
			http.Error(w, "Error retrieving posts", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(posts)
		return
	}

	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit < 0 {
		http.Error(w, "Invalid limit", http.StatusBadRequest)
		return
	}
	offset := 0
	if offsetStr != "" {
		offset, err = strconv.Atoi(offsetStr)
		if err != nil || offset < 0 {
			http.Error(w, "Invalid offset", http.StatusBadRequest)
			return
		}
	}

	var count int
	if err := db.Instance.QueryRow(`SELECT COUNT(*) FROM posts`).Scan(&count); err != nil {
		log.Printf("[Posts] Count failed: %v", err)
		http.Error(w, "Error retrieving posts", http.StatusInternalServerError)
		return
	}

	posts, err := queryPosts(query+` LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		log.Printf("[Posts] Query failed: %v", err)
		http.Error(w, "Error retrieving posts", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(page{
		Count:    count,
		Next:     nextLink(r, limit, offset, count),
		Previous: prevLink(r, limit, offset),
		Results:  posts,
	})
}

func queryPosts(query string, args ...interface{}) ([]Post, error) {
	rows, err := db.Instance.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	posts := []Post{}
	for rows.Next() {
		var (
			p        Post
			authorID int
			image    sql.NullString
			groupID  sql.NullInt64
		)
		if err := rows.Scan(&p.ID, &authorID, &p.Author, &p.Text, &p.PubDate, &image, &groupID); err != nil {
			return nil, err
		}
		if image.Valid {
			p.Image = &image.String
		}
		if groupID.Valid {
			gid := int(groupID.Int64)
			p.Group = &gid
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

func nextLink(r *http.Request, limit, offset, count int) *string {
	if offset+limit >= count {
		return nil
	}
	return pageLink(r, limit, offset+limit)
}

func prevLink(r *http.Request, limit, offset int) *string {
	if offset <= 0 {
		return nil
	}
	prev := offset - limit
	if prev < 0 {
		prev = 0
	}
	return pageLink(r, limit, prev)
}

func pageLink(r *http.Request, limit, offset int) *string {
	u := *r.URL
	q := u.Query()
	q.Set("limit", strconv.Itoa(limit))
	if offset > 0 {
		q.Set("offset", strconv.Itoa(offset))
	} else {
		q.Del("offset")
	}
	u.RawQuery = q.Encode()
	link := u.String()
	return &link
}

// CreateHandler accepts either a JSON body or a multipart form with an
// optional image attachment.
func CreateHandler(w http.ResponseWriter, r *http.Request) {
	actor := user.FromRequest(r)
	if !policy.Allow(actor, policy.OpCreate, 0) {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req CreateRequest
	var imagePath string
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		req.Text = r.FormValue("text")
		if g := r.FormValue("group"); g != "" {
			gid, err := strconv.Atoi(g)
			if err != nil {
				http.Error(w, "Invalid group", http.StatusBadRequest)
				return
			}
			req.Group = &gid
		}
		path, err := SaveFile(r, "image")
		if err != nil {
			log.Printf("[Posts] Image upload failed: %v", err)
			http.Error(w, "Image upload failed", http.StatusInternalServerError)
			return
		}
		imagePath = path
	} else {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request payload", http.StatusBadRequest)
			return
		}
	}

	if err := validate.Struct(req); err != nil {
		http.Error(w, "Text is required", http.StatusBadRequest)
		return
	}

	if req.Group != nil {
		var exists int
		err := db.Instance.QueryRow(`SELECT 1 FROM groups WHERE id = ?`, *req.Group).Scan(&exists)
		if err == sql.ErrNoRows {
			http.Error(w, "Group not found", http.StatusBadRequest)
			return
		} else if err != nil {
			log.Printf("[Posts] Group lookup failed: %v", err)
			http.Error(w, "Server error", http.StatusInternalServerError)
			return
		}
	}

	image := sql.NullString{String: imagePath, Valid: imagePath != ""}
	res, err := db.Instance.Exec(
		`INSERT INTO posts (author_id, text, image, group_id) VALUES (?, ?, ?, ?)`,
		actor.UserID, req.Text, image, req.Group)
	if err != nil {
		log.Printf("[Posts] Insert failed: %v", err)
		http.Error(w, "Error saving post", http.StatusInternalServerError)
		return
	}

	postID, err := res.LastInsertId()
	if err != nil {
		log.Printf("[Posts] Getting post ID failed: %v", err)
		http.Error(w, "Error saving post", http.StatusInternalServerError)
		return
	}

	p, _, err := fetchPost(int(postID))
	if err != nil {
		log.Printf("[Posts] Reload after insert failed: %v", err)
		http.Error(w, "Error saving post", http.StatusInternalServerError)
		return
	}

	log.Printf("[Posts] User %d created new post (ID: %d)", actor.UserID, p.ID)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(p)
}

func RetrieveHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		http.Error(w, "Invalid post ID", http.StatusBadRequest)
		return
	}

	p, _, err := fetchPost(id)
	if err == sql.ErrNoRows {
		http.Error(w, "Post not found", http.StatusNotFound)
		return
	} else if err != nil {
		log.Printf("[Posts] Query by ID failed: %v", err)
		http.Error(w, "Server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(p)
}

// UpdateHandler applies a partial update; only the author may edit.
func UpdateHandler(w http.ResponseWriter, r *http.Request) {
	actor := user.FromRequest(r)

	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		http.Error(w, "Invalid post ID", http.StatusBadRequest)
		return
	}

	_, authorID, err := fetchPost(id)
	if err == sql.ErrNoRows {
		http.Error(w, "Post not found", http.StatusNotFound)
		return
	} else if err != nil {
		log.Printf("[Posts] Query by ID failed: %v", err)
		http.Error(w, "Server error", http.StatusInternalServerError)
		return
	}

	if !policy.Allow(actor, policy.OpModify, authorID) {
		http.Error(w, "You are not the author of this post", http.StatusForbidden)
		return
	}

	var updateData struct {
		Text  *string `json:"text,omitempty"`
		Group *int    `json:"group,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&updateData); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	var setParts []string
	var args []interface{}

	if updateData.Text != nil {
		if *updateData.Text == "" {
			http.Error(w, "Text is required", http.StatusBadRequest)
			return
		}
		setParts = append(setParts, "text = ?")
		args = append(args, *updateData.Text)
	}
	if updateData.Group != nil {
		var exists int
		err := db.Instance.QueryRow(`SELECT 1 FROM groups WHERE id = ?`, *updateData.Group).Scan(&exists)
		if err == sql.ErrNoRows {
			http.Error(w, "Group not found", http.StatusBadRequest)
			return
		} else if err != nil {
			log.Printf("[Posts] Group lookup failed: %v", err)
			http.Error(w, "Server error", http.StatusInternalServerError)
			return
		}
		setParts = append(setParts, "group_id = ?")
		args = append(args, *updateData.Group)
	}

	if len(setParts) == 0 {
		http.Error(w, "No fields to update", http.StatusBadRequest)
		return
	}

	args = append(args, id)
	if _, err := db.Instance.Exec(
		"UPDATE posts SET "+strings.Join(setParts, ", ")+" WHERE id = ?", args...); err != nil {
		log.Printf("[Posts] Update failed: %v", err)
		http.Error(w, "Failed to update post", http.StatusInternalServerError)
		return
	}

	p, _, err := fetchPost(id)
	if err != nil {
		log.Printf("[Posts] Reload after update failed: %v", err)
		http.Error(w, "Server error", http.StatusInternalServerError)
		return
	}

	log.Printf("[Posts] User %d updated post %d", actor.UserID, id)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(p)
}

// DeleteHandler removes a post and its comments; only the author may delete.
func DeleteHandler(w http.ResponseWriter, r *http.Request) {
	actor := user.FromRequest(r)

	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		http.Error(w, "Invalid post ID", http.StatusBadRequest)
		return
	}

	_, authorID, err := fetchPost(id)
	if err == sql.ErrNoRows {
		http.Error(w, "Post not found", http.StatusNotFound)
		return
	} else if err != nil {
		log.Printf("[Posts] Query by ID failed: %v", err)
		http.Error(w, "Server error", http.StatusInternalServerError)
		return
	}

	if !policy.Allow(actor, policy.OpModify, authorID) {
		http.Error(w, "You are not the author of this post", http.StatusForbidden)
		return
	}

	tx, err := db.Instance.Begin()
	if err != nil {
		log.Printf("[Posts] Starting transaction failed: %v", err)
		http.Error(w, "Failed to delete post", http.StatusInternalServerError)
		return
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM comments WHERE post_id = ?`, id); err != nil {
		log.Printf("[Posts] Deleting comments failed: %v", err)
		http.Error(w, "Failed to delete post", http.StatusInternalServerError)
		return
	}
	if _, err := tx.Exec(`DELETE FROM posts WHERE id = ?`, id); err != nil {
		log.Printf("[Posts] Delete failed: %v", err)
		http.Error(w, "Failed to delete post", http.StatusInternalServerError)
		return
	}
	if err := tx.Commit(); err != nil {
		log.Printf("[Posts] Commit failed: %v", err)
		http.Error(w, "Failed to delete post", http.StatusInternalServerError)
		return
	}

	log.Printf("[Posts] User %d deleted post %d", actor.UserID, id)
	w.WriteHeader(http.StatusNoContent)
}
