package main

import (
	"log"
	"net/http"

	"yatube/comment"
	"yatube/config"
	"yatube/db"
	"yatube/follower"
	"yatube/group"
	"yatube/pkg/db/sqlite"
	"yatube/post"
	"yatube/user"
)

func main() {
	// Initialize the database
	db.Instance = sqlite.Connect(config.DBPath())
	defer db.Instance.Close()

	addr := config.Addr()
	log.Println("Server running on", addr)
	log.Fatal(http.ListenAndServe(addr, disableCORS(newRouter())))
}

func newRouter() *http.ServeMux {
	mux := http.NewServeMux()

	// Serve uploaded media
	fs := http.FileServer(http.Dir("uploads"))
	mux.Handle("/uploads/", http.StripPrefix("/uploads/", fs))

	mux.HandleFunc("POST /api/v1/auth/register", user.RegisterHandler)
	mux.HandleFunc("POST /api/v1/auth/login", user.LoginHandler)

	mux.HandleFunc("GET /api/v1/posts", post.ListHandler)
	mux.HandleFunc("POST /api/v1/posts", user.RequireAuth(post.CreateHandler))
	mux.HandleFunc("GET /api/v1/posts/{id}", post.RetrieveHandler)
	mux.HandleFunc("PUT /api/v1/posts/{id}", user.RequireAuth(post.UpdateHandler))
	mux.HandleFunc("PATCH /api/v1/posts/{id}", user.RequireAuth(post.UpdateHandler))
	mux.HandleFunc("DELETE /api/v1/posts/{id}", user.RequireAuth(post.DeleteHandler))

	mux.HandleFunc("GET /api/v1/groups", group.ListHandler)
	mux.HandleFunc("GET /api/v1/groups/{id}", group.RetrieveHandler)

	mux.HandleFunc("GET /api/v1/posts/{post_id}/comments", comment.ListHandler)
	mux.HandleFunc("POST /api/v1/posts/{post_id}/comments", user.RequireAuth(comment.CreateHandler))
	mux.HandleFunc("GET /api/v1/posts/{post_id}/comments/{id}", comment.RetrieveHandler)
	mux.HandleFunc("PUT /api/v1/posts/{post_id}/comments/{id}", user.RequireAuth(comment.UpdateHandler))
	mux.HandleFunc("PATCH /api/v1/posts/{post_id}/comments/{id}", user.RequireAuth(comment.UpdateHandler))
	mux.HandleFunc("DELETE /api/v1/posts/{post_id}/comments/{id}", user.RequireAuth(comment.DeleteHandler))

	mux.HandleFunc("GET /api/v1/follow", user.RequireAuth(follower.ListHandler))
	mux.HandleFunc("POST /api/v1/follow", user.RequireAuth(follower.CreateHandler))

	return mux
}

func disableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
