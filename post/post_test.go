package post

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yatube/db"
	"yatube/db/dbtest"
	"yatube/policy"
	"yatube/user"
)

func newTestRouter() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/posts", ListHandler)
	mux.HandleFunc("POST /api/v1/posts", user.RequireAuth(CreateHandler))
	mux.HandleFunc("GET /api/v1/posts/{id}", RetrieveHandler)
	mux.HandleFunc("PUT /api/v1/posts/{id}", user.RequireAuth(UpdateHandler))
	mux.HandleFunc("PATCH /api/v1/posts/{id}", user.RequireAuth(UpdateHandler))
	mux.HandleFunc("DELETE /api/v1/posts/{id}", user.RequireAuth(DeleteHandler))
	return mux
}

func seedIdentity(t *testing.T, username string) policy.Identity {
	t.Helper()
	return policy.Identity{UserID: dbtest.SeedUser(t, username), Username: username}
}

func authHeader(t *testing.T, actor policy.Identity) string {
	t.Helper()
	token, err := user.GenerateJWT(actor.UserID, actor.Username)
	require.NoError(t, err)
	return "Bearer " + token
}

func seedPost(t *testing.T, authorID int, text string) int {
	t.Helper()
	res, err := db.Instance.Exec(`INSERT INTO posts (author_id, text) VALUES (?, ?)`, authorID, text)
	require.NoError(t, err)
	id, err := res.LastInsertId()
	require.NoError(t, err)
	return int(id)
}

func countPosts(t *testing.T) int {
	t.Helper()
	var n int
	require.NoError(t, db.Instance.QueryRow(`SELECT COUNT(*) FROM posts`).Scan(&n))
	return n
}

func TestCreateHandler_RequiresAuthentication(t *testing.T) {
	dbtest.New(t)
	mux := newTestRouter()

	req := httptest.NewRequest("POST", "/api/v1/posts", strings.NewReader(`{"text":"hello"}`))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, 0, countPosts(t))
}

func TestCreateAndRetrieve(t *testing.T) {
	dbtest.New(t)
	alice := seedIdentity(t, "alice")
	mux := newTestRouter()

	req := httptest.NewRequest("POST", "/api/v1/posts", strings.NewReader(`{"text":"hello world"}`))
	req.Header.Set("Authorization", authHeader(t, alice))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code)

	var created Post
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "alice", created.Author)
	assert.Equal(t, "hello world", created.Text)
	assert.Nil(t, created.Image)
	assert.Nil(t, created.Group)
	assert.NotEmpty(t, created.PubDate)

	req = httptest.NewRequest("GET", "/api/v1/posts/"+itoa(created.ID), nil)
	w = httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var got Post
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "hello world", got.Text)
}

func TestCreateHandler_WithGroup(t *testing.T) {
	dbtest.New(t)
	alice := seedIdentity(t, "alice")
	mux := newTestRouter()

	_, err := db.Instance.Exec(`INSERT INTO groups (id, title, slug) VALUES (1, 'Cats', 'cats')`)
	require.NoError(t, err)

	req := httptest.NewRequest("POST", "/api/v1/posts", strings.NewReader(`{"text":"meow","group":1}`))
	req.Header.Set("Authorization", authHeader(t, alice))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code)

	var created Post
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.NotNil(t, created.Group)
	assert.Equal(t, 1, *created.Group)
}

func TestCreateHandler_UnknownGroupRejected(t *testing.T) {
	dbtest.New(t)
	alice := seedIdentity(t, "alice")
	mux := newTestRouter()

	req := httptest.NewRequest("POST", "/api/v1/posts", strings.NewReader(`{"text":"meow","group":99}`))
	req.Header.Set("Authorization", authHeader(t, alice))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 0, countPosts(t))
}

func TestCreateHandler_MultipartWithImage(t *testing.T) {
	dbtest.New(t)
	alice := seedIdentity(t, "alice")
	mux := newTestRouter()

	prev := uploadDir
	uploadDir = t.TempDir()
	t.Cleanup(func() { uploadDir = prev })

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("text", "with picture"))
	fw, err := mw.CreateFormFile("image", "pic.png")
	require.NoError(t, err)
	_, err = fw.Write([]byte("fake-png-bytes"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest("POST", "/api/v1/posts", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", authHeader(t, alice))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code)

	var created Post
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.NotNil(t, created.Image)
	assert.True(t, strings.HasSuffix(*created.Image, ".png"))
	_, err = os.Stat(*created.Image)
	assert.NoError(t, err)
}

func TestListHandler_PlainArrayWithoutLimit(t *testing.T) {
	dbtest.New(t)
	alice := seedIdentity(t, "alice")
	mux := newTestRouter()

	seedPost(t, alice.UserID, "first")
	seedPost(t, alice.UserID, "second")
	third := seedPost(t, alice.UserID, "third")

	req := httptest.NewRequest("GET", "/api/v1/posts", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var posts []Post
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &posts))
	require.Len(t, posts, 3)
	assert.Equal(t, third, posts[0].ID, "newest post comes first")
}

func TestListHandler_PaginationEnvelope(t *testing.T) {
	dbtest.New(t)
	alice := seedIdentity(t, "alice")
	mux := newTestRouter()

	seedPost(t, alice.UserID, "first")
	seedPost(t, alice.UserID, "second")
	seedPost(t, alice.UserID, "third")

	req := httptest.NewRequest("GET", "/api/v1/posts?limit=2", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var firstPage page
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &firstPage))
	assert.Equal(t, 3, firstPage.Count)
	assert.Len(t, firstPage.Results, 2)
	require.NotNil(t, firstPage.Next)
	assert.Contains(t, *firstPage.Next, "offset=2")
	assert.Nil(t, firstPage.Previous)

	req = httptest.NewRequest("GET", "/api/v1/posts?limit=2&offset=2", nil)
	w = httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var secondPage page
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &secondPage))
	assert.Equal(t, 3, secondPage.Count)
	assert.Len(t, secondPage.Results, 1)
	assert.Nil(t, secondPage.Next)
	require.NotNil(t, secondPage.Previous)
}

func TestListHandler_InvalidLimit(t *testing.T) {
	dbtest.New(t)
	mux := newTestRouter()

	req := httptest.NewRequest("GET", "/api/v1/posts?limit=nope", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateHandler_AuthorOnly(t *testing.T) {
	dbtest.New(t)
	alice := seedIdentity(t, "alice")
	bob := seedIdentity(t, "bob")
	mux := newTestRouter()

	id := seedPost(t, alice.UserID, "original")

	req := httptest.NewRequest("PATCH", "/api/v1/posts/"+itoa(id), strings.NewReader(`{"text":"hacked"}`))
	req.Header.Set("Authorization", authHeader(t, bob))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	var text string
	require.NoError(t, db.Instance.QueryRow(`SELECT text FROM posts WHERE id = ?`, id).Scan(&text))
	assert.Equal(t, "original", text)

	req = httptest.NewRequest("PATCH", "/api/v1/posts/"+itoa(id), strings.NewReader(`{"text":"edited"}`))
	req.Header.Set("Authorization", authHeader(t, alice))
	w = httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var updated Post
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &updated))
	assert.Equal(t, "edited", updated.Text)
}

func TestUpdateHandler_NoFields(t *testing.T) {
	dbtest.New(t)
	alice := seedIdentity(t, "alice")
	mux := newTestRouter()

	id := seedPost(t, alice.UserID, "original")

	req := httptest.NewRequest("PATCH", "/api/v1/posts/"+itoa(id), strings.NewReader(`{}`))
	req.Header.Set("Authorization", authHeader(t, alice))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteHandler_AuthorOnly(t *testing.T) {
	dbtest.New(t)
	alice := seedIdentity(t, "alice")
	bob := seedIdentity(t, "bob")
	mux := newTestRouter()

	id := seedPost(t, alice.UserID, "mine")
	_, err := db.Instance.Exec(`INSERT INTO comments (author_id, post_id, text) VALUES (?, ?, 'nice')`, bob.UserID, id)
	require.NoError(t, err)

	req := httptest.NewRequest("DELETE", "/api/v1/posts/"+itoa(id), nil)
	req.Header.Set("Authorization", authHeader(t, bob))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, 1, countPosts(t))

	req = httptest.NewRequest("DELETE", "/api/v1/posts/"+itoa(id), nil)
	req.Header.Set("Authorization", authHeader(t, alice))
	w = httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, 0, countPosts(t))

	var comments int
	require.NoError(t, db.Instance.QueryRow(`SELECT COUNT(*) FROM comments WHERE post_id = ?`, id).Scan(&comments))
	assert.Equal(t, 0, comments, "comments go with their post")
}

func TestDeleteHandler_KeepsCommentsWhenDeleteFails(t *testing.T) {
	dbtest.New(t)
	alice := seedIdentity(t, "alice")
	mux := newTestRouter()

	id := seedPost(t, alice.UserID, "mine")
	_, err := db.Instance.Exec(`INSERT INTO comments (author_id, post_id, text) VALUES (?, ?, 'nice')`, alice.UserID, id)
	require.NoError(t, err)

	// make the posts delete fail mid-request
	_, err = db.Instance.Exec(`CREATE TRIGGER block_post_delete BEFORE DELETE ON posts BEGIN SELECT RAISE(ABORT, 'blocked'); END`)
	require.NoError(t, err)

	req := httptest.NewRequest("DELETE", "/api/v1/posts/"+itoa(id), nil)
	req.Header.Set("Authorization", authHeader(t, alice))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, 1, countPosts(t))

	var comments int
	require.NoError(t, db.Instance.QueryRow(`SELECT COUNT(*) FROM comments WHERE post_id = ?`, id).Scan(&comments))
	assert.Equal(t, 1, comments, "failed delete leaves the comments in place")
}

func TestUpdateHandler_UnknownGroupRejected(t *testing.T) {
	dbtest.New(t)
	alice := seedIdentity(t, "alice")
	mux := newTestRouter()

	id := seedPost(t, alice.UserID, "original")

	req := httptest.NewRequest("PATCH", "/api/v1/posts/"+itoa(id), strings.NewReader(`{"group":99}`))
	req.Header.Set("Authorization", authHeader(t, alice))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var groupID *int
	require.NoError(t, db.Instance.QueryRow(`SELECT group_id FROM posts WHERE id = ?`, id).Scan(&groupID))
	assert.Nil(t, groupID)
}

func TestUpdateHandler_EmptyTextRejected(t *testing.T) {
	dbtest.New(t)
	alice := seedIdentity(t, "alice")
	mux := newTestRouter()

	id := seedPost(t, alice.UserID, "original")

	req := httptest.NewRequest("PATCH", "/api/v1/posts/"+itoa(id), strings.NewReader(`{"text":""}`))
	req.Header.Set("Authorization", authHeader(t, alice))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var text string
	require.NoError(t, db.Instance.QueryRow(`SELECT text FROM posts WHERE id = ?`, id).Scan(&text))
	assert.Equal(t, "original", text)
}

func TestRetrieveHandler_NotFound(t *testing.T) {
	dbtest.New(t)
	mux := newTestRouter()

	req := httptest.NewRequest("GET", "/api/v1/posts/999", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
