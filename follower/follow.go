package follower

import (
	"database/sql"
	"errors"

	"github.com/mattn/go-sqlite3"

	"yatube/db"
	"yatube/policy"
	"yatube/validate"
)

// Failure modes of the follow pipeline. The HTTP layer collapses all of
// them into one 400 response; callers that need the cause can errors.Is
// against these.
var (
	ErrTargetNotFound = errors.New("following user not found")
	ErrSelfFollow     = errors.New("cannot follow yourself")
	ErrInvalidPayload = errors.New("invalid follow payload")
	ErrDuplicate      = errors.New("already following this user")
)

// Create validates and persists a follow edge for actor. The checks run
// in a fixed order: target resolution, self-follow, payload shape, insert.
// The self-follow check comes before the insert so a repeated self-follow
// attempt is always reported as a self-follow, never as a duplicate.
func Create(actor policy.Identity, req CreateRequest) (Follow, error) {
	var targetID int
	err := db.Instance.QueryRow(`SELECT id FROM users WHERE username = ?`, req.Following).Scan(&targetID)
	if err == sql.ErrNoRows {
		return Follow{}, ErrTargetNotFound
	}
	if err != nil {
		return Follow{}, err
	}

	if targetID == actor.UserID {
		return Follow{}, ErrSelfFollow
	}

	if err := validate.Struct(req); err != nil {
		return Follow{}, ErrInvalidPayload
	}

	// Single atomic insert; concurrent duplicates race at the unique
	// constraint and exactly one wins.
	res, err := db.Instance.Exec(
		`INSERT INTO follows (user_id, following_id) VALUES (?, ?)`,
		actor.UserID, targetID)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return Follow{}, ErrDuplicate
		}
		return Follow{}, err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return Follow{}, err
	}
	return Follow{ID: int(id), User: actor.Username, Following: req.Following}, nil
}

// List returns the edges where actor is the follower, optionally narrowed
// by a substring match on the followed username.
func List(actor policy.Identity, search string) ([]Follow, error) {
	query := `
		SELECT f.id, u.username, t.username
		FROM follows f
		JOIN users u ON f.user_id = u.id
		JOIN users t ON f.following_id = t.id
		WHERE f.user_id = ?`
	args := []interface{}{actor.UserID}

	if search != "" {
		query += ` AND t.username LIKE ?`
		args = append(args, "%"+search+"%")
	}
	query += ` ORDER BY f.id`

	rows, err := db.Instance.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	follows := []Follow{}
	for rows.Next() {
		var f Follow
		if err := rows.Scan(&f.ID, &f.User, &f.Following); err != nil {
			return nil, err
		}
		follows = append(follows, f)
	}
	return follows, rows.Err()
}
