package follower

// Follow is a directed edge from the acting user to another user. Both
// sides are serialized as usernames.
type Follow struct {
	ID        int    `json:"id"`
	User      string `json:"user"`
	Following string `json:"following"`
}

// CreateRequest carries the client-writable part of a follow edge; the
// follower side is always the acting identity.
type CreateRequest struct {
	Following string `json:"following" validate:"required"`
}
