package comment

// Comment model aligned with schema. Author is serialized as a username,
// the parent post as its id.
type Comment struct {
	ID      int    `json:"id"`
	Author  string `json:"author"`
	Post    int    `json:"post"`
	Text    string `json:"text"`
	Created string `json:"created"`
}

// CreateRequest carries the client-writable part of a comment; author and
// post are injected from the identity and the URL path.
type CreateRequest struct {
	Text string `json:"text" validate:"required"`
}
