package post

// Post model aligned with schema. Author is serialized as a username.
type Post struct {
	ID      int     `json:"id"`
	Author  string  `json:"author"`
	Text    string  `json:"text"`
	PubDate string  `json:"pub_date"`
	Image   *string `json:"image"`
	Group   *int    `json:"group"`
}

// CreateRequest carries the client-writable fields; the author is always
// injected from the acting identity, never taken from the payload.
type CreateRequest struct {
	Text  string `json:"text" validate:"required"`
	Group *int   `json:"group"`
}
