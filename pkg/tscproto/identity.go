package tscproto

// Identity is the authenticated user as announced by the server.
type Identity struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Rating   int    `json:"rating"`
}
