package tscproto

type CredentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type TokenResponse struct {
	Token string `json:"token"`
}

type MeResponse struct {
	User Identity `json:"user"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
