package models

// User is an account record held by the remote service. Passwords never
// leave that service.
type User struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
	IsAdmin bool   `json:"isAdmin"`
}

// AuthResult is the answer to a password login.
type AuthResult struct {
	Token  string `json:"token"`
	Record User   `json:"record"`
}
