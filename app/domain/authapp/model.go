package authapp

import (
	"encoding/json"
)

// Token is a freshly issued token and the claims version it carries.
type Token struct {
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	Token        string `json:"token"`
	WorkspaceID  string `json:"workspaceId"`
	ClaimVersion int    `json:"claimVersion"`
}

// Encode implements the web.Encoder interface.
func (t Token) Encode() ([]byte, string, error) {
	data, err := json.Marshal(t)
	return data, "application/json", err
}
