package models

import "time"

// User represents an application user (mapped from Keycloak claims).
// Petals and Runes are the soft-currency balances; both are kept non-negative
// by the economy store and must only be mutated through it.
type User struct {
	ID        int64     `json:"id"`
	Sub       string    `json:"sub"` // OIDC subject
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Petals    int64     `json:"petals"`
	Runes     int64     `json:"runes"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
