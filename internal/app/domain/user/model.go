package user

import "time"

// User is a registered account. The password is only ever stored hashed.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}
