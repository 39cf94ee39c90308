package model

import (
	"time"

	"github.com/google/uuid"
)

// Role: "SALESMAN" | "CLIENT" | "COMPANY"
const (
	RoleSalesman = "SALESMAN"
	RoleClient   = "CLIENT"
	RoleCompany  = "COMPANY"
)

// User is anyone who can log in. Email, phone and CNIC are stored
// normalized and each is unique across users.
type User struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Phone        string    `json:"phone"`
	Email        string    `json:"email"`
	CNIC         string    `json:"cnic"`
	Role         string    `json:"role"`
	PasswordHash string    `json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
}
