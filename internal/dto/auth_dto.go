package dto

// ─── Request DTOs ────────────────────────────────────────────────────────────

type RegisterRequest struct {
	Name     string `json:"name"     validate:"required,min=2,max=100"`
	Phone    string `json:"phone"    validate:"required,min=11"`
	Email    string `json:"email"    validate:"required,email"`
	CNIC     string `json:"cnic"     validate:"required,cnic"`
	Password string `json:"password" validate:"required,min=6"`
	Role     string `json:"role"     validate:"required,oneof=SALESMAN CLIENT COMPANY"`
}

// LoginRequest accepts email, phone or CNIC as Identifier.
type LoginRequest struct {
	Identifier string `json:"identifier" validate:"required,min=1"`
	Password   string `json:"password"   validate:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password"     validate:"required,min=6"`
}

type RecoveryVerifyRequest struct {
	Email string `json:"email" validate:"required,email"`
	Phone string `json:"phone" validate:"required"`
}

type ResetPasswordRequest struct {
	Email       string `json:"email"        validate:"required,email"`
	Phone       string `json:"phone"        validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=6"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type UserResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
	CNIC  string `json:"cnic"`
	Role  string `json:"role"`
}

type LoginResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	TokenType    string       `json:"token_type"`
	ExpiresIn    int          `json:"expires_in"` // seconds
	User         UserResponse `json:"user"`
}
