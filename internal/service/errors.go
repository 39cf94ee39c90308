package service

import (
	"errors"
	"fmt"
)

// Registry and ledger errors.
var (
	ErrClientNotFound    = errors.New("client not found")
	ErrInvalidAmounts    = errors.New("enter an invoice amount or a recovery amount")
	ErrNegativeAmount    = errors.New("amounts cannot be negative")
	ErrInvalidCNIC       = errors.New("CNIC must be exactly 13 digits")
	ErrInvalidPhone      = errors.New("phone must be a valid mobile number (03XXXXXXXXX)")
	ErrShopNameTooShort  = errors.New("shop name must be at least 4 characters")
	ErrDuplicateIdentity = errors.New("CNIC is already registered to another shop")
	ErrNoClientProfile   = errors.New("no shop is linked to this account")
)

// Account errors.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrUserNotFound       = errors.New("user not found")
	ErrIdentityTaken      = errors.New("email, phone or CNIC is already registered")
	ErrAdminExists        = errors.New("a company administrator already exists")
	ErrRecoveryMismatch   = errors.New("email and phone do not match any account")
	ErrWeakPassword       = errors.New("password must be at least 6 characters")
)

// ErrAssistantUnavailable is returned when no AI provider is configured.
var ErrAssistantUnavailable = errors.New("assistant is not configured")

// DuplicateIdentityError names the shop that already owns a CNIC.
type DuplicateIdentityError struct {
	ShopName string
}

func (e *DuplicateIdentityError) Error() string {
	return fmt.Sprintf("CNIC already linked to %q", e.ShopName)
}

func (e *DuplicateIdentityError) Is(target error) bool {
	return target == ErrDuplicateIdentity
}
