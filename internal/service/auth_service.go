package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"recovr/internal/config"
	"recovr/internal/dto"
	"recovr/internal/kvstore"
	"recovr/internal/model"
	"recovr/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

// bcryptCost is a var so tests can lower it.
var bcryptCost = 12

const minPasswordLen = 6

type AuthService interface {
	Register(ctx context.Context, req dto.RegisterRequest) (*dto.LoginResponse, error)
	CreateUser(ctx context.Context, req dto.RegisterRequest) (*model.User, error)
	Login(ctx context.Context, req dto.LoginRequest) (*dto.LoginResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*dto.LoginResponse, error)
	ChangePassword(ctx context.Context, userID uuid.UUID, req dto.ChangePasswordRequest) error
	VerifyRecovery(ctx context.Context, req dto.RecoveryVerifyRequest) error
	ResetPassword(ctx context.Context, req dto.ResetPasswordRequest) error
	AdminExists(ctx context.Context) (bool, error)
	Me(ctx context.Context, userID uuid.UUID) (*dto.UserResponse, error)
}

type authService struct {
	repo repository.UserRepository
	cfg  *config.Config
	now  func() time.Time
}

func NewAuthService(repo repository.UserRepository, cfg *config.Config) AuthService {
	return &authService{repo: repo, cfg: cfg, now: time.Now}
}

// HashPassword is shared with the admin CLI.
func HashPassword(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// ── Register ──────────────────────────────────────────────────────────────────

func (s *authService) Register(ctx context.Context, req dto.RegisterRequest) (*dto.LoginResponse, error) {
	user, err := s.CreateUser(ctx, req)
	if err != nil {
		return nil, err
	}
	return s.issueTokens(user)
}

// CreateUser normalizes and stores a new account without issuing tokens.
// The admin CLI seeds the COMPANY account through it.
func (s *authService) CreateUser(ctx context.Context, req dto.RegisterRequest) (*model.User, error) {
	email := NormalizeEmail(req.Email)
	phone := Digits(req.Phone)
	cnic := Digits(req.CNIC)
	if len(cnic) != cnicDigits {
		return nil, ErrInvalidCNIC
	}
	if len(phone) < 11 {
		return nil, ErrInvalidPhone
	}
	if len(req.Password) < minPasswordLen {
		return nil, ErrWeakPassword
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	user := model.User{
		ID:           uuid.New(),
		Name:         strings.TrimSpace(req.Name),
		Phone:        phone,
		Email:        email,
		CNIC:         cnic,
		Role:         req.Role,
		PasswordHash: hash,
		CreatedAt:    s.now().UTC(),
	}

	err = s.repo.Store().Update(ctx, []string{repository.UsersCollection}, func(txn kvstore.Txn) error {
		users, err := s.repo.ListTx(txn)
		if err != nil {
			return err
		}
		for _, u := range users {
			if u.Email == email || u.Phone == phone || u.CNIC == cnic {
				return ErrIdentityTaken
			}
			if user.Role == model.RoleCompany && u.Role == model.RoleCompany {
				return ErrAdminExists
			}
		}
		return s.repo.SaveAllTx(txn, append(users, user))
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("user_id", user.ID.String()).Str("role", user.Role).Msg("user registered")
	return &user, nil
}

// ── Login / Refresh ───────────────────────────────────────────────────────────

func (s *authService) Login(ctx context.Context, req dto.LoginRequest) (*dto.LoginResponse, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	user := findByIdentifier(users, req.Identifier)
	if user == nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return s.issueTokens(user)
}

// findByIdentifier matches an email, or a phone/CNIC once reduced to digits.
func findByIdentifier(users []model.User, identifier string) *model.User {
	email := NormalizeEmail(identifier)
	digits := Digits(identifier)
	for i := range users {
		u := &users[i]
		if u.Email == email {
			return u
		}
		if digits != "" && !strings.Contains(email, "@") && (u.Phone == digits || u.CNIC == digits) {
			return u
		}
	}
	return nil
}

func (s *authService) Refresh(ctx context.Context, refreshToken string) (*dto.LoginResponse, error) {
	claims, err := ParseToken(refreshToken, s.cfg.JWTSecret)
	if err != nil {
		return nil, ErrInvalidToken
	}
	if claims.TokenType != TokenRefresh {
		return nil, ErrInvalidToken
	}
	uid, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, ErrInvalidToken
	}
	user, err := s.repo.FindByID(ctx, uid)
	if err != nil {
		return nil, ErrInvalidToken
	}
	return s.issueTokens(user)
}

func (s *authService) Me(ctx context.Context, userID uuid.UUID) (*dto.UserResponse, error) {
	u, err := s.repo.FindByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	resp := userToResponse(u)
	return &resp, nil
}

// ── Passwords ─────────────────────────────────────────────────────────────────

func (s *authService) ChangePassword(ctx context.Context, userID uuid.UUID, req dto.ChangePasswordRequest) error {
	if len(req.NewPassword) < minPasswordLen {
		return ErrWeakPassword
	}
	hash, err := HashPassword(req.NewPassword)
	if err != nil {
		return err
	}
	return s.updateUser(ctx, func(u *model.User) bool { return u.ID == userID }, ErrUserNotFound, func(u *model.User) error {
		if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.CurrentPassword)) != nil {
			return ErrInvalidCredentials
		}
		u.PasswordHash = hash
		return nil
	})
}

// VerifyRecovery checks that an email and phone belong to the same account.
func (s *authService) VerifyRecovery(ctx context.Context, req dto.RecoveryVerifyRequest) error {
	users, err := s.repo.List(ctx)
	if err != nil {
		return err
	}
	email, phone := NormalizeEmail(req.Email), Digits(req.Phone)
	for _, u := range users {
		if u.Email == email && u.Phone == phone {
			return nil
		}
	}
	return ErrRecoveryMismatch
}

func (s *authService) ResetPassword(ctx context.Context, req dto.ResetPasswordRequest) error {
	if len(req.NewPassword) < minPasswordLen {
		return ErrWeakPassword
	}
	hash, err := HashPassword(req.NewPassword)
	if err != nil {
		return err
	}
	email, phone := NormalizeEmail(req.Email), Digits(req.Phone)
	match := func(u *model.User) bool { return u.Email == email && u.Phone == phone }
	return s.updateUser(ctx, match, ErrRecoveryMismatch, func(u *model.User) error {
		u.PasswordHash = hash
		return nil
	})
}

func (s *authService) AdminExists(ctx context.Context) (bool, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		return false, err
	}
	for _, u := range users {
		if u.Role == model.RoleCompany {
			return true, nil
		}
	}
	return false, nil
}

// updateUser applies mutate to the first user matching match inside a store update.
func (s *authService) updateUser(ctx context.Context, match func(*model.User) bool, notFound error, mutate func(*model.User) error) error {
	return s.repo.Store().Update(ctx, []string{repository.UsersCollection}, func(txn kvstore.Txn) error {
		users, err := s.repo.ListTx(txn)
		if err != nil {
			return err
		}
		for i := range users {
			if match(&users[i]) {
				if err := mutate(&users[i]); err != nil {
					return err
				}
				return s.repo.SaveAllTx(txn, users)
			}
		}
		return notFound
	})
}

// ── Tokens ────────────────────────────────────────────────────────────────────

const (
	TokenAccess  = "access"
	TokenRefresh = "refresh"
)

// Claims is what RECOVR puts in its JWTs.
type Claims struct {
	UserID    string `json:"user_id"`
	Name      string `json:"name"`
	Role      string `json:"role"`
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

// ParseToken validates an HS256 token and returns its claims.
func ParseToken(raw, secret string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

func (s *authService) issueTokens(user *model.User) (*dto.LoginResponse, error) {
	access, err := s.generateToken(user, TokenAccess, time.Duration(s.cfg.JWTExpirationHours)*time.Hour)
	if err != nil {
		return nil, err
	}
	refresh, err := s.generateToken(user, TokenRefresh, time.Duration(s.cfg.JWTRefreshHours)*time.Hour)
	if err != nil {
		return nil, err
	}
	return &dto.LoginResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "bearer",
		ExpiresIn:    s.cfg.JWTExpirationHours * 3600,
		User:         userToResponse(user),
	}, nil
}

func (s *authService) generateToken(user *model.User, tokenType string, ttl time.Duration) (string, error) {
	now := s.now()
	claims := Claims{
		UserID:    user.ID.String(),
		Name:      user.Name,
		Role:      user.Role,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.JWTSecret))
}

func userToResponse(u *model.User) dto.UserResponse {
	return dto.UserResponse{
		ID:    u.ID.String(),
		Name:  u.Name,
		Phone: u.Phone,
		Email: u.Email,
		CNIC:  u.CNIC,
		Role:  u.Role,
	}
}
