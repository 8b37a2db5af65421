package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"site-cms/pkg/models"
	"site-cms/pkg/store"
)

const (
	// TokenCookie carries the signed session token.
	TokenCookie = "payload-token"
	// TokenTTL is how long an issued token stays valid.
	TokenTTL = 2 * time.Hour
)

// Claims identify the user a token was issued to.
type Claims struct {
	Email      string `json:"email"`
	Collection string `json:"collection"`
	jwt.RegisteredClaims
}

// Auth issues and verifies tokens for users.
type Auth struct {
	users  store.Collection[models.User]
	secret []byte
	now    func() time.Time
}

func NewAuth(users store.Collection[models.User], secret string) *Auth {
	return &Auth{users: users, secret: []byte(secret), now: time.Now}
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// CreateUser stores a new user with a hashed password.
func (a *Auth) CreateUser(ctx context.Context, email, name, password string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, fmt.Errorf("email and password are required: %w", ErrInvalidCredentials)
	}
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	user := &models.User{Email: email, Name: name, PasswordHash: hash}
	if err := a.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Login checks the credentials and returns a fresh token.
func (a *Auth) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	user, err := a.users.FindOne(ctx, store.Where{"email": strings.ToLower(strings.TrimSpace(email))})
	if errors.Is(err, store.ErrNotFound) {
		return "", nil, ErrInvalidCredentials
	}
	if err != nil {
		return "", nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return "", nil, ErrInvalidCredentials
	}
	token, err := a.IssueToken(user)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

// LoginWithEmail issues a token for an existing user whose identity was
// verified elsewhere, such as by an OAuth provider.
func (a *Auth) LoginWithEmail(ctx context.Context, email string) (string, *models.User, error) {
	user, err := a.users.FindOne(ctx, store.Where{"email": strings.ToLower(strings.TrimSpace(email))})
	if errors.Is(err, store.ErrNotFound) {
		return "", nil, ErrInvalidCredentials
	}
	if err != nil {
		return "", nil, err
	}
	token, err := a.IssueToken(user)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

func (a *Auth) IssueToken(user *models.User) (string, error) {
	now := a.now()
	claims := Claims{
		Email:      user.Email,
		Collection: models.CollectionUsers,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenTTL)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Me resolves the user behind a token.
func (a *Auth) Me(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, ErrUnauthorized
	}
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return a.secret, nil
	}, jwt.WithTimeFunc(a.now))
	if err != nil || !parsed.Valid {
		return nil, ErrUnauthorized
	}

	user, err := a.users.FindByID(ctx, claims.Subject)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrUnauthorized
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// TokenFromRequest reads the token from the auth cookie or from an
// "Authorization: JWT <token>" or "Bearer <token>" header.
func TokenFromRequest(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && (parts[0] == "JWT" || parts[0] == "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	if cookie, err := r.Cookie(TokenCookie); err == nil {
		return cookie.Value
	}
	return ""
}
