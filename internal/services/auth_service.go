package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"tourbackend/internal/domain"
	"tourbackend/internal/domain/models"
	"tourbackend/internal/utils"
)

const minPasswordLen = 8

type RegisterInput struct {
	FirstName  string
	LastName   string
	Patronymic string
	Email      string
	Password   string
	BirthDate  string
}

// AuthService registers users, checks credentials and issues HS256 bearer
// tokens carrying user_id and role.
type AuthService struct {
	Store     TxRunner
	Users     UserRepository
	Secret    []byte
	TTL       time.Duration
	Now       func() time.Time
	RequestID string
}

func (s AuthService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s AuthService) Register(ctx context.Context, in RegisterInput) (string, models.User, error) {
	u := models.User{
		FirstName:  strings.TrimSpace(in.FirstName),
		LastName:   strings.TrimSpace(in.LastName),
		Patronymic: strings.TrimSpace(in.Patronymic),
		Email:      strings.ToLower(strings.TrimSpace(in.Email)),
	}
	required := []struct{ field, value string }{
		{"first_name", u.FirstName},
		{"last_name", u.LastName},
		{"email", u.Email},
	}
	for _, r := range required {
		if r.value == "" {
			return "", models.User{}, domain.ValidationError{Field: r.field, Msg: "is required"}
		}
		if utf8.RuneCountInString(r.value) > 255 {
			return "", models.User{}, domain.ValidationError{Field: r.field, Msg: "must not exceed 255 characters"}
		}
	}
	if !strings.Contains(u.Email, "@") {
		return "", models.User{}, domain.ValidationError{Field: "email", Msg: "must be a valid email address"}
	}
	if utf8.RuneCountInString(in.Password) < minPasswordLen {
		return "", models.User{}, domain.ValidationError{Field: "password", Msg: "must be at least 8 characters"}
	}
	birth, err := utils.ParseDate(in.BirthDate)
	if err != nil {
		return "", models.User{}, domain.ValidationError{Field: "birth_date", Msg: "must be a date in YYYY-MM-DD format", Err: err}
	}
	if birth.After(s.now()) {
		return "", models.User{}, domain.ValidationError{Field: "birth_date", Msg: "must be in the past"}
	}
	u.BirthDate = birth

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return "", models.User{}, domain.InternalError{Msg: "hash password failed", Err: err}
	}
	u.PasswordHash = string(hash)

	id, err := s.Users.Create(ctx, s.Store.Reader(), u)
	if err != nil {
		if domain.IsConflict(err) {
			return "", models.User{}, domain.ValidationError{Field: "email", Msg: "has already been taken", Err: err}
		}
		return "", models.User{}, err
	}
	u.ID = id
	u.CreatedAt = s.now()
	u.UpdatedAt = u.CreatedAt

	token, err := s.IssueToken(u)
	if err != nil {
		return "", models.User{}, err
	}
	utils.LogEvent(s.RequestID, "auth", "register", fmt.Sprintf("user_id=%d", id))
	return token, u, nil
}

func (s AuthService) Login(ctx context.Context, email, password string) (string, models.User, error) {
	u, err := s.Users.GetByEmail(ctx, s.Store.Reader(), email)
	if err != nil {
		if domain.IsNotFound(err) {
			return "", models.User{}, domain.AuthenticationError{Msg: "invalid email or password"}
		}
		return "", models.User{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return "", models.User{}, domain.AuthenticationError{Msg: "invalid email or password"}
	}
	token, err := s.IssueToken(u)
	if err != nil {
		return "", models.User{}, err
	}
	utils.LogEvent(s.RequestID, "auth", "login", fmt.Sprintf("user_id=%d", u.ID))
	return token, u, nil
}

func (s AuthService) Me(ctx context.Context, who domain.Identity) (models.User, error) {
	if !who.Authenticated() {
		return models.User{}, domain.AuthenticationError{}
	}
	u, err := s.Users.GetByID(ctx, s.Store.Reader(), who.UserID)
	if domain.IsNotFound(err) {
		return models.User{}, domain.AuthenticationError{Msg: "user no longer exists", Err: err}
	}
	return u, err
}

func (s AuthService) IssueToken(u models.User) (string, error) {
	ttl := s.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": u.ID,
		"role":    u.Role(),
		"exp":     s.now().Add(ttl).Unix(),
	})
	signed, err := token.SignedString(s.Secret)
	if err != nil {
		return "", domain.InternalError{Msg: "sign token failed", Err: err}
	}
	return signed, nil
}

// ParseToken validates a bearer token and returns the identity it carries.
func (s AuthService) ParseToken(raw string) (domain.Identity, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return s.Secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now), jwt.WithExpirationRequired())
	if err != nil {
		return domain.Identity{}, domain.AuthenticationError{Msg: "invalid or expired token", Err: err}
	}

	uid, ok := claims["user_id"].(float64)
	if !ok || uid <= 0 {
		return domain.Identity{}, domain.AuthenticationError{Msg: "invalid token claims", Err: errors.New("user_id missing")}
	}
	role, _ := claims["role"].(string)
	if role != domain.RoleAdmin {
		role = domain.RoleUser
	}
	return domain.Identity{UserID: int64(uid), Role: role}, nil
}
