package auth

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrAlreadyExists = errors.New("already exists")
	ErrNotFound      = errors.New("not found")
)

const tokenTTL = 24 * time.Hour

type Service struct {
	store  AccountStore
	secret []byte
}

func NewService(db *sql.DB, secret []byte) *Service {
	return &Service{store: NewStore(db), secret: secret}
}

func (s *Service) Login(ctx context.Context, id, password string) (string, error) {
	acct, err := s.store.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	if acct == nil {
		return "", errors.New("authentication failed")
	}
	if acct.IsDisabled {
		return "", errors.New("account disabled")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(password)); err != nil {
		return "", errors.New("authentication failed")
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  acct.ID,
		"role": acct.Role,
		"exp":  time.Now().Add(tokenTTL).Unix(),
	})

	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		return "", err
	}
	return tokenString, nil
}

func (s *Service) Register(ctx context.Context, id, password, role string) error {
	exists, err := s.store.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if exists != nil {
		return ErrAlreadyExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	return s.store.Create(ctx, &Account{
		ID:           id,
		PasswordHash: string(hash),
		Role:         role,
		IsDisabled:   false,
	})
}

func (s *Service) Delete(ctx context.Context, id string) error {
	n, err := s.store.Delete(ctx, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
