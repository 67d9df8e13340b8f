package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shrdaa/backend/internal/models"
)

// TokenClaims are the claims of a session token. The registered ID (jti)
// names the token in the revocation blacklist.
type TokenClaims struct {
	AccountNo string      `json:"account_no"`
	Role      models.Role `json:"role"`
	jwt.RegisteredClaims
}

type AuthService struct {
	ledger *LedgerService
	redis  *redis.Client
	secret []byte
	expiry time.Duration
	logger *slog.Logger
	now    func() time.Time
}

// NewAuthService creates the session service. redisClient may be nil, in
// which case logout cannot revoke tokens before they expire.
func NewAuthService(ledger *LedgerService, redisClient *redis.Client, secretKey string, expiry time.Duration, logger *slog.Logger) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{
		ledger: ledger,
		redis:  redisClient,
		secret: []byte(secretKey),
		expiry: expiry,
		logger: logger.With("module", "auth"),
		now:    time.Now,
	}
}

func blacklistKey(tokenID string) string {
	return fmt.Sprintf("blacklist:%s", tokenID)
}

// Login checks the password of accountNo and issues a session token.
func (s *AuthService) Login(ctx context.Context, accountNo, password string) (string, models.Account, error) {
	acc, err := s.ledger.Authenticate(ctx, accountNo, password)
	if err != nil {
		s.logger.Info("Login failed", "account_no", accountNo, "error", err)
		return "", models.Account{}, err
	}

	token, err := s.generateToken(acc)
	if err != nil {
		return "", models.Account{}, fmt.Errorf("generating token: %w", err)
	}

	s.logger.Info("Login successful", "account_no", acc.AccountNo, "role", acc.Role())
	return token, acc, nil
}

func (s *AuthService) generateToken(acc models.Account) (string, error) {
	now := s.now()
	claims := TokenClaims{
		AccountNo: acc.AccountNo,
		Role:      acc.Role(),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   acc.AccountNo,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiry)),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func (s *AuthService) parseClaims(ctx context.Context, tokenString string) (*TokenClaims, error) {
	claims := &TokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}

	if claims.ID == "" || claims.AccountNo == "" {
		return nil, fmt.Errorf("%w: token is missing claims", ErrInvalidCredentials)
	}

	if s.redis != nil {
		n, err := s.redis.Exists(ctx, blacklistKey(claims.ID)).Result()
		if err != nil {
			return nil, fmt.Errorf("checking token blacklist: %w", err)
		}
		if n > 0 {
			return nil, ErrTokenRevoked
		}
	}

	return claims, nil
}

// ParseToken validates a session token and returns the session it carries.
func (s *AuthService) ParseToken(ctx context.Context, tokenString string) (models.Session, error) {
	claims, err := s.parseClaims(ctx, tokenString)
	if err != nil {
		return models.Session{}, err
	}

	return models.Session{
		AccountNo: claims.AccountNo,
		Role:      claims.Role,
		TokenID:   claims.ID,
	}, nil
}

// Logout blacklists the token until it would have expired anyway.
func (s *AuthService) Logout(ctx context.Context, tokenString string) error {
	claims, err := s.parseClaims(ctx, tokenString)
	if err != nil {
		return err
	}

	if s.redis == nil {
		s.logger.Warn("Redis unavailable, token stays valid until expiry", "account_no", claims.AccountNo)
		return nil
	}

	ttl := claims.ExpiresAt.Time.Sub(s.now())
	if ttl <= 0 {
		return nil
	}

	if err := s.redis.Set(ctx, blacklistKey(claims.ID), "1", ttl).Err(); err != nil {
		return fmt.Errorf("blacklisting token: %w", err)
	}

	s.logger.Info("Logout successful", "account_no", claims.AccountNo)
	return nil
}

// AuthorizeTransaction re-checks the session holder's password before a
// transfer is submitted on their behalf.
func (s *AuthService) AuthorizeTransaction(ctx context.Context, session models.Session, password string) error {
	if _, err := s.ledger.Authenticate(ctx, session.AccountNo, password); err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			s.logger.Warn("Transaction password check failed", "account_no", session.AccountNo)
		}
		return err
	}
	return nil
}
