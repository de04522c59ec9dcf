package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ReviewerClaims identifies the reviewer behind a review action.
type ReviewerClaims struct {
	ReviewerID uuid.UUID `json:"reviewer_id"`
	Email      string    `json:"email"`
}

type JWTService interface {
	GenerateToken(reviewerID uuid.UUID, email string) (string, error)
	ValidateToken(token string) (*ReviewerClaims, error)
}

type jwtService struct {
	secret []byte
	expiry time.Duration
}

func NewJWTService(secret string, expiry time.Duration) JWTService {
	return &jwtService{secret: []byte(secret), expiry: expiry}
}

func (s *jwtService) GenerateToken(reviewerID uuid.UUID, email string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"reviewer_id": reviewerID.String(),
		"email":       email,
		"iat":         now.Unix(),
		"exp":         now.Add(s.expiry).Unix(),
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

func (s *jwtService) ValidateToken(tokenString string) (*ReviewerClaims, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	rawID, ok := claims["reviewer_id"].(string)
	if !ok {
		return nil, fmt.Errorf("invalid token claims")
	}
	reviewerID, err := uuid.Parse(rawID)
	if err != nil {
		return nil, fmt.Errorf("invalid reviewer id in token: %w", err)
	}
	email, _ := claims["email"].(string)

	return &ReviewerClaims{ReviewerID: reviewerID, Email: email}, nil
}
