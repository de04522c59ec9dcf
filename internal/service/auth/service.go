package auth

import (
	"context"
	"fmt"

	"github.com/jwalitptl/intake-api/internal/model"
	"github.com/jwalitptl/intake-api/internal/repository"
	"github.com/jwalitptl/intake-api/pkg/auth"
	apperrors "github.com/jwalitptl/intake-api/pkg/errors"
	"github.com/jwalitptl/intake-api/pkg/security"
)

// Service authenticates reviewer accounts and issues tokens.
type Service struct {
	reviewers repository.ReviewerRepository
	hasher    security.PasswordHasher
	jwt       auth.JWTService
}

func NewService(reviewers repository.ReviewerRepository, hasher security.PasswordHasher, jwt auth.JWTService) *Service {
	return &Service{reviewers: reviewers, hasher: hasher, jwt: jwt}
}

type LoginResult struct {
	Token    string          `json:"token"`
	Reviewer *model.Reviewer `json:"reviewer"`
}

func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	reviewer, err := s.reviewers.GetByEmail(ctx, email)
	if err != nil {
		return nil, apperrors.Unauthorized(err)
	}

	if err := s.hasher.Compare(reviewer.PasswordHash, password); err != nil {
		return nil, apperrors.Unauthorized(err)
	}

	token, err := s.jwt.GenerateToken(reviewer.ID, reviewer.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	return &LoginResult{Token: token, Reviewer: reviewer}, nil
}

func (s *Service) ValidateToken(token string) (*auth.ReviewerClaims, error) {
	claims, err := s.jwt.ValidateToken(token)
	if err != nil {
		return nil, apperrors.Unauthorized(err)
	}
	return claims, nil
}
