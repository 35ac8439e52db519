package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aproko/clinic-api/internal/model"
	"github.com/aproko/clinic-api/internal/repository"
	"github.com/aproko/clinic-api/pkg/auth"
	apperrors "github.com/aproko/clinic-api/pkg/errors"
	"github.com/aproko/clinic-api/pkg/security"
)

// Service handles self-service patient signup and credential exchange for
// every role. Doctor and admin accounts are provisioned elsewhere; only
// patients register themselves.
type Service struct {
	users    repository.UserRepository
	patients repository.PatientRepository
	doctors  repository.DoctorRepository
	hasher   security.PasswordHasher
	jwt      auth.JWTService
	logger   zerolog.Logger
}

func NewService(
	users repository.UserRepository,
	patients repository.PatientRepository,
	doctors repository.DoctorRepository,
	hasher security.PasswordHasher,
	jwt auth.JWTService,
	logger zerolog.Logger,
) *Service {
	return &Service{
		users:    users,
		patients: patients,
		doctors:  doctors,
		hasher:   hasher,
		jwt:      jwt,
		logger:   logger,
	}
}

// RegisterPatient creates the login account and the patient profile in one
// transaction. A duplicate email surfaces as Conflict from the repository.
func (s *Service) RegisterPatient(ctx context.Context, req *model.RegisterRequest) (*model.TokenResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, apperrors.InvalidInput("password does not meet requirements", err)
	}

	user := &model.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: hash,
		Role:         model.RolePatient,
		CreatedAt:    time.Now(),
	}
	patient := &model.Patient{
		ID:        uuid.New(),
		UserID:    user.ID,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	}
	if req.Phone != "" {
		patient.Phone = &req.Phone
	}

	if err := s.patients.CreateWithUser(ctx, user, patient); err != nil {
		return nil, err
	}

	s.logger.Info().Str("user_id", user.ID.String()).Msg("patient registered")
	return s.issueTokens(user, patient.FirstName+" "+patient.LastName)
}

// Login exchanges credentials for a token pair. Bad email and bad password
// produce the same error so the endpoint does not leak which one was wrong.
func (s *Service) Login(ctx context.Context, req *model.LoginRequest) (*model.TokenResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.Unauthorized("invalid email or password", nil)
		}
		return nil, err
	}

	if err := s.hasher.Compare(user.PasswordHash, req.Password); err != nil {
		return nil, apperrors.Unauthorized("invalid email or password", nil)
	}

	if err := s.users.UpdateLastLogin(ctx, user.ID, time.Now()); err != nil {
		// Login still succeeds; the timestamp is best-effort.
		s.logger.Warn().Err(err).Str("user_id", user.ID.String()).Msg("failed to record last login")
	}

	return s.issueTokens(user, s.displayName(ctx, user))
}

// Refresh trades a valid refresh token for a fresh pair.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*model.TokenResponse, error) {
	claims, err := s.jwt.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, apperrors.Unauthorized("invalid refresh token", err)
	}

	// Re-read the account so a deleted or repurposed user cannot keep
	// minting tokens from an old refresh token.
	user, err := s.users.Get(ctx, claims.UserID)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.Unauthorized("account no longer exists", nil)
		}
		return nil, err
	}

	return s.issueTokens(user, s.displayName(ctx, user))
}

func (s *Service) issueTokens(user *model.User, name string) (*model.TokenResponse, error) {
	access, err := s.jwt.GenerateAccessToken(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}
	refresh, err := s.jwt.GenerateRefreshToken(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	return &model.TokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		UserID:       user.ID,
		Email:        user.Email,
		Role:         user.Role,
		Name:         name,
	}, nil
}

func (s *Service) displayName(ctx context.Context, user *model.User) string {
	switch user.Role {
	case model.RolePatient:
		if p, err := s.patients.GetByUserID(ctx, user.ID); err == nil {
			return p.FirstName + " " + p.LastName
		}
	case model.RoleDoctor:
		if d, err := s.doctors.GetByUserID(ctx, user.ID); err == nil {
			return d.FirstName + " " + d.LastName
		}
	}
	return user.Email
}
