package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/ecocycle/ewaste-api/internal/models"
	appErrors "github.com/ecocycle/ewaste-api/pkg/errors"
)

type authProfileRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.Profile, error)
	FindByID(ctx context.Context, id string) (*models.Profile, error)
	Create(ctx context.Context, profile *models.Profile) error
}

// AuthConfig defines configuration for authentication flows.
type AuthConfig struct {
	AccessTokenSecret string
	AccessTokenExpiry time.Duration
	Issuer            string
	Audience          []string
}

// AuthService provides registration, login and token validation.
type AuthService struct {
	repo      authProfileRepository
	validator *validator.Validate
	logger    *zap.Logger
	config    AuthConfig
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(repo authProfileRepository, validate *validator.Validate, logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = newRequestValidator(time.Now)
	}
	if config.AccessTokenExpiry <= 0 {
		config.AccessTokenExpiry = 24 * time.Hour
	}
	return &AuthService{repo: repo, validator: validate, logger: logger, config: config}
}

// Register creates a profile. Public users are active immediately; collectors
// and recycling centers wait for an administrator.
func (s *AuthService) Register(ctx context.Context, req models.RegisterRequest) (*models.UserInfo, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.FullName = strings.TrimSpace(req.FullName)
	req.Role = models.UserRole(strings.ToUpper(strings.TrimSpace(string(req.Role))))
	if err := validatePayload(s.validator, req); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, internalError(err, "failed to hash password")
	}

	status := models.ProfileStatusPendingApproval
	if req.Role == models.RolePublic {
		status = models.ProfileStatusActive
	}
	profile := &models.Profile{
		Email:        req.Email,
		PasswordHash: string(hash),
		FullName:     req.FullName,
		Role:         req.Role,
		Status:       status,
		Phone:        stringPtr(strings.TrimSpace(req.Phone)),
		Address:      stringPtr(strings.TrimSpace(req.Address)),
		FacilityName: stringPtr(strings.TrimSpace(req.FacilityName)),
	}
	if req.FacilityCapacity > 0 {
		capacity := req.FacilityCapacity
		profile.FacilityCapacity = &capacity
	}

	if err := s.repo.Create(ctx, profile); err != nil {
		if models.StoreErrorKindOf(err) == models.StoreErrorConflict {
			return nil, appErrors.Clone(appErrors.ErrConflict, "email is already registered")
		}
		return nil, internalError(err, "failed to create profile")
	}
	s.logger.Info("profile registered", zap.String("profile_id", profile.ID), zap.String("role", string(profile.Role)))

	info := userInfo(profile)
	return &info, nil
}

// Login authenticates a profile and returns an access token.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := validatePayload(s.validator, req); err != nil {
		return nil, err
	}

	profile, err := s.repo.FindByEmail(ctx, req.Email)
	if err != nil {
		if isNotFound(err) {
			return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid email or password")
		}
		return nil, internalError(err, "failed to fetch profile")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(profile.PasswordHash), []byte(req.Password)); err != nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid email or password")
	}

	if profile.Status != models.ProfileStatusActive {
		return nil, appErrors.Clone(appErrors.ErrInactiveAccount, "account is "+strings.ReplaceAll(string(profile.Status), "_", " "))
	}

	issuedAt := time.Now().UTC()
	accessToken, err := s.generateAccessToken(profile, issuedAt)
	if err != nil {
		return nil, internalError(err, "failed to create access token")
	}

	return &models.LoginResponse{
		AccessToken: accessToken,
		ExpiresIn:   int64(s.config.AccessTokenExpiry.Seconds()),
		IssuedAt:    issuedAt,
		User:        userInfo(profile),
	}, nil
}

// Me returns the profile behind the token.
func (s *AuthService) Me(ctx context.Context, actor *models.JWTClaims) (*models.UserInfo, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	profile, err := s.repo.FindByID(ctx, actor.UserID)
	if err != nil {
		if isNotFound(err) {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "profile no longer exists")
		}
		return nil, internalError(err, "failed to load profile")
	}
	info := userInfo(profile)
	return &info, nil
}

// ValidateToken parses and validates an access token returning the claims.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.AccessTokenSecret), nil
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}

	return claims, nil
}

func (s *AuthService) generateAccessToken(profile *models.Profile, issuedAt time.Time) (string, error) {
	claims := &models.JWTClaims{
		UserID:   profile.ID,
		Role:     profile.Role,
		Email:    profile.Email,
		FullName: profile.FullName,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   profile.ID,
			Audience:  s.config.Audience,
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(s.config.AccessTokenExpiry)),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.AccessTokenSecret))
}

func userInfo(profile *models.Profile) models.UserInfo {
	return models.UserInfo{
		ID:       profile.ID,
		Email:    profile.Email,
		FullName: profile.FullName,
		Role:     profile.Role,
		Status:   profile.Status,
	}
}
