package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	githubOAuth "golang.org/x/oauth2/github"

	"github.com/sumire/triage/internal/domain"
)

// UserStore defines the user data access interface consumed by AuthService.
type UserStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	Upsert(ctx context.Context, user domain.User) (*domain.User, error)
}

// AuthConfig holds sign-in configuration.
type AuthConfig struct {
	GoogleClientID     string
	GitHubClientID     string
	GitHubClientSecret string
	JWTSecret          string
}

// AuthService handles social sign-in and JWT issuance. The client completes
// the provider flow itself and posts the resulting credential: a Google ID
// token, or a GitHub authorization code exchanged here.
type AuthService struct {
	users          UserStore
	jwtSecret      []byte
	googleClientID string
	github         *oauth2.Config
	client         *http.Client
}

// NewAuthService creates a new AuthService.
func NewAuthService(users UserStore, cfg AuthConfig) *AuthService {
	return &AuthService{
		users:          users,
		jwtSecret:      []byte(cfg.JWTSecret),
		googleClientID: cfg.GoogleClientID,
		github: &oauth2.Config{
			ClientID:     cfg.GitHubClientID,
			ClientSecret: cfg.GitHubClientSecret,
			Endpoint:     githubOAuth.Endpoint,
			Scopes:       []string{"user:email"},
		},
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// TokenPair holds an access token and refresh token.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// SignIn validates the provider credential, upserts the user and returns a
// fresh token pair.
func (s *AuthService) SignIn(ctx context.Context, medium domain.SignInMedium, credential string) (*domain.User, *TokenPair, error) {
	var candidate domain.User
	switch medium {
	case domain.SignInMediumGoogle:
		info, err := s.validateGoogleIDToken(ctx, credential)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
		}
		candidate = domain.User{
			Medium:      domain.SignInMediumGoogle,
			ProviderID:  info.Sub,
			Email:       info.Email,
			DisplayName: info.Name,
			AvatarURL:   strPtr(info.Picture),
		}
	case domain.SignInMediumGitHub:
		info, err := s.exchangeGitHubCode(ctx, credential)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
		}
		candidate = domain.User{
			Medium:      domain.SignInMediumGitHub,
			ProviderID:  fmt.Sprintf("%d", info.ID),
			Email:       info.Email,
			DisplayName: info.Login,
			AvatarURL:   strPtr(info.AvatarURL),
		}
	default:
		return nil, nil, &domain.ValidationError{Field: "medium", Message: "unsupported sign-in medium"}
	}

	user, err := s.users.Upsert(ctx, candidate)
	if err != nil {
		return nil, nil, fmt.Errorf("upsert %s user: %w", medium, err)
	}

	pair, err := s.generateTokenPair(user.ID)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

// ValidateToken validates a JWT access token and returns the user ID.
func (s *AuthService) ValidateToken(tokenString string) (uuid.UUID, error) {
	claims, err := s.parseClaims(tokenString, "access")
	if err != nil {
		return uuid.Nil, err
	}
	return claims, nil
}

// RefreshAccessToken validates a refresh token and returns a new token pair.
func (s *AuthService) RefreshAccessToken(refreshToken string) (*TokenPair, error) {
	userID, err := s.parseClaims(refreshToken, "refresh")
	if err != nil {
		return nil, err
	}
	return s.generateTokenPair(userID)
}

// GetUser retrieves a user by ID.
func (s *AuthService) GetUser(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	return s.users.FindByID(ctx, userID)
}

func (s *AuthService) parseClaims(tokenString, wantType string) (uuid.UUID, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return uuid.Nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return uuid.Nil, domain.ErrUnauthorized
	}
	tokenType, _ := claims["type"].(string)
	if tokenType != wantType {
		return uuid.Nil, domain.ErrUnauthorized
	}
	sub, _ := claims["sub"].(string)
	userID, err := uuid.Parse(sub)
	if err != nil {
		return uuid.Nil, domain.ErrUnauthorized
	}
	return userID, nil
}

func (s *AuthService) generateTokenPair(userID uuid.UUID) (*TokenPair, error) {
	now := time.Now()

	accessToken := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  userID.String(),
		"type": "access",
		"iat":  now.Unix(),
		"exp":  now.Add(15 * time.Minute).Unix(),
	})
	accessStr, err := accessToken.SignedString(s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	refreshToken := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  userID.String(),
		"type": "refresh",
		"iat":  now.Unix(),
		"exp":  now.Add(7 * 24 * time.Hour).Unix(),
	})
	refreshStr, err := refreshToken.SignedString(s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("sign refresh token: %w", err)
	}

	return &TokenPair{
		AccessToken:  accessStr,
		RefreshToken: refreshStr,
	}, nil
}

type googleTokenInfo struct {
	Sub     string `json:"sub"`
	Aud     string `json:"aud"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// validateGoogleIDToken checks the posted ID token against Google's tokeninfo
// endpoint and confirms it was minted for this application.
func (s *AuthService) validateGoogleIDToken(ctx context.Context, idToken string) (*googleTokenInfo, error) {
	endpoint := "https://oauth2.googleapis.com/tokeninfo?id_token=" + url.QueryEscape(idToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("verify id token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tokeninfo returned status %d", resp.StatusCode)
	}

	var info googleTokenInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("decode tokeninfo: %w", err)
	}
	if info.Aud != s.googleClientID {
		return nil, fmt.Errorf("id token audience mismatch")
	}
	if info.Email == "" {
		return nil, fmt.Errorf("id token carries no email")
	}
	return &info, nil
}

type githubUserInfo struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url"`
}

// exchangeGitHubCode trades the authorization code for an access token and
// fetches the user profile, falling back to the primary email endpoint when
// the profile email is hidden.
func (s *AuthService) exchangeGitHubCode(ctx context.Context, code string) (*githubUserInfo, error) {
	token, err := s.github.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("github token exchange: %w", err)
	}

	info, err := s.fetchGitHubUser(ctx, token.AccessToken)
	if err != nil {
		return nil, err
	}
	if info.Email == "" {
		email, err := s.fetchGitHubPrimaryEmail(ctx, token.AccessToken)
		if err != nil {
			return nil, err
		}
		info.Email = email
	}
	return info, nil
}

func (s *AuthService) fetchGitHubUser(ctx context.Context, accessToken string) (*githubUserInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "https://api.github.com/user", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/vnd.github.v3+json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("github user info returned status %d", resp.StatusCode)
	}

	var info githubUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("decode user info: %w", err)
	}
	return &info, nil
}

type githubEmail struct {
	Email   string `json:"email"`
	Primary bool   `json:"primary"`
}

func (s *AuthService) fetchGitHubPrimaryEmail(ctx context.Context, accessToken string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "https://api.github.com/user/emails", nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/vnd.github.v3+json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch emails: %w", err)
	}
	defer resp.Body.Close()

	var emails []githubEmail
	if err := json.NewDecoder(resp.Body).Decode(&emails); err != nil {
		return "", fmt.Errorf("decode emails: %w", err)
	}

	for _, e := range emails {
		if e.Primary {
			return e.Email, nil
		}
	}
	if len(emails) > 0 {
		return emails[0].Email, nil
	}
	return "", fmt.Errorf("no email found for github user")
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
