package services

import (
	"context"
	"fmt"

	fbauth "firebase.google.com/go/v4/auth"
	"github.com/sirupsen/logrus"

	"liliapp-bi-service/internal/apperrors"
	"liliapp-bi-service/internal/store"
)

// TokenIssuer is the slice of the Firebase Auth client the login flow
// needs. *auth.Client satisfies it.
type TokenIssuer interface {
	GetUserByEmail(ctx context.Context, email string) (*fbauth.UserRecord, error)
	CustomTokenWithClaims(ctx context.Context, uid string, devClaims map[string]interface{}) (string, error)
}

// LoginResult carries the minted custom token back to the dashboard.
type LoginResult struct {
	CustomToken string `json:"custom_token"`
	UID         string `json:"uid"`
}

// AuthService mints Firebase custom tokens for dashboard logins. Password
// verification happens client-side when the custom token is exchanged for
// an ID token; the backend only proves the account exists and stamps the
// stored role onto the token.
type AuthService struct {
	issuer TokenIssuer
	store  store.Store
	logger *logrus.Entry
}

// NewAuthService creates the login service.
func NewAuthService(issuer TokenIssuer, s store.Store, logger *logrus.Logger) *AuthService {
	return &AuthService{issuer: issuer, store: s, logger: logger.WithField("component", "auth")}
}

// Login resolves the account by email and mints a custom token carrying
// the user's stored role claim.
func (a *AuthService) Login(ctx context.Context, email string) (*LoginResult, error) {
	if email == "" {
		return nil, &apperrors.ValidationError{Msg: "email is required"}
	}

	record, err := a.issuer.GetUserByEmail(ctx, email)
	if err != nil {
		if fbauth.IsUserNotFound(err) {
			return nil, &apperrors.NotFoundError{Collection: "auth_users", ID: email}
		}
		return nil, fmt.Errorf("looking up %s: %w", email, err)
	}

	claims := map[string]interface{}{"role": a.roleFor(ctx, record.UID)}
	token, err := a.issuer.CustomTokenWithClaims(ctx, record.UID, claims)
	if err != nil {
		return nil, fmt.Errorf("minting token for %s: %w", record.UID, err)
	}

	a.logger.WithField("uid", record.UID).Info("custom token issued")
	return &LoginResult{CustomToken: token, UID: record.UID}, nil
}

// roleFor reads the stored user document's role. Accounts without a
// stored document get the default role.
func (a *AuthService) roleFor(ctx context.Context, uid string) string {
	doc, err := a.store.GetDocument(ctx, "users", uid)
	if err != nil {
		return "customer"
	}
	if role, ok := doc["role"].(string); ok && role != "" {
		return role
	}
	return "customer"
}
