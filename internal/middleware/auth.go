package middleware

import (
	"context"
	"errors"
	"strings"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/shinyyama/inventory-backend/internal/apperr"
	"github.com/shinyyama/inventory-backend/internal/logging"
	"github.com/shinyyama/inventory-backend/internal/reqctx"
	"github.com/shinyyama/inventory-backend/internal/service"
)

const (
	ContextKeyIdentity = "identity"
	ContextKeyUserID   = "user_id"
)

var ErrInvalidToken = errors.New("invalid token")

// TokenVerifier turns a bearer token into the identity it vouches for.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (service.Identity, error)
}

type FirebaseVerifier struct {
	client *auth.Client
}

func NewFirebaseVerifier(ctx context.Context, projectID, credentialsFile string) (*FirebaseVerifier, error) {
	if projectID == "" {
		return nil, errors.New("FIREBASE_PROJECT_ID is not set")
	}
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, opts...)
	if err != nil {
		return nil, err
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, err
	}
	return &FirebaseVerifier{client: client}, nil
}

func (v *FirebaseVerifier) Verify(ctx context.Context, token string) (service.Identity, error) {
	t, err := v.client.VerifyIDToken(ctx, token)
	if err != nil {
		return service.Identity{}, errors.Join(ErrInvalidToken, err)
	}
	id := service.Identity{AuthUID: t.UID}
	id.Email, _ = t.Claims["email"].(string)
	id.Name, _ = t.Claims["name"].(string)
	id.Image, _ = t.Claims["picture"].(string)
	return id, nil
}

// Auth guards the API: RequireAuth checks the bearer token and EnsureUser maps
// the identity onto a local user row.
type Auth struct {
	verifier TokenVerifier
	users    service.UserService
	log      *zap.Logger
}

func NewAuth(verifier TokenVerifier, users service.UserService, log *zap.Logger) *Auth {
	if log == nil {
		log = zap.NewNop()
	}
	return &Auth{verifier: verifier, users: users, log: log}
}

func (a *Auth) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		authz := c.Request().Header.Get(echo.HeaderAuthorization)
		if authz == "" || !strings.HasPrefix(authz, "Bearer ") {
			return apperr.Unauthorized("ログインが必要です")
		}
		token := strings.TrimSpace(strings.TrimPrefix(authz, "Bearer "))
		id, err := a.verifier.Verify(c.Request().Context(), token)
		if err != nil {
			logging.FromContext(c.Request().Context(), a.log).Debug("token rejected", zap.Error(err))
			return apperr.Unauthorized("認証情報が無効です")
		}
		c.Set(ContextKeyIdentity, id)
		return next(c)
	}
}

func (a *Auth) EnsureUser(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, ok := c.Get(ContextKeyIdentity).(service.Identity)
		if !ok {
			return apperr.Unauthorized("ログインが必要です")
		}
		u, err := a.users.Ensure(c.Request().Context(), id)
		if err != nil {
			return err
		}
		c.Set(ContextKeyUserID, u.ID)
		c.SetRequest(c.Request().WithContext(reqctx.WithUserID(c.Request().Context(), u.ID)))
		return next(c)
	}
}

// UserID returns the local user id set by EnsureUser, or 0.
func UserID(c echo.Context) uint64 {
	id, _ := c.Get(ContextKeyUserID).(uint64)
	return id
}
