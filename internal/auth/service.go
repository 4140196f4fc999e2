package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	pkgAuth "github.com/angelmondragon/domiciliarios-backend/pkg/auth"
	"github.com/angelmondragon/domiciliarios-backend/pkg/auth/session"
	"github.com/angelmondragon/domiciliarios-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/domiciliarios-backend/pkg/errors"
	"github.com/angelmondragon/domiciliarios-backend/pkg/strapi"
)

const invalidCredentialsMessage = "invalid credentials"

// Service defines the behavior needed by the auth controller.
type Service interface {
	Login(ctx context.Context, req LoginRequest) (*LoginResponse, error)
	Logout(ctx context.Context, accessID string) error
}

// cmsAuthenticator is the part of the data API client that verifies credentials.
type cmsAuthenticator interface {
	Login(ctx context.Context, identifier, password string) (*strapi.LoginResult, error)
	Me(ctx context.Context, token string) (*strapi.User, error)
}

type sessionManager interface {
	Create(ctx context.Context, sess session.Session) (*session.Session, error)
	Revoke(ctx context.Context, accessID string) error
}

// ServiceParams bundles the dependencies required to build an auth service.
type ServiceParams struct {
	CMS            cmsAuthenticator
	SessionManager sessionManager
	JWTConfig      config.JWTConfig
	Now            func() time.Time
}

type service struct {
	cms     cmsAuthenticator
	session sessionManager
	jwtCfg  config.JWTConfig
	now     func() time.Time
}

// NewService constructs a login service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.CMS == nil {
		return nil, fmt.Errorf("cms client is required")
	}
	if params.SessionManager == nil {
		return nil, fmt.Errorf("session manager is required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		cms:     params.CMS,
		session: params.SessionManager,
		jwtCfg:  params.JWTConfig,
		now:     now,
	}, nil
}

// Login verifies the credentials against the CMS, stores the CMS token in a server-side
// session and returns a backend JWT whose jti addresses that session.
func (s *service) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	identifier := strings.TrimSpace(req.Identifier)
	if identifier == "" || req.Password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}

	result, err := s.cms.Login(ctx, identifier, req.Password)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		return nil, err
	}
	if result.User.Blocked {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "user is blocked")
	}

	// the login response does not expand the role
	user, err := s.cms.Me(ctx, result.JWT)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cms user")
	}
	if user.Blocked {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "user is blocked")
	}
	role, err := roleFromCMS(user.Role)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeForbidden, err, "user role is not allowed")
	}

	sess, err := s.session.Create(ctx, session.Session{
		ID:       session.NewAccessID(),
		UserID:   user.ID,
		Username: user.Username,
		Email:    user.Email,
		Role:     role,
		CMSToken: result.JWT,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store session")
	}

	accessToken, err := pkgAuth.MintAccessToken(s.jwtCfg, s.now().UTC(), pkgAuth.AccessTokenPayload{
		UserID:   sess.UserID,
		Username: sess.Username,
		Role:     sess.Role,
		JTI:      sess.ID,
	})
	if err != nil {
		_ = s.session.Revoke(ctx, sess.ID)
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}

	return &LoginResponse{
		AccessToken: accessToken,
		ExpiresAt:   sess.ExpiresAt,
		User:        FromSession(sess),
	}, nil
}

// Logout revokes the session. The JWT itself stays valid until expiry but no longer
// resolves to a CMS token.
func (s *service) Logout(ctx context.Context, accessID string) error {
	if strings.TrimSpace(accessID) == "" {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session")
	}
	if err := s.session.Revoke(ctx, accessID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke session")
	}
	return nil
}
