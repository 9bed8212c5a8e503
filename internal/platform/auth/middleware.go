package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

type contextKey string

const accessKey contextKey = "access"

// Claims is the bearer token payload. PatientID is set only for patient-role
// tokens and binds the holder to that one patient.
type Claims struct {
	jwt.RegisteredClaims
	Role      Role   `json:"role"`
	PatientID *int64 `json:"patient_id,omitempty"`
}

type JWTConfig struct {
	Issuer     string
	Audience   string
	SigningKey []byte
	// Skipper bypasses verification, e.g. for health endpoints.
	Skipper func(c echo.Context) bool
}

var (
	errMissingRole    = errors.New("token carries no known role")
	errMissingPatient = errors.New("patient token carries no patient_id")
)

// accessFromClaims validates the role binding and converts claims into an
// AccessContext.
func accessFromClaims(claims *Claims) (AccessContext, error) {
	switch claims.Role {
	case RoleAdmin:
		return AccessContext{Role: RoleAdmin, UserID: claims.Subject}, nil
	case RolePatient:
		if claims.PatientID == nil || *claims.PatientID <= 0 {
			return AccessContext{}, errMissingPatient
		}
		return AccessContext{Role: RolePatient, PatientID: *claims.PatientID, UserID: claims.Subject}, nil
	default:
		return AccessContext{}, errMissingRole
	}
}

// ParseToken verifies an HS256 token and returns its AccessContext.
func ParseToken(cfg JWTConfig, tokenStr string) (AccessContext, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256"})}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return cfg.SigningKey, nil
	}, opts...)
	if err != nil {
		return AccessContext{}, fmt.Errorf("parse token: %w", err)
	}
	if !token.Valid {
		return AccessContext{}, errors.New("parse token: invalid")
	}
	return accessFromClaims(claims)
}

// IssueToken signs a token for the given access context. It backs the
// development "token" command; production tokens come from the identity
// provider sharing the signing key.
func IssueToken(cfg JWTConfig, access AccessContext, ttl time.Duration) (string, error) {
	if len(cfg.SigningKey) == 0 {
		return "", errors.New("signing key is required")
	}
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   access.UserID,
			Issuer:    cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Role: access.Role,
	}
	if cfg.Audience != "" {
		claims.Audience = jwt.ClaimStrings{cfg.Audience}
	}
	if access.Role == RolePatient {
		id := access.PatientID
		claims.PatientID = &id
	}
	if _, err := accessFromClaims(&claims); err != nil {
		return "", err
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(cfg.SigningKey)
}

func bearerToken(c echo.Context) (string, error) {
	authHeader := c.Request().Header.Get("Authorization")
	if authHeader == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization format")
	}
	return strings.TrimSpace(parts[1]), nil
}

// JWTMiddleware verifies the bearer token and stores the resulting
// AccessContext on the request context.
func JWTMiddleware(cfg JWTConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if cfg.Skipper != nil && cfg.Skipper(c) {
				return next(c)
			}
			tokenStr, err := bearerToken(c)
			if err != nil {
				return err
			}
			access, err := ParseToken(cfg, tokenStr)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}
			setAccess(c, access)
			return next(c)
		}
	}
}

// DevAuthMiddleware lets unauthenticated requests through as an admin
// "dev-user". A request that does send a bearer token is verified as usual so
// patient-role behaviour can be exercised locally.
func DevAuthMiddleware(cfg JWTConfig) echo.MiddlewareFunc {
	verify := JWTMiddleware(cfg)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		verified := verify(next)
		return func(c echo.Context) error {
			if c.Request().Header.Get("Authorization") != "" {
				return verified(c)
			}
			setAccess(c, AccessContext{Role: RoleAdmin, UserID: "dev-user"})
			return next(c)
		}
	}
}

func setAccess(c echo.Context, access AccessContext) {
	ctx := WithAccess(c.Request().Context(), access)
	c.SetRequest(c.Request().WithContext(ctx))
}

// WithAccess returns a copy of ctx carrying access.
func WithAccess(ctx context.Context, access AccessContext) context.Context {
	return context.WithValue(ctx, accessKey, access)
}

// AccessFromContext returns the caller's AccessContext. ok is false for
// requests that never passed an auth middleware.
func AccessFromContext(ctx context.Context) (AccessContext, bool) {
	access, ok := ctx.Value(accessKey).(AccessContext)
	return access, ok
}
