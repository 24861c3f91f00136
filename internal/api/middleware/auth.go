package middleware

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/duskpool/dp-indexer/internal/logger"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const (
	AUTH_TYPE_KEY    contextKey = "auth_type"
	AUTH_SUBJECT_KEY contextKey = "auth_subject"
	JWT_CLAIMS_KEY   contextKey = "jwt_claims"
)

const (
	authTypeJWT    = "jwt"
	authTypeAPIKey = "apikey"
)

// AuthConfig holds the credentials the write endpoints accept
type AuthConfig struct {
	JWTPublicKey string // RSA public key in PEM format
	APIKeys      []string
}

// identity describes a successfully authenticated caller
type identity struct {
	authType string
	subject  string
	claims   *jwt.RegisteredClaims
}

// Auth returns a gin middleware accepting either a Bearer JWT signed by the
// configured RSA key or a static API key. On success the caller identity is
// stored on the gin context under the AUTH_* keys.
func Auth(cfg AuthConfig) gin.HandlerFunc {
	apiKeys := make(map[string]struct{}, len(cfg.APIKeys))
	for _, k := range cfg.APIKeys {
		if k != "" {
			apiKeys[k] = struct{}{}
		}
	}

	return func(c *gin.Context) {
		id, err := authenticate(c.GetHeader("Authorization"), cfg.JWTPublicKey, apiKeys)
		if err != nil {
			logger.Warn("Authentication failed",
				zap.Error(err),
				zap.String("path", c.Request.URL.Path),
				zap.String("client_ip", c.ClientIP()),
			)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{
					"code":    "unauthorized",
					"message": "Authentication failed",
					"details": err.Error(),
				},
			})
			return
		}

		c.Set(string(AUTH_TYPE_KEY), id.authType)
		if id.claims != nil {
			c.Set(string(JWT_CLAIMS_KEY), id.claims)
		}
		if id.subject != "" {
			c.Set(string(AUTH_SUBJECT_KEY), id.subject)
		}
		logger.Debug("Authentication successful",
			zap.String("auth_type", id.authType),
			zap.String("path", c.Request.URL.Path),
			zap.String("client_ip", c.ClientIP()),
		)

		c.Next()
	}
}

func authenticate(header, publicKeyPEM string, apiKeys map[string]struct{}) (identity, error) {
	if header == "" {
		return identity{}, errors.New("missing Authorization header")
	}

	scheme, credentials, found := strings.Cut(header, " ")
	if !found {
		return identity{}, errors.New("invalid Authorization header format")
	}

	switch strings.ToLower(scheme) {
	case "bearer":
		claims, err := verifyJWT(credentials, publicKeyPEM)
		if err != nil {
			return identity{}, err
		}
		return identity{authType: authTypeJWT, subject: claims.Subject, claims: claims}, nil

	case "apikey":
		if len(apiKeys) == 0 {
			return identity{}, errors.New("no API keys configured")
		}
		if _, ok := apiKeys[credentials]; !ok {
			return identity{}, errors.New("invalid API key")
		}
		return identity{authType: authTypeAPIKey}, nil

	default:
		return identity{}, fmt.Errorf("unsupported authorization type: %s", scheme)
	}
}

// verifyJWT checks the token signature against the configured RSA key.
// Expiry and not-before claims are enforced by the jwt v5 validator.
func verifyJWT(tokenString, publicKeyPEM string) (*jwt.RegisteredClaims, error) {
	if publicKeyPEM == "" {
		return nil, errors.New("JWT public key not configured")
	}

	publicKey, err := parseRSAPublicKey(publicKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("failed to parse RSA public key: %w", err)
	}

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (interface{}, error) { return publicKey, nil },
		jwt.WithValidMethods([]string{"RS256", "RS384", "RS512"}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	return claims, nil
}

// parseRSAPublicKey decodes a PEM encoded RSA public key in either PKIX or
// PKCS1 form
func parseRSAPublicKey(publicKeyPEM string) (*rsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(publicKeyPEM))
	if block == nil {
		return nil, errors.New("failed to parse PEM block containing public key")
	}

	if pub, err := x509.ParsePKIXPublicKey(block.Bytes); err == nil {
		rsaKey, ok := pub.(*rsa.PublicKey)
		if !ok {
			return nil, errors.New("public key is not an RSA key")
		}
		return rsaKey, nil
	}

	return x509.ParsePKCS1PublicKey(block.Bytes)
}
