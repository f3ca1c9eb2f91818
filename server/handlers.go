package server

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

const claimsContextKey = "sandbox.claims"

type tokenRequest struct {
	GrantType string `form:"grant_type" validate:"required,eq=client_credentials"`
	Scope     string `form:"scope" validate:"omitempty,max=256"`
}

// TokenResponse mirrors the OAuth2 token response body.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
	Scope       string `json:"scope,omitempty"`
}

// Stats is the body of GET /stats.
type Stats struct {
	Issued     int64  `json:"issued"`
	Generation uint64 `json:"generation"`
	Served     int64  `json:"served"`
	Rejected   int64  `json:"rejected"`
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) issueToken(c echo.Context) error {
	id, secret, ok := c.Request().BasicAuth()
	if !ok || !s.validClient(id, secret) {
		c.Response().Header().Set(echo.HeaderWWWAuthenticate, `Basic realm="sandbox"`)
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid client credentials")
	}

	var req tokenRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	token, err := s.issuer.Issue(id, req.Scope)
	if err != nil {
		return err
	}

	s.logger.Debug().
		Str("client_id", id).
		Uint64("generation", s.issuer.Generation()).
		Msg("Issued access token")

	return c.JSON(http.StatusOK, TokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(s.issuer.TTL().Seconds()),
		Scope:       req.Scope,
	})
}

func (s *Server) validClient(id, secret string) bool {
	idOK := subtle.ConstantTimeCompare([]byte(id), []byte(s.cfg.ClientID)) == 1
	secretOK := subtle.ConstantTimeCompare([]byte(secret), []byte(s.cfg.ClientSecret)) == 1
	return idOK && secretOK
}

// requireToken rejects requests without a current bearer token.
func (s *Server) requireToken(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		raw, ok := bearer(c.Request().Header.Get(echo.HeaderAuthorization))
		if !ok {
			return s.reject(c, "missing bearer token")
		}
		claims, err := s.issuer.Verify(raw)
		if err != nil {
			switch {
			case errors.Is(err, ErrRevoked):
				return s.reject(c, "token revoked")
			case errors.Is(err, jwt.ErrTokenExpired):
				return s.reject(c, "token expired")
			default:
				return s.reject(c, "invalid token")
			}
		}
		c.Set(claimsContextKey, claims)
		return next(c)
	}
}

func (s *Server) reject(c echo.Context, reason string) error {
	s.rejected.Add(1)
	c.Response().Header().Set(echo.HeaderWWWAuthenticate, `Bearer error="invalid_token", error_description="`+reason+`"`)
	return echo.NewHTTPError(http.StatusUnauthorized, reason)
}

func bearer(header string) (string, bool) {
	const prefix = "bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}

func (s *Server) resource(c echo.Context) error {
	claims, _ := c.Get(claimsContextKey).(*Claims)
	s.served.Add(1)
	return c.JSON(http.StatusOK, map[string]any{
		"subject":    claims.Subject,
		"generation": claims.Generation,
		"request_id": c.Request().Header.Get(echo.HeaderXRequestID),
	})
}

func (s *Server) expire(c echo.Context) error {
	gen := s.issuer.Revoke()
	s.logger.Info().Uint64("generation", gen).Msg("Revoked outstanding tokens")
	return c.JSON(http.StatusOK, map[string]uint64{"generation": gen})
}

func (s *Server) stats(c echo.Context) error {
	return c.JSON(http.StatusOK, s.Stats())
}

// Stats returns the sandbox counters.
func (s *Server) Stats() Stats {
	return Stats{
		Issued:     s.issuer.Issued(),
		Generation: s.issuer.Generation(),
		Served:     s.served.Load(),
		Rejected:   s.rejected.Load(),
	}
}
