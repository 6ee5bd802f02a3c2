package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/warp/occupancy-engine/logging"
	"github.com/warp/occupancy-engine/occupancy"
)

type operatorKey struct{}

// OperatorAuth validates HMAC-signed bearer tokens. The token subject is the
// operator performing the request.
type OperatorAuth struct {
	secret []byte
	issuer string
}

func NewOperatorAuth(secret, issuer string) *OperatorAuth {
	return &OperatorAuth{secret: []byte(secret), issuer: issuer}
}

// IssueToken signs a token for operator valid for ttl.
func (a *OperatorAuth) IssueToken(operator occupancy.OperatorID, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   string(operator),
		Issuer:    a.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// Middleware rejects requests without a valid token with 401 and stores the
// operator in the request context.
func (a *OperatorAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := logging.FromContext(r.Context())

		header := r.Header.Get("Authorization")
		if header == "" {
			writeError(w, http.StatusUnauthorized, "Authorization header required", nil)
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			writeError(w, http.StatusUnauthorized, "Authorization header format must be Bearer {token}", nil)
			return
		}

		operator, err := a.parse(parts[1])
		if err != nil {
			logger.Warn("invalid token", "error", err)
			msg := "Invalid token"
			if errors.Is(err, jwt.ErrTokenExpired) {
				msg = "Token has expired"
			}
			writeError(w, http.StatusUnauthorized, msg, nil)
			return
		}

		ctx := context.WithValue(r.Context(), operatorKey{}, operator)
		ctx = logging.WithContext(ctx, logger.With(slog.String("operator_id", string(operator))))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (a *OperatorAuth) parse(tokenString string) (occupancy.OperatorID, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}, opts...)
	if err != nil {
		return "", err
	}
	if !token.Valid || claims.Subject == "" {
		return "", fmt.Errorf("token has no subject")
	}
	return occupancy.OperatorID(claims.Subject), nil
}

// OperatorFromContext returns the authenticated operator, or "" outside an
// authenticated request.
func OperatorFromContext(ctx context.Context) occupancy.OperatorID {
	op, _ := ctx.Value(operatorKey{}).(occupancy.OperatorID)
	return op
}
