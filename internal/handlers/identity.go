package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/jason-s-yu/baduk/internal/auth"
	"github.com/jason-s-yu/baduk/internal/matchmaking"
)

type claimsKey struct{}

// RequireUser rejects requests without a valid session token. The token is read from an
// "Authorization: Bearer" header, falling back to the auth_token cookie.
func (s *APIServer) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			s.fail(w, r, errUnauthorized)
			return
		}
		claims, err := s.Sessions.Verify(token)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey{}, claims)))
	})
}

func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	if c, err := r.Cookie("auth_token"); err == nil {
		return c.Value
	}
	return ""
}

// claimsFrom returns the identity stored by RequireUser.
func claimsFrom(ctx context.Context) (auth.Claims, bool) {
	c, ok := ctx.Value(claimsKey{}).(auth.Claims)
	return c, ok
}

// player resolves the caller's current nickname and rank from the user directory.
func (s *APIServer) player(r *http.Request) (matchmaking.Player, error) {
	claims, ok := claimsFrom(r.Context())
	if !ok {
		return matchmaking.Player{}, errUnauthorized
	}
	u, err := s.Users.GetByID(r.Context(), claims.UserID)
	if err != nil {
		return matchmaking.Player{}, err
	}
	return matchmaking.Player{
		UserID:    u.ID,
		Nickname:  u.Nickname,
		RankTier:  u.RankTier,
		RankLevel: u.RankLevel,
	}, nil
}
