package connect

import (
	"context"
	"crypto/subtle"

	"connectrpc.com/connect"
	"github.com/cockroachdb/errors"

	"github.com/osa030/wishcard/internal/infra/config"
)

const (
	// AdminTokenHeader is the header name for admin authentication token.
	AdminTokenHeader = "X-Admin-Token"
)

// NewAdminAuthInterceptor creates an interceptor that validates the admin
// token header. Install it only on the AdminService handler.
func NewAdminAuthInterceptor(cfg *config.Config) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			// Extract token from metadata
			token := req.Header().Get(AdminTokenHeader)
			if token == "" {
				return nil, connect.NewError(connect.CodeUnauthenticated, errors.New("missing admin token"))
			}

			// Validate token
			if subtle.ConstantTimeCompare([]byte(token), []byte(cfg.Admin.Token)) != 1 {
				return nil, connect.NewError(connect.CodeUnauthenticated, errors.New("invalid admin token"))
			}

			// Call next handler
			return next(ctx, req)
		}
	}
}
