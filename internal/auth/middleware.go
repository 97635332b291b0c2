package auth

import (
	"context"

	"github.com/gin-gonic/gin"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

// Gin rejects requests without a valid bearer token and stores the user id on
// the request context.
func (v *Verifier) Gin() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := BearerToken(c.GetHeader("Authorization"))
		if !ok {
			c.AbortWithStatusJSON(ErrUnauthenticated.HTTPStatusCode(), ErrUnauthenticated)
			return
		}

		id, err := v.Verify(token)
		if err != nil {
			c.AbortWithStatusJSON(ErrUnauthenticated.HTTPStatusCode(), ErrUnauthenticated)
			return
		}

		c.Request = c.Request.WithContext(WithUserID(c.Request.Context(), id))
		c.Next()
	}
}

// UnaryServerInterceptor is the gRPC counterpart of Gin, reading the authorization metadata.
func (v *Verifier) UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, _ *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		md, _ := metadata.FromIncomingContext(ctx)

		var header string
		if vs := md.Get("authorization"); len(vs) > 0 {
			header = vs[0]
		}

		token, ok := BearerToken(header)
		if !ok {
			return nil, ErrUnauthenticated
		}

		id, err := v.Verify(token)
		if err != nil {
			return nil, err
		}

		return handler(WithUserID(ctx, id), req)
	}
}
