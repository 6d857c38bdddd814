package echoapi

import (
	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/e-docBR/colaboraEdu-produc/core/session"
)

const (
	contextTokenKey   = "userToken"
	contextSessionKey = "session"

	roleAluno = "aluno"
)

// newAuthMiddleware verifies the bearer token and puts its session.Session in the context.
// Students are not allowed to read other students' records.
func newAuthMiddleware(secretKey string, sessions *session.Registry) echo.MiddlewareFunc {
	jwtMiddleware := middleware.JWTWithConfig(middleware.JWTConfig{
		SigningKey:    []byte(secretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    contextTokenKey,
		Claims:        new(session.Claims),
	})

	sessionMiddleware := func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			token, ok := ctx.Get(contextTokenKey).(*jwt.Token)
			if !ok {
				return errUnauthorized
			}
			claims, ok := token.Claims.(*session.Claims)
			if !ok {
				return errUnauthorized
			}

			sess, err := sessions.Add(session.FromClaims(token.Raw, claims))
			if err != nil {
				return sessionError(err)
			}
			for _, role := range sess.Roles {
				if role == roleAluno {
					return errHTTPForbidden
				}
			}

			ctx.Set(contextSessionKey, sess)
			return next(ctx)
		}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return jwtMiddleware(sessionMiddleware(next))
	}
}

func getContextSession(ctx echo.Context) (session.Session, error) {
	if sess, ok := ctx.Get(contextSessionKey).(session.Session); ok {
		return sess, nil
	}
	return session.Session{}, errors.WithStack(errUnauthorized)
}
