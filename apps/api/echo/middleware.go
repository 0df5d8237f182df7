package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/access"
	"github.com/trezcool/academia/core/session"
)

var (
	contextSessionKey = "session"
	contextFlashKey   = "flash"

	csrfHeader    = "X-CSRF-Token"
	csrfFormField = "csrf_token"
)

func getContextSession(ctx echo.Context) *session.Session {
	if sess, ok := ctx.Get(contextSessionKey).(*session.Session); ok {
		return sess
	}
	return &session.Session{}
}

// getContextIdentity returns the caller, core.Anonymous outside of a session.
func getContextIdentity(ctx echo.Context) core.Identity {
	return getContextSession(ctx).Identity
}

func (s *Server) setSessionCookie(ctx echo.Context, sess session.Session) error {
	name := s.conf.Session.CookieName
	encoded, err := s.cookies.Encode(name, sess.ID)
	if err != nil {
		return errors.Wrap(err, "encoding session cookie")
	}
	ctx.SetCookie(&http.Cookie{
		Name:     name,
		Value:    encoded,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.conf.Session.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	ctx.Set(contextSessionKey, &sess)
	return nil
}

// sessionMiddleware loads the session of the signed cookie, starting a new anonymous one when there is none.
func (s *Server) sessionMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		name := s.conf.Session.CookieName
		var id string
		if cookie, err := ctx.Cookie(name); err == nil {
			if err = s.cookies.Decode(name, cookie.Value, &id); err != nil {
				id = "" // tampered or signed with another key
			}
		}

		sess, err := s.deps.Sessions.Load(ctx.Request().Context(), id)
		if err != nil {
			return errors.Wrap(err, "loading session")
		}
		if sess.ID != id {
			if err = s.setSessionCookie(ctx, sess); err != nil {
				return err
			}
		} else {
			ctx.Set(contextSessionKey, &sess)
		}
		return next(ctx)
	}
}

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

// csrfMiddleware rejects mutating requests that do not echo the CSRF token of the session.
func (s *Server) csrfMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		if isSafeMethod(ctx.Request().Method) {
			return next(ctx)
		}
		token := ctx.Request().Header.Get(csrfHeader)
		if token == "" {
			token = ctx.FormValue(csrfFormField)
		}
		if err := s.deps.Sessions.VerifyCSRF(*getContextSession(ctx), token); err != nil {
			return err
		}
		return next(ctx)
	}
}

// authMiddleware requires a logged in session that has not been idle for too long.
// An expired session is replaced by an anonymous one carrying the expiry flash.
func (s *Server) authMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		sess := getContextSession(ctx)
		if !sess.Identity.IsAuthenticated() {
			return errUnauthorized
		}

		reqCtx := ctx.Request().Context()
		err := s.deps.Sessions.Touch(reqCtx, sess)
		if errors.Cause(err) == session.ErrExpired {
			fresh, nErr := s.deps.Sessions.New(reqCtx)
			if nErr != nil {
				return errors.Wrap(nErr, "starting session")
			}
			if nErr = s.deps.Sessions.SetFlash(reqCtx, &fresh, session.ErrExpired.Error()); nErr != nil {
				return errors.Wrap(nErr, "setting flash")
			}
			if nErr = s.setSessionCookie(ctx, fresh); nErr != nil {
				return nErr
			}
			return echo.NewHTTPError(http.StatusUnauthorized, session.ErrExpired.Error())
		}
		if errors.Cause(err) == session.ErrNotFound { // logged out by a concurrent request
			return errUnauthorized
		}
		if err != nil {
			return errors.Wrap(err, "touching session")
		}
		return next(ctx)
	}
}

// staffMiddleware denies student callers.
func staffMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		if err := access.RequireStaff(getContextIdentity(ctx)); err != nil {
			return err
		}
		return next(ctx)
	}
}

// flash queues a message for the next page the client renders; flashMiddleware stores it.
func flash(ctx echo.Context, msg string) {
	ctx.Set(contextFlashKey, msg)
}

func (s *Server) flashMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		if err := next(ctx); err != nil {
			return err
		}
		msg, ok := ctx.Get(contextFlashKey).(string)
		if !ok || msg == "" {
			return nil
		}
		err := s.deps.Sessions.SetFlash(ctx.Request().Context(), getContextSession(ctx), msg)
		if err != nil && errors.Cause(err) != session.ErrNotFound {
			s.logger.Error("setting flash", errors.Wrap(err, "setting flash"), getContextIdentity(ctx))
		}
		return nil
	}
}
