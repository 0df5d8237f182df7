package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/auth"
	"github.com/trezcool/academia/core/session"
)

var (
	msgRegistered = "Registration successful! Please login."
	msgLoggedOut  = "You have been logged out successfully."
)

type authApi struct {
	s *Server
}

func registerAuthAPI(g, authed *echo.Group, s *Server) {
	api := authApi{s: s}

	ag := g.Group("/auth")
	ag.GET("/session", api.session)
	ag.POST("/login", api.login)
	ag.POST("/register", api.register)

	authed.POST("/auth/logout", api.logout)
}

type SessionResponse struct {
	Authenticated bool          `json:"authenticated"`
	Identity      core.Identity `json:"identity"`
	CSRFToken     string        `json:"csrf_token"`
	Flash         string        `json:"flash,omitempty"`
}

func newSessionResponse(sess session.Session, flash string) SessionResponse {
	return SessionResponse{
		Authenticated: sess.Identity.IsAuthenticated(),
		Identity:      sess.Identity,
		CSRFToken:     sess.CSRFToken,
		Flash:         flash,
	}
}

// session tells the client who is logged in and hands it the CSRF token; the flash message is consumed.
func (api *authApi) session(ctx echo.Context) error {
	sess := getContextSession(ctx)
	flash, err := api.s.deps.Sessions.PopFlash(ctx.Request().Context(), sess)
	if err != nil && errors.Cause(err) != session.ErrNotFound {
		return errors.Wrap(err, "popping flash")
	}
	return ctx.JSON(http.StatusOK, newSessionResponse(*sess, flash))
}

func (api *authApi) login(ctx echo.Context) error {
	var creds auth.Credentials
	if err := ctx.Bind(&creds); err != nil {
		return errors.Wrap(err, "binding to Credentials")
	}

	reqCtx := ctx.Request().Context()
	id, err := api.s.deps.Auth.Authenticate(reqCtx, creds)
	if err != nil {
		return err
	}

	sess, err := api.s.deps.Sessions.Login(reqCtx, *getContextSession(ctx), id)
	if err != nil {
		return errors.Wrap(err, "logging in")
	}
	if err = api.s.setSessionCookie(ctx, sess); err != nil {
		return err
	}
	flash, err := api.s.deps.Sessions.PopFlash(reqCtx, &sess)
	if err != nil {
		return errors.Wrap(err, "popping flash")
	}
	return ctx.JSON(http.StatusOK, newSessionResponse(sess, flash))
}

func (api *authApi) register(ctx echo.Context) error {
	var data auth.NewAccount
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAccount")
	}
	if _, err := api.s.deps.Auth.Register(ctx.Request().Context(), data); err != nil {
		return err
	}
	flash(ctx, msgRegistered)
	return ctx.JSON(http.StatusCreated, successResponse{Success: msgRegistered})
}

// logout destroys the session and starts an anonymous one in its place.
func (api *authApi) logout(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	if err := api.s.deps.Sessions.Logout(reqCtx, *getContextSession(ctx)); err != nil {
		return errors.Wrap(err, "logging out")
	}
	sess, err := api.s.deps.Sessions.New(reqCtx)
	if err != nil {
		return errors.Wrap(err, "starting session")
	}
	if err = api.s.setSessionCookie(ctx, sess); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, successResponse{Success: msgLoggedOut})
}
