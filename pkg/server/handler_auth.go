package server

import (
	"fmt"
	"net/http"

	"github.com/caldera-store/caldera/pkg/auth"
	"github.com/caldera-store/caldera/pkg/server/responses"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const oauthStateKey = "oauth_state"

func (h *Handler) logout(c *gin.Context) {
	if err := auth.Logout(sessions.Default(c)); err != nil {
		logrus.Error(err)
	}
	c.Redirect(http.StatusFound, "/")
}

// dummyLogin binds the session to an existing user without any provider
// handshake. Registered only in debug mode.
func (h *Handler) dummyLogin(c *gin.Context) {
	user, err := h.users.GetByUsername(c.Param("username"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	session := sessions.Default(c)
	if err := auth.Logout(session); err != nil {
		logrus.Error(err)
	}
	if err := auth.Login(session, user.UserId, "dummy", ""); err != nil {
		abortWithError(c, err)
		return
	}

	c.Redirect(http.StatusFound, "/")
}

func (h *Handler) githubLogin(c *gin.Context) {
	state := uuid.New().String()
	session := sessions.Default(c)
	session.Set(oauthStateKey, state)
	if err := session.Save(); err != nil {
		abortWithError(c, err)
		return
	}

	c.Redirect(http.StatusFound, h.github.LoginURL(state))
}

func (h *Handler) githubCallback(c *gin.Context) {
	session := sessions.Default(c)
	if !consumeState(session, c.Query("state")) {
		c.AbortWithStatusJSON(http.StatusBadRequest, responses.Error{Detail: "state mismatch"})
		return
	}

	ghUser, token, err := h.github.Exchange(c.Request.Context(), c.Query("code"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	user, err := h.users.GetOrCreateFromLogin(
		"github", fmt.Sprint(ghUser.Id), ghUser.Login, ghUser.Name, ghUser.AvatarURL)
	if err != nil {
		abortWithError(c, err)
		return
	}

	if err := auth.Login(session, user.UserId, "github", token); err != nil {
		abortWithError(c, err)
		return
	}

	c.Redirect(http.StatusFound, "/")
}

func (h *Handler) oidcLogin(c *gin.Context) {
	if h.oidc == nil {
		c.AbortWithStatusJSON(http.StatusNotFound, responses.Error{Detail: "oidc login not configured"})
		return
	}

	state := uuid.New().String()
	session := sessions.Default(c)
	session.Set(oauthStateKey, state)
	if err := session.Save(); err != nil {
		abortWithError(c, err)
		return
	}

	c.Redirect(http.StatusFound, h.oidc.LoginURL(state))
}

func (h *Handler) oidcCallback(c *gin.Context) {
	if h.oidc == nil {
		c.AbortWithStatusJSON(http.StatusNotFound, responses.Error{Detail: "oidc login not configured"})
		return
	}

	session := sessions.Default(c)
	if !consumeState(session, c.Query("state")) {
		c.AbortWithStatusJSON(http.StatusBadRequest, responses.Error{Detail: "state mismatch"})
		return
	}

	claims, token, err := h.oidc.Exchange(c.Request.Context(), c.Query("code"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	user, err := h.users.GetOrCreateFromLogin(
		"oidc", claims.Subject, claims.PreferredUsername, claims.Name, claims.Picture)
	if err != nil {
		abortWithError(c, err)
		return
	}

	if err := auth.Login(session, user.UserId, "oidc", token); err != nil {
		abortWithError(c, err)
		return
	}

	c.Redirect(http.StatusFound, "/")
}

func consumeState(session sessions.Session, presented string) bool {
	stored, _ := session.Get(oauthStateKey).(string)
	session.Delete(oauthStateKey)
	_ = session.Save()

	return stored != "" && stored == presented
}
