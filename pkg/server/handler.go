package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/caldera-store/caldera/pkg/auth"
	"github.com/caldera-store/caldera/pkg/authz"
	"github.com/caldera-store/caldera/pkg/ingest"
	"github.com/caldera-store/caldera/pkg/middleware"
	"github.com/caldera-store/caldera/pkg/models"
	"github.com/caldera-store/caldera/pkg/repositories"
	"github.com/caldera-store/caldera/pkg/server/requests"
	"github.com/caldera-store/caldera/pkg/server/responses"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type Handler struct {
	db       *gorm.DB
	users    repositories.IUsersRepository
	channels repositories.IChannelsRepository
	packages repositories.IPackagesRepository
	apiKeys  repositories.IApiKeysRepository
	pipeline *ingest.Pipeline
	github   *auth.GithubProvider
	oidc     *auth.OIDCProvider
}

func NewHandler(
	db *gorm.DB,
	users repositories.IUsersRepository,
	channels repositories.IChannelsRepository,
	packages repositories.IPackagesRepository,
	apiKeys repositories.IApiKeysRepository,
	pipeline *ingest.Pipeline,
	github *auth.GithubProvider,
	oidc *auth.OIDCProvider,
) *Handler {
	return &Handler{
		db:       db,
		users:    users,
		channels: channels,
		packages: packages,
		apiKeys:  apiKeys,
		pipeline: pipeline,
		github:   github,
		oidc:     oidc,
	}
}

func (h *Handler) rules(c *gin.Context) *authz.Rules {
	return authz.New(h.db, middleware.GetPrincipal(c))
}

func abortWithError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, authz.ErrNotLoggedIn):
		status = http.StatusUnauthorized
	case errors.Is(err, authz.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, repositories.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, repositories.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, ingest.ErrInvalidArchive), errors.Is(err, ingest.ErrNameMismatch):
		status = http.StatusBadRequest
	}

	if status == http.StatusInternalServerError {
		logrus.Error(err)
	}
	c.AbortWithStatusJSON(status, responses.Error{Detail: err.Error()})
}

func paging(c *gin.Context) (skip, limit int, q string) {
	skip, _ = strconv.Atoi(c.DefaultQuery("skip", "0"))
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "10"))
	return skip, limit, c.Query("q")
}

// checkTokenRevocation confirms with the session's identity provider
// that its token still stands. Runs on sensitive requests only; any
// doubt logs the session out.
func (h *Handler) checkTokenRevocation(c *gin.Context) error {
	session := sessions.Default(c)
	provider, token := auth.SessionProvider(session)

	valid := true
	switch provider {
	case "github":
		valid = h.github.ValidateToken(c.Request.Context(), token)
	case "oidc":
		valid = h.oidc != nil && h.oidc.ValidateToken(c.Request.Context(), token)
	}

	if !valid {
		if err := auth.Logout(session); err != nil {
			logrus.Error(err)
		}
		return authz.ErrNotLoggedIn
	}

	return nil
}

func (h *Handler) getMe(c *gin.Context) {
	// sensitive request: confirm the provider still honors the session
	if _, isKey := middleware.GetPrincipal(c).(authz.APIKeyPrincipal); !isKey {
		if err := h.checkTokenRevocation(c); err != nil {
			abortWithError(c, err)
			return
		}
	}

	userID, err := h.rules(c).AssertUser()
	if err != nil {
		abortWithError(c, err)
		return
	}

	profile, err := h.users.GetProfile(userID)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, responses.Profile{Name: profile.Name, AvatarURL: profile.AvatarURL})
}

func (h *Handler) getUsers(c *gin.Context) {
	skip, limit, q := paging(c)
	users, err := h.users.List(skip, limit, q)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, toUserResponses(users))
}

func (h *Handler) getUser(c *gin.Context) {
	user, err := h.users.GetByUsername(c.Param("username"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, toUserResponse(*user))
}

func (h *Handler) getChannels(c *gin.Context) {
	skip, limit, q := paging(c)
	channels, err := h.channels.List(skip, limit, q)
	if err != nil {
		abortWithError(c, err)
		return
	}

	list := make([]responses.Channel, 0, len(channels))
	for _, ch := range channels {
		list = append(list, responses.Channel{Name: ch.Name, Description: ch.Description, Private: ch.Private})
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) postChannel(c *gin.Context) {
	var req requests.Channel
	if err := c.ShouldBindJSON(&req); err != nil || req.Name == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, responses.Error{Detail: "invalid channel"})
		return
	}

	userID, err := h.rules(c).AssertUser()
	if err != nil {
		abortWithError(c, err)
		return
	}

	channel, err := h.channels.Create(req.Name, req.Description, req.Private, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			err = fmt.Errorf("channel %s exists: %w", req.Name, err)
		}
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, responses.Channel{Name: channel.Name, Description: channel.Description, Private: channel.Private})
}

func (h *Handler) getChannel(c *gin.Context) {
	channel, err := h.channels.Get(c.Param("channel"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, responses.Channel{Name: channel.Name, Description: channel.Description, Private: channel.Private})
}

func (h *Handler) getPackages(c *gin.Context) {
	skip, limit, q := paging(c)
	packages, err := h.packages.List(c.Param("channel"), skip, limit, q)
	if err != nil {
		abortWithError(c, err)
		return
	}

	list := make([]responses.Package, 0, len(packages))
	for _, pkg := range packages {
		list = append(list, responses.Package{Name: pkg.Name, Description: pkg.Description})
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) postPackage(c *gin.Context) {
	channelName := c.Param("channel")

	var req requests.Package
	if err := c.ShouldBindJSON(&req); err != nil || req.Name == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, responses.Error{Detail: "invalid package"})
		return
	}

	userID, err := h.rules(c).AssertUser()
	if err != nil {
		abortWithError(c, err)
		return
	}

	pkg, err := h.packages.Create(channelName, req.Name, req.Description, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			err = fmt.Errorf("package %s/%s exists: %w", channelName, req.Name, err)
		}
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, responses.Package{Name: pkg.Name, Description: pkg.Description, Channel: channelName})
}

func (h *Handler) getPackage(c *gin.Context) {
	pkg, err := h.packages.Get(c.Param("channel"), c.Param("package"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, responses.Package{Name: pkg.Name, Description: pkg.Description, Channel: c.Param("channel")})
}

func (h *Handler) getChannelMembers(c *gin.Context) {
	members, err := h.channels.ListMembers(c.Param("channel"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	list := make([]responses.Member, 0, len(members))
	for _, m := range members {
		list = append(list, responses.Member{Role: m.Role, User: toUserResponse(m.User)})
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) postChannelMember(c *gin.Context) {
	channelName := c.Param("channel")

	var req requests.PostMember
	if err := c.ShouldBindJSON(&req); err != nil || !authz.Role(req.Role).Valid() {
		c.AbortWithStatusJSON(http.StatusBadRequest, responses.Error{Detail: "invalid member"})
		return
	}

	if _, err := h.channels.Get(channelName); err != nil {
		abortWithError(c, err)
		return
	}

	if _, err := h.rules(c).AssertAddChannelMember(channelName, authz.Role(req.Role)); err != nil {
		abortWithError(c, err)
		return
	}

	if _, err := h.channels.GetMember(channelName, req.Username); err == nil {
		abortWithError(c, fmt.Errorf("member %s in %s exists: %w", req.Username, channelName, repositories.ErrConflict))
		return
	}

	if _, err := h.channels.AddMember(channelName, req.Username, req.Role); err != nil {
		abortWithError(c, err)
		return
	}

	c.Status(http.StatusCreated)
}

func (h *Handler) getPackageMembers(c *gin.Context) {
	members, err := h.packages.ListMembers(c.Param("channel"), c.Param("package"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	list := make([]responses.Member, 0, len(members))
	for _, m := range members {
		list = append(list, responses.Member{Role: m.Role, User: toUserResponse(m.User)})
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) postPackageMember(c *gin.Context) {
	channelName := c.Param("channel")
	packageName := c.Param("package")

	var req requests.PostMember
	if err := c.ShouldBindJSON(&req); err != nil || !authz.Role(req.Role).Valid() {
		c.AbortWithStatusJSON(http.StatusBadRequest, responses.Error{Detail: "invalid member"})
		return
	}

	if _, err := h.packages.Get(channelName, packageName); err != nil {
		abortWithError(c, err)
		return
	}

	if _, err := h.rules(c).AssertAddPackageMember(channelName, packageName, authz.Role(req.Role)); err != nil {
		abortWithError(c, err)
		return
	}

	if _, err := h.packages.GetMember(channelName, packageName, req.Username); err == nil {
		abortWithError(c, fmt.Errorf("member %s in %s/%s exists: %w", req.Username, channelName, packageName, repositories.ErrConflict))
		return
	}

	if _, err := h.packages.AddMember(channelName, packageName, req.Username, req.Role); err != nil {
		abortWithError(c, err)
		return
	}

	c.Status(http.StatusCreated)
}

func (h *Handler) getPackageVersions(c *gin.Context) {
	versions, err := h.packages.ListVersions(c.Param("channel"), c.Param("package"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	list := make([]responses.PackageVersion, 0, len(versions))
	for _, v := range versions {
		list = append(list, responses.PackageVersion{
			Platform:    v.Platform,
			Version:     v.Version,
			BuildNumber: v.BuildNumber,
			BuildString: v.BuildString,
			Filename:    v.Filename,
			Info:        json.RawMessage(v.Info),
			Uploader:    responses.Profile{Name: v.Uploader.Profile.Name, AvatarURL: v.Uploader.Profile.AvatarURL},
			CreatedAt:   v.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) getAPIKeys(c *gin.Context) {
	userID, err := h.rules(c).AssertUser()
	if err != nil {
		abortWithError(c, err)
		return
	}

	keys, err := h.apiKeys.ListForUser(userID)
	if err != nil {
		abortWithError(c, err)
		return
	}

	list := make([]responses.ApiKey, 0, len(keys))
	for _, key := range keys {
		list = append(list, responses.ApiKey{Description: key.Description, Roles: toCPRoles(key.Roles)})
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) postAPIKey(c *gin.Context) {
	var req requests.ApiKey
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, responses.Error{Detail: "invalid api key request"})
		return
	}

	userID, err := h.rules(c).AssertCreateAPIKeyRoles(req.Roles)
	if err != nil {
		abortWithError(c, err)
		return
	}

	key, err := h.apiKeys.Create(userID, req.Description, req.Roles)
	if err != nil {
		abortWithError(c, err)
		return
	}

	// the only response that ever carries the raw secret
	c.JSON(http.StatusCreated, responses.ApiKey{
		Key:         key.Key,
		Description: key.Description,
		Roles:       toCPRoles(key.Roles),
	})
}

func (h *Handler) postFiles(c *gin.Context) {
	channelName := c.Param("channel")
	packageName := c.Param("package")

	pkg, err := h.packages.Get(channelName, packageName)
	if err != nil {
		abortWithError(c, err)
		return
	}

	userID, err := h.rules(c).AssertUploadFile(channelName, packageName)
	if err != nil {
		abortWithError(c, err)
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, responses.Error{Detail: "invalid multipart form"})
		return
	}
	files := form.File["files"]
	if len(files) == 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, responses.Error{Detail: "no files provided"})
		return
	}

	// Files are independent: a failure stops the batch but already
	// recorded versions stay committed.
	recorded := 0
	var failure error
	for _, fileHeader := range files {
		file, err := fileHeader.Open()
		if err != nil {
			failure = err
			break
		}

		_, err = h.pipeline.ProcessFile(c.Request.Context(), channelName, pkg, fileHeader.Filename, file, userID)
		file.Close()
		if err != nil {
			failure = err
			break
		}
		recorded++
	}

	if recorded > 0 {
		if err := h.pipeline.Reindex(c.Request.Context(), channelName); err != nil {
			logrus.Errorf("index regeneration for %s failed: %v", channelName, err)
		}
	}

	if failure != nil {
		abortWithError(c, failure)
		return
	}

	c.Status(http.StatusCreated)
}

func toUserResponse(user models.User) responses.User {
	resp := responses.User{Id: user.UserId, Username: user.Username}
	if user.Profile.Name != "" || user.Profile.AvatarURL != "" {
		resp.Profile = &responses.Profile{Name: user.Profile.Name, AvatarURL: user.Profile.AvatarURL}
	}

	return resp
}

func toUserResponses(users []models.User) []responses.User {
	list := make([]responses.User, 0, len(users))
	for _, user := range users {
		list = append(list, toUserResponse(user))
	}

	return list
}

func toCPRoles(roles []models.ApiKeyRole) []authz.CPRole {
	list := make([]authz.CPRole, 0, len(roles))
	for _, role := range roles {
		list = append(list, authz.CPRole{Channel: role.ChannelName, Package: role.PackageName, Role: role.Role})
	}

	return list
}
