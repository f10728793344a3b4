package server

import (
	"github.com/caldera-store/caldera/config/configkey"
	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
)

func (s *Server) SetupEndpoints(r *gin.Engine, h *Handler) {
	r.GET("/me", h.getMe)
	r.GET("/users", h.getUsers)
	r.GET("/users/:username", h.getUser)

	r.GET("/channels", h.getChannels)
	r.POST("/channels", h.postChannel)
	r.GET("/channels/:channel", h.getChannel)

	r.GET("/channels/:channel/packages", h.getPackages)
	r.POST("/channels/:channel/packages", h.postPackage)
	r.GET("/channels/:channel/packages/:package", h.getPackage)

	r.GET("/channels/:channel/members", h.getChannelMembers)
	r.POST("/channels/:channel/members", h.postChannelMember)
	r.GET("/channels/:channel/packages/:package/members", h.getPackageMembers)
	r.POST("/channels/:channel/packages/:package/members", h.postPackageMember)

	r.GET("/channels/:channel/packages/:package/versions", h.getPackageVersions)

	r.GET("/api-keys", h.getAPIKeys)
	r.POST("/api-keys", h.postAPIKey)

	r.POST("/channels/:channel/packages/:package/files/", h.postFiles)

	r.GET("/auth/logout", h.logout)
	r.GET("/auth/github/login", h.githubLogin)
	r.GET("/auth/github/callback", h.githubCallback)
	r.GET("/auth/oidc/login", h.oidcLogin)
	r.GET("/auth/oidc/callback", h.oidcCallback)

	if viper.GetBool(configkey.DebugMode) {
		r.GET("/dummylogin/:username", h.dummyLogin)
	}
}
