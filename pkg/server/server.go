package server

import (
	"context"
	"fmt"

	"github.com/caldera-store/caldera/config"
	"github.com/caldera-store/caldera/config/configkey"
	"github.com/caldera-store/caldera/pkg/auth"
	"github.com/caldera-store/caldera/pkg/database"
	"github.com/caldera-store/caldera/pkg/ingest"
	"github.com/caldera-store/caldera/pkg/middleware"
	"github.com/caldera-store/caldera/pkg/objectstore"
	"github.com/caldera-store/caldera/pkg/repositories"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"gorm.io/gorm"
)

type Server struct {
	engine *gin.Engine
	port   int
	db     *gorm.DB
}

func (s *Server) Init() {
	config.LoadConfig()

	logLevelConfig := viper.GetString(configkey.LogLevel)
	l, errLevel := logrus.ParseLevel(logLevelConfig)
	if errLevel != nil {
		logrus.Error(errLevel)
	} else {
		logrus.SetLevel(l)
	}

	db, err := database.CreateDatabase()
	if err != nil {
		panic(err)
	}
	if err := database.Migrate(db); err != nil {
		panic(err)
	}
	s.db = db

	// Setup gin and routes
	if !viper.GetBool(configkey.DebugMode) {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()
	if viper.GetBool(configkey.DebugMode) {
		logrus.Info("Debug mode enabled")
		r.Use(middleware.RequestLoggerMiddleware())
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(404, gin.H{"code": "CALDERA: PAGE_NOT_FOUND", "message": "Page not found"})
	})

	sessionStore := cookie.NewStore([]byte(config.MustGetString(configkey.SessionSecret)))
	sessionStore.Options(sessions.Options{
		Path:     "/",
		HttpOnly: true,
		Secure:   viper.GetBool(configkey.SessionSecure),
	})
	r.Use(sessions.Sessions("caldera", sessionStore))

	users := repositories.NewUsersRepository(db)
	channels := repositories.NewChannelsRepository(db)
	packages := repositories.NewPackagesRepository(db)
	apiKeys := repositories.NewApiKeysRepository(db)

	r.Use(middleware.ResolvePrincipal(users, apiKeys))

	var mirror ingest.Mirror
	if viper.GetBool(configkey.MirrorEnabled) {
		store, err := objectstore.New()
		if err != nil {
			panic(err)
		}
		if err := store.EnsureBucket(context.Background()); err != nil {
			panic(err)
		}
		mirror = store
	}

	storageRoot := viper.GetString(configkey.StorageRoot)
	pipeline := ingest.NewPipeline(
		storageRoot,
		packages,
		ingest.NewCondaIndexer(viper.GetString(configkey.IndexerCommand)),
		mirror,
	)

	var oidcProvider *auth.OIDCProvider
	if viper.GetString(configkey.OIDCProviderURL) != "" {
		oidcProvider, err = auth.NewOIDCProvider(context.Background())
		if err != nil {
			logrus.Errorf("oidc login disabled: %v", err)
		}
	}

	handler := NewHandler(db, users, channels, packages, apiKeys, pipeline,
		auth.NewGithubProvider(), oidcProvider)

	s.SetupEndpoints(r, handler)

	// the generated channel indexes are served straight off disk
	r.Static("/channels-static", storageRoot)

	s.port = viper.GetInt(configkey.ServerPort)
	s.engine = r
}

func (s *Server) Run() {
	_ = s.engine.Run(fmt.Sprintf(":%d", s.port))
}
