package configkey

const (
	LogLevel  = "log.level"
	DebugMode = "debug"

	ServerPort  = "server.port"
	ExternalURL = "server.external.url"
	StorageRoot = "storage.root"

	SessionSecret = "session.secret"
	SessionSecure = "session.secure"

	DatabaseUsername = "database.username"
	DatabaseDatabase = "database.database"
	DatabaseHost     = "database.host"
	DatabasePort     = "database.port"
	DatabaseSSLMode  = "database.sslmode"
	DatabaseTimezone = "database.timezone"
	DatabasePassword = "database.password"

	MirrorEnabled  = "mirror.enabled"
	MinioHost      = "minio.host"
	MinioAccessKey = "minio.access.key"
	MinioSecretKey = "minio.secret.key"
	MinioSecure    = "minio.secure"
	MinioBucket    = "minio.bucket"

	GithubClientId     = "github.client.id"
	GithubClientSecret = "github.client.secret"

	OIDCClientId     = "oidc.client.id"
	OIDCClientSecret = "oidc.client.secret"
	OIDCProviderURL  = "oidc.provider.url"

	IndexerCommand = "indexer.command"

	APIURL      = "api.url"
	AdminAPIKey = "admin.api.key"
)
