package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/caldera-store/caldera/config/configkey"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

var loadConfigMutex sync.Mutex
var configLoaded bool

var DefaultValues = map[string]interface{}{
	configkey.DebugMode:   false,
	configkey.LogLevel:    "info",
	configkey.ServerPort:  8880,
	configkey.ExternalURL: "http://localhost:8880",
	configkey.StorageRoot: "static/channels",

	configkey.SessionSecure: false,

	configkey.DatabaseUsername: "caldera",
	configkey.DatabaseDatabase: "caldera",
	configkey.DatabaseHost:     "localhost",
	configkey.DatabasePort:     5432,
	configkey.DatabaseSSLMode:  "disable",
	configkey.DatabaseTimezone: "UTC",
	configkey.DatabasePassword: "password",

	configkey.MirrorEnabled:  false,
	configkey.MinioHost:      "localhost:9000",
	configkey.MinioAccessKey: "user",
	configkey.MinioSecretKey: "password",
	configkey.MinioSecure:    false,
	configkey.MinioBucket:    "caldera-archives",

	configkey.IndexerCommand: "conda",

	configkey.APIURL: "http://localhost:8880",
}

func LoadConfig() {
	loadConfigMutex.Lock()
	defer loadConfigMutex.Unlock()
	if !configLoaded {
		configLoaded = true

		explicitConfigFile := os.Getenv("CONFIG_FILE")
		if explicitConfigFile != "" {
			fmt.Printf("CONFIG_FILE: %s\n", explicitConfigFile)
			viper.SetConfigFile(explicitConfigFile)
		} else {
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
			viper.AddConfigPath("/etc/caldera")

			otherPath := os.Getenv("CONFIG_FILE_PATH")
			viper.AddConfigPath(otherPath)
		}

		for key, val := range DefaultValues {
			viper.SetDefault(key, val)
		}

		viper.SetEnvPrefix("caldera")
		viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		viper.AutomaticEnv()

		err := viper.ReadInConfig()
		if err != nil {
			logrus.Warn("Config file not found, using defaults")
		}
	}
}

func MustGetString(key string) string {
	val := viper.GetString(key)
	if len(val) == 0 {
		panic(errors.New("failed to get " + key))
	}

	return val
}
