package server

import (
	"github.com/caldera-store/caldera/config/configkey"
	"github.com/caldera-store/caldera/pkg/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var portVar int
var storageRootVar string
var databaseHostVar string
var databasePortVar int
var databaseUsernameVar string
var databasePasswordVar string
var databaseDatabaseVar string

func init() {
	Server.Flags().IntVarP(&portVar, "port", "p", 0, "The port to listen on")
	Server.Flags().StringVarP(&storageRootVar, "storage-root", "r", "", "The directory channel archives are stored under")
	Server.Flags().StringVar(&databaseHostVar, "db-host", "", "The database host")
	Server.Flags().IntVar(&databasePortVar, "db-port", 0, "The database port")
	Server.Flags().StringVar(&databaseUsernameVar, "db-username", "", "The database username")
	Server.Flags().StringVar(&databasePasswordVar, "db-password", "", "The database password")
	Server.Flags().StringVar(&databaseDatabaseVar, "db-database", "", "The database name")

	_ = viper.BindPFlag(configkey.ServerPort, Server.Flags().Lookup("port"))
	_ = viper.BindPFlag(configkey.StorageRoot, Server.Flags().Lookup("storage-root"))
	_ = viper.BindPFlag(configkey.DatabaseHost, Server.Flags().Lookup("db-host"))
	_ = viper.BindPFlag(configkey.DatabasePort, Server.Flags().Lookup("db-port"))
	_ = viper.BindPFlag(configkey.DatabaseUsername, Server.Flags().Lookup("db-username"))
	_ = viper.BindPFlag(configkey.DatabasePassword, Server.Flags().Lookup("db-password"))
	_ = viper.BindPFlag(configkey.DatabaseDatabase, Server.Flags().Lookup("db-database"))
}

var Server = &cobra.Command{
	Use:   "server",
	Short: "Run the caldera channel server",
	Run: func(cmd *cobra.Command, args []string) {
		s := server.Server{}
		s.Init()
		s.Run()
	},
}
