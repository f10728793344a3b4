package admin

import (
	"github.com/caldera-store/caldera/cmd/admin/channels"
	"github.com/caldera-store/caldera/cmd/admin/users"
	"github.com/spf13/cobra"
)

func init() {
	Admin.AddCommand(channels.Channels)
	Admin.AddCommand(users.Users)
}

var Admin = &cobra.Command{
	Use:   "admin",
	Short: "Administer a running caldera server",
}
