package users

import (
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path"

	"github.com/caldera-store/caldera/config/configkey"
	"github.com/caldera-store/caldera/pkg/server/responses"
	"github.com/go-resty/resty/v2"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	Users.AddCommand(&List)
}

var Users = &cobra.Command{
	Use:   "users",
	Short: "users",
}

var List = cobra.Command{
	Use:   "list",
	Short: "Lists users",
	Run: func(cmd *cobra.Command, args []string) {
		client := resty.New()
		request := client.R()
		request.SetHeader("X-Api-Key", viper.GetString(configkey.AdminAPIKey))

		var users []responses.User
		request.SetResult(&users)

		u, _ := url.Parse(viper.GetString(configkey.APIURL))
		u.Path = path.Join(u.Path, "users")
		resp, err := request.Get(u.String())
		if err != nil {
			fmt.Println(err)
			return
		}
		if resp.StatusCode() != http.StatusOK {
			fmt.Println(string(resp.Body()))
			return
		}

		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"Id", "Username", "Name"})
		for _, user := range users {
			name := ""
			if user.Profile != nil {
				name = user.Profile.Name
			}
			table.Append([]string{user.Id, user.Username, name})
		}
		table.Render()
	},
}
