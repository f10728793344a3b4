package channels

import (
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path"
	"strconv"

	"github.com/caldera-store/caldera/config/configkey"
	"github.com/caldera-store/caldera/pkg/server/requests"
	"github.com/caldera-store/caldera/pkg/server/responses"
	"github.com/go-resty/resty/v2"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var descriptionVar string
var privateVar bool

func init() {
	Channels.AddCommand(&List)
	Channels.AddCommand(&Add)

	Add.Flags().StringVarP(&descriptionVar, "description", "d", "", "Channel description")
	Add.Flags().BoolVar(&privateVar, "private", false, "Create the channel as private")
}

var Channels = &cobra.Command{
	Use:   "channels",
	Short: "channels",
}

var List = cobra.Command{
	Use:   "list",
	Short: "Lists channels",
	Run: func(cmd *cobra.Command, args []string) {
		client := resty.New()
		request := client.R()
		request.SetHeader("X-Api-Key", viper.GetString(configkey.AdminAPIKey))

		var channels []responses.Channel
		request.SetResult(&channels)

		u, _ := url.Parse(viper.GetString(configkey.APIURL))
		u.Path = path.Join(u.Path, "channels")
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
		table.SetHeader([]string{"Name", "Description", "Private"})
		for _, ch := range channels {
			table.Append([]string{ch.Name, ch.Description, strconv.FormatBool(ch.Private)})
		}
		table.Render()
	},
}

var Add = cobra.Command{
	Use:   "add <name>",
	Short: "Creates a channel",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client := resty.New()
		request := client.R()
		request.SetHeader("X-Api-Key", viper.GetString(configkey.AdminAPIKey))
		request.SetBody(&requests.Channel{
			Name:        args[0],
			Description: descriptionVar,
			Private:     privateVar,
		})

		u, _ := url.Parse(viper.GetString(configkey.APIURL))
		u.Path = path.Join(u.Path, "channels")
		resp, err := request.Post(u.String())
		if err != nil {
			fmt.Println(err)
			return
		}
		if resp.StatusCode() != http.StatusCreated {
			fmt.Println(string(resp.Body()))
			return
		}

		fmt.Printf("%v\n", string(resp.Body()))
	},
}
