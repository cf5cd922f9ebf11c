package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/tabloom-cli/internal/fetch"
	"github.com/KaramelBytes/tabloom-cli/internal/utils"
)

var fetchUser string

var fetchCmd = &cobra.Command{
	Use:   "fetch [url]",
	Short: "GET a JSON document with the configured timeout",
	Long: `Fetch a JSON document. With --user, the record is read from the configured
api_base_url using api_token, api_key and user_agent from configuration.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := current()
		client := fetch.NewClient(c.FetchTimeout())

		var (
			res *fetch.Result
			err error
		)
		switch {
		case fetchUser != "":
			users := fetch.NewUsersClient(client, c.APIBaseURL, fetch.Credentials{
				Token:     c.APIToken,
				APIKey:    c.APIKey,
				UserAgent: c.UserAgent,
			})
			res, err = users.FetchUser(cmd.Context(), fetchUser)
		case len(args) == 1:
			if c.UserAgent != "" {
				client.SetHeader("User-Agent", c.UserAgent)
			}
			res, err = client.Fetch(cmd.Context(), args[0])
		default:
			return fmt.Errorf("provide a url or --user")
		}
		if err != nil {
			return err
		}
		b, err := utils.PrettyJSON(res.Payload)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(b))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(fetchCmd)
	fetchCmd.Flags().StringVar(&fetchUser, "user", "", "fetch this user id from api_base_url")
}
