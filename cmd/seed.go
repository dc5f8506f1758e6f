package cmd

import (
	"fmt"

	"github.com/CUknot/chat_backend/seed"
	"github.com/spf13/cobra"
)

var seedOpts = seed.DefaultOptions()

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Fill the database with fake users, rooms and messages",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()

		sum, err := seed.Run(cmd.Context(), seed.Deps{
			Users:    a.users,
			Ledger:   a.ledger,
			Messages: a.messages,
		}, seedOpts)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d users, %d rooms, %d memberships, %d messages (password %q)\n",
			sum.Users, sum.Rooms, sum.Memberships, sum.Messages, seed.Password)
		return nil
	},
}

func init() {
	seedCmd.Flags().IntVar(&seedOpts.Users, "users", seedOpts.Users, "number of users to create")
	seedCmd.Flags().IntVar(&seedOpts.Rooms, "rooms", seedOpts.Rooms, "number of public rooms to create")
	seedCmd.Flags().IntVar(&seedOpts.Messages, "messages", seedOpts.Messages, "number of messages to post")
	seedCmd.Flags().Int64Var(&seedOpts.Seed, "seed", 0, "random seed for a reproducible run (0 = random)")
	rootCmd.AddCommand(seedCmd)
}
