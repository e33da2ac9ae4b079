package cmd

import (
	"fmt"

	"musicshare/core/account"
	"musicshare/db"
	"musicshare/repository"

	"github.com/spf13/cobra"
)

var (
	adminUsername string
	adminPassword string
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "管理员账户管理",
}

var adminCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a user with admin rights",
	Long:  `Create a user with admin rights. Admin rights can't be granted over HTTP.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		gdb, err := db.Connect(cfg)
		if err != nil {
			return err
		}
		defer db.Close(gdb)

		if err := db.Migrate(gdb); err != nil {
			return err
		}

		accounts := account.NewService(
			repository.NewGormUserRepository(gdb),
			repository.NewGormPlaylistRepository(gdb),
			cfg.BcryptCost,
		)
		user, err := accounts.SeedAdmin(cmd.Context(), adminUsername, adminPassword)
		if err != nil {
			return err
		}
		fmt.Printf("Admin %q created (id %d).\n", user.Username, user.ID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(adminCmd)
	adminCmd.AddCommand(adminCreateCmd)

	adminCreateCmd.Flags().StringVarP(&adminUsername, "username", "u", "", "admin username")
	adminCreateCmd.Flags().StringVarP(&adminPassword, "password", "p", "", "admin password")
	_ = adminCreateCmd.MarkFlagRequired("username")
	_ = adminCreateCmd.MarkFlagRequired("password")

	adminCreateCmd.Example = `  musicshare admin create -u root -p 'change-me'`
}
