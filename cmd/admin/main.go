// Command admin manages account roles.
package main

import (
	"context"
	"fmt"
	"os"

	"inkwell/internal/cache"
	"inkwell/internal/config"
	"inkwell/internal/database"
	"inkwell/internal/models"
	"inkwell/internal/repository"
	"inkwell/internal/service"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "admin",
		Short:         "Manage who may publish posts",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(
		&cobra.Command{
			Use:   "promote <email>",
			Short: "Give an account the admin role",
			Args:  cobra.ExactArgs(1),
			RunE:  setRole(models.RoleAdmin),
		},
		&cobra.Command{
			Use:   "demote <email>",
			Short: "Return an account to the standard role",
			Args:  cobra.ExactArgs(1),
			RunE:  setRole(models.RoleStandard),
		},
		&cobra.Command{
			Use:   "list-admins",
			Short: "List all admins",
			Args:  cobra.NoArgs,
			RunE:  listAdmins,
		},
	)
	return root
}

type runtime struct {
	users    repository.UserRepository
	accounts *service.AccountService
	close    func()
}

// openRuntime connects the database and, when reachable, Redis so role
// changes also drop the cached account the API resolves credentials to.
func openRuntime() (*runtime, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	dialector, err := database.Dialector(cfg)
	if err != nil {
		return nil, err
	}
	db, err := database.Open(dialector)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	rdb := cache.Connect(cfg.RedisURL)

	users := repository.NewUserRepository(db)
	return &runtime{
		users:    users,
		accounts: service.NewAccountService(users, nil, nil, cache.NewStore(rdb)),
		close: func() {
			if rdb != nil {
				_ = rdb.Close()
			}
			_ = database.Close(db)
		},
	}, nil
}

func setRole(role models.Role) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime()
		if err != nil {
			return err
		}
		defer rt.close()

		user, err := rt.accounts.SetRole(context.Background(), args[0], role)
		if err != nil {
			return err
		}
		cmd.Printf("%s (%s) is now %s\n", user.Email, user.ID, role)
		return nil
	}
}

func listAdmins(cmd *cobra.Command, _ []string) error {
	rt, err := openRuntime()
	if err != nil {
		return err
	}
	defer rt.close()

	admins, err := rt.users.ListByRole(context.Background(), models.RoleAdmin)
	if err != nil {
		return err
	}
	if len(admins) == 0 {
		cmd.Println("No admins found")
		return nil
	}
	for _, a := range admins {
		cmd.Printf("%s\t%s\t%s\n", a.ID, a.Email, a.DisplayName)
	}
	return nil
}
