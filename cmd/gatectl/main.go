// Package main is the entry point for the gatectl admin binary.
package main

import (
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/golang-jwt/jwt/v5"
	_ "github.com/mattn/go-sqlite3"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"sqlgate/internal/config"
	internaldb "sqlgate/internal/db"
	"sqlgate/internal/db/repository"
	"sqlgate/internal/domain"
	"sqlgate/internal/service"
)

func main() {
	root := &cobra.Command{
		Use:           "gatectl",
		Short:         "Administration commands for the sqlgate control plane",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newMigrateCmd(), newSeedCmd(), newCreateAdminCmd(), newTokenCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// openMeta opens the metadata database and applies migrations.
func openMeta() (*config.Config, func() error, *repositorySet, error) {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, nil, nil, err
	}
	writeDB, readDB, err := internaldb.OpenSQLitePair(cfg.MetaDBPath, 2)
	if err != nil {
		return nil, nil, nil, err
	}
	closeFn := func() error {
		readDB.Close()
		return writeDB.Close()
	}
	if err := internaldb.RunMigrations(writeDB); err != nil {
		_ = closeFn()
		return nil, nil, nil, err
	}
	return cfg, closeFn, &repositorySet{
		users:      repository.NewUserRepo(writeDB),
		roles:      repository.NewRoleRepo(writeDB),
		privileges: repository.NewPrivilegeRepo(writeDB),
		audit:      repository.NewAuditRepo(writeDB),
	}, nil
}

type repositorySet struct {
	users      *repository.UserRepo
	roles      *repository.RoleRepo
	privileges *repository.PrivilegeRepo
	audit      *repository.AuditRepo
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations to the metadata database",
		RunE: func(_ *cobra.Command, _ []string) error {
			_, closeFn, _, err := openMeta()
			if err != nil {
				return err
			}
			defer closeFn()
			fmt.Println("migrations applied")
			return nil
		},
	}
}

func newSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Seed the default privilege catalog",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, closeFn, repos, err := openMeta()
			if err != nil {
				return err
			}
			defer closeFn()

			svc := service.NewPrivilegeService(repos.privileges, repos.roles, repos.audit)
			n, err := svc.SeedDefaults(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("privilege catalog seeded (%d created)\n", n)
			return nil
		},
	}
}

func newCreateAdminCmd() *cobra.Command {
	var (
		username    string
		displayName string
	)

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an administrator account",
		Example: `  # Prompts for the password on the terminal
  gatectl create-admin --username admin --name "Platform Admin"`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if username == "" {
				return fmt.Errorf("--username is required")
			}
			password, err := promptPassword()
			if err != nil {
				return err
			}

			_, closeFn, repos, err := openMeta()
			if err != nil {
				return err
			}
			defer closeFn()

			svc := service.NewUserService(repos.users, repos.audit, "", 0)
			user, err := svc.Bootstrap(cmd.Context(), &domain.User{
				Username: username,
				Name:     displayName,
				IsAdmin:  true,
			}, password)
			if err != nil {
				return err
			}
			fmt.Printf("admin user %s created (id %s)\n", user.Username, user.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "login name for the new admin")
	cmd.Flags().StringVar(&displayName, "name", "", "display name")
	return cmd
}

func promptPassword() (string, error) {
	if v := os.Getenv("GATECTL_PASSWORD"); v != "" {
		return v, nil
	}
	fmt.Fprint(os.Stderr, "Password: ")
	first, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	fmt.Fprint(os.Stderr, "Confirm:  ")
	second, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	if string(first) != string(second) {
		return "", fmt.Errorf("passwords do not match")
	}
	return string(first), nil
}

// newTokenCmd mints a dev-mode JWT without going through /auth/login.
// Useful for scripting against a local server.
func newTokenCmd() *cobra.Command {
	var (
		subject string
		name    string
		admin   bool
		expires time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Generate a development JWT signed with the configured secret",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := config.LoadFromEnv()
			if err != nil {
				return err
			}
			now := time.Now()
			token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
				"sub":   subject,
				"name":  name,
				"admin": admin,
				"iat":   now.Unix(),
				"exp":   now.Add(expires).Unix(),
			})
			signed, err := token.SignedString([]byte(cfg.JWTSecret))
			if err != nil {
				return fmt.Errorf("sign token: %w", err)
			}
			fmt.Println(signed)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "dev", "token subject (user id)")
	cmd.Flags().StringVar(&name, "name", "dev", "username claim")
	cmd.Flags().BoolVar(&admin, "admin", false, "mark the token as admin")
	cmd.Flags().DurationVar(&expires, "expires", 24*time.Hour, "token lifetime")
	return cmd
}
