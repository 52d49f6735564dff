package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/alecgard/taskflow/internal/api"
	"github.com/spf13/cobra"
)

var (
	signupName     string
	signupEmail    string
	signupPassword string
	signupRole     string

	loginEmail    string
	loginPassword string
)

var signupCmd = &cobra.Command{
	Use:   "signup",
	Short: "Register a new user and log in",
	Args:  cobra.NoArgs,
	RunE:  withApp(runSignup),
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in and store the session credential",
	Args:  cobra.NoArgs,
	RunE:  withApp(runLogin),
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored session credential",
	Args:  cobra.NoArgs,
	RunE:  withApp(runLogout),
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the logged-in user",
	Args:  cobra.NoArgs,
	RunE:  withApp(runWhoami),
}

func init() {
	signupCmd.Flags().StringVar(&signupName, "name", "", "full name")
	signupCmd.Flags().StringVar(&signupEmail, "email", "", "email address")
	signupCmd.Flags().StringVar(&signupPassword, "password", "", "password (prompted if omitted)")
	signupCmd.Flags().StringVar(&signupRole, "role", "member", "directory role")
	signupCmd.MarkFlagRequired("name")
	signupCmd.MarkFlagRequired("email")

	loginCmd.Flags().StringVar(&loginEmail, "email", "", "email address")
	loginCmd.Flags().StringVar(&loginPassword, "password", "", "password (prompted if omitted)")
	loginCmd.MarkFlagRequired("email")

	rootCmd.AddCommand(signupCmd, loginCmd, logoutCmd, whoamiCmd)
}

func runSignup(ctx context.Context, a *app, _ []string) error {
	password := signupPassword
	if password == "" {
		var err error
		if password, err = a.prompts.Password("Password: "); err != nil {
			return err
		}
	}
	if strings.TrimSpace(signupName) == "" || strings.TrimSpace(signupEmail) == "" || password == "" {
		return errors.New("name, email and password are required")
	}

	user, err := a.client.CreateUser(ctx, api.CreateUserInput{
		Name:     signupName,
		Email:    signupEmail,
		Password: password,
		Role:     signupRole,
	})
	if err != nil {
		return err
	}
	if err := a.login(ctx, signupEmail, password); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Registered and logged in as %s <%s> (id %d)\n", user.Name, user.Email, user.ID)
	return nil
}

func runLogin(ctx context.Context, a *app, _ []string) error {
	password := loginPassword
	if password == "" {
		var err error
		if password, err = a.prompts.Password("Password: "); err != nil {
			return err
		}
	}
	if err := a.login(ctx, loginEmail, password); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Logged in as %s\n", loginEmail)
	return nil
}

func (a *app) login(ctx context.Context, email, password string) error {
	tok, err := a.client.Login(ctx, email, password)
	if err != nil {
		return err
	}
	return a.session.Start(ctx, tok.AccessToken)
}

func runLogout(ctx context.Context, a *app, _ []string) error {
	if err := a.session.End(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Logged out.")
	return nil
}

func runWhoami(ctx context.Context, a *app, _ []string) error {
	if err := a.requireLogin(ctx); err != nil {
		return err
	}
	users, err := a.client.ListUsers(ctx)
	if err != nil {
		if api.IsUnauthorized(err) {
			if endErr := a.session.End(ctx); endErr != nil {
				a.logger.Warn("failed to end session", "error", endErr)
			}
			return errSessionExpired
		}
		return err
	}

	id := a.session.Identity(ctx, users)
	if id == nil {
		subject, _ := a.session.Subject(ctx)
		fmt.Fprintf(a.out, "Logged in as %s (not in the user directory)\n", orDash(subject))
		return nil
	}
	for _, u := range users {
		if u.ID == *id {
			fmt.Fprintf(a.out, "%s <%s> (id %d)\n", u.Name, u.Email, u.ID)
			break
		}
	}
	return nil
}
