package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/eduassist/portal/internal/ports"
)

// Status is the auth status result.
type Status struct {
	Profile       string `json:"profile"       yaml:"profile"`
	Authenticated bool   `json:"authenticated" yaml:"authenticated"`
	// Restored is true when the token came from the session database
	// rather than a login in this invocation.
	Restored bool   `json:"restored"        yaml:"restored"`
	Email    string `json:"email,omitempty" yaml:"email,omitempty"`
	Role     string `json:"role,omitempty"  yaml:"role,omitempty"`
}

func (s Status) Headers() []string {
	return []string{"PROFILE", "AUTHENTICATED", "RESTORED", "EMAIL", "ROLE"}
}

func (s Status) Rows() [][]string {
	return [][]string{{s.Profile, strconv.FormatBool(s.Authenticated), strconv.FormatBool(s.Restored), s.Email, s.Role}}
}

func newAuthCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Sign in, sign out and inspect the current session",
	}
	cmd.AddCommand(newLoginCommand(a), newLogoutCommand(a), newStatusCommand(a))
	return cmd
}

func newLoginCommand(a *app) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email and password",
		Long: `Sign in against the backend and save the token for this profile.
Missing flags are prompted for.

Examples:
  portalctl auth login --email prof@example.com
  portalctl --profile student auth login --email kid@example.com --password s3cret`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			creds := ports.Credentials{Email: email, Password: password}
			if creds.Email == "" || creds.Password == "" {
				var err error
				if creds, err = a.opts.Prompter.Credentials(email); err != nil {
					return err
				}
			}
			user, err := a.rt.svc.SignIn(cmd.Context(), a.rt.store, creds)
			if err != nil {
				return err
			}
			if a.rt.format != FormatTable {
				return Write(a.rt.out, a.rt.format, statusOf(a, cmd))
			}
			_, err = fmt.Fprintf(a.rt.out, "%s signed in as %s (%s)\n", okStyle.Render("✓"), user.Email, user.Role)
			return err
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password (prompted when omitted)")
	return cmd
}

func newLogoutCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the saved token for this profile",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.rt.svc.SignOut(cmd.Context(), a.rt.store); err != nil {
				return err
			}
			_, err := fmt.Fprintf(a.rt.out, "%s signed out of profile %s\n", okStyle.Render("✓"), a.rt.profile)
			return err
		},
	}
}

func newStatusCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether this profile has a token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return Write(a.rt.out, a.rt.format, statusOf(a, cmd))
		},
	}
}

func statusOf(a *app, cmd *cobra.Command) Status {
	facts := a.rt.auth.Facts(cmd.Context())
	st := Status{
		Profile:       a.rt.profile,
		Authenticated: facts.Authenticated,
		Restored:      a.rt.store.Restored(),
	}
	if facts.User != nil {
		st.Email = facts.User.Email
		st.Role = string(facts.User.Role)
	}
	return st
}
