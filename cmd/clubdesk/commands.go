package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/naveenspark/clubdesk/internal/auth"
	"github.com/naveenspark/clubdesk/internal/tui"
	"github.com/naveenspark/clubdesk/pkg/client"
	"github.com/naveenspark/clubdesk/pkg/domain"
)

// ask returns the prompter for this run. Piped stdin gets a line reader.
func (c *cli) ask() prompter {
	if c.opts.interactive {
		return c.opts.prompt
	}
	if p, ok := c.opts.prompt.(*linePrompter); ok {
		return p
	}
	p := newLinePrompter(c.opts.in)
	c.opts.prompt = p
	return p
}

// session returns the signed-in session or errNotSignedIn.
func (c *cli) session() (*domain.Session, error) {
	st := c.auth.State()
	if st.Session == nil {
		return nil, errNotSignedIn
	}
	return st.Session, nil
}

func (c *cli) loginCmd() *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email and password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.open(cmd); err != nil {
				return err
			}
			p := c.ask()
			var err error
			if email == "" {
				if email, err = p.Input("Email", "you@club.com"); err != nil {
					return err
				}
			}
			password, err := p.Password("Password")
			if err != nil {
				return err
			}
			if err := c.auth.SignIn(cmd.Context(), email, password); err != nil {
				return err
			}

			st := c.auth.State()
			c.printf("Signed in as %s (%s)\n", st.Session.User.Name, st.Session.User.Kind)
			if st.NeedsPasswordChange {
				c.printf("A new password is required before continuing: run `clubdesk change-password`.\n")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	return cmd
}

func (c *cli) registerCmd() *cobra.Command {
	var (
		profile     domain.RegisterProfile
		acceptTerms bool
	)
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a business owner account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.open(cmd); err != nil {
				return err
			}
			p := c.ask()
			var err error
			if profile.FullName == "" {
				if profile.FullName, err = p.Input("Full name", "Ana Lima"); err != nil {
					return err
				}
			}
			if profile.Email == "" {
				if profile.Email, err = p.Input("Email", "you@club.com"); err != nil {
					return err
				}
			}
			if profile.BusinessType == "" {
				if profile.BusinessType, err = p.Select("Business type", domain.BusinessTypes); err != nil {
					return err
				}
			}
			if profile.Password, err = p.Password("Password"); err != nil {
				return err
			}
			if profile.ConfirmPassword, err = p.Password("Confirm password"); err != nil {
				return err
			}
			profile.AcceptedTerms = acceptTerms
			if !acceptTerms {
				q := fmt.Sprintf("Accept the terms of service (%s)?", tui.TermsURL)
				if profile.AcceptedTerms, err = p.Confirm(q, false); err != nil {
					return err
				}
			}

			if err := c.auth.SignUp(cmd.Context(), profile); err != nil {
				return err
			}
			c.printf("Account created for %s.\n", profile.Email)
			c.printf("Next: run `clubdesk onboard` to set up your main club.\n")
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&profile.FullName, "name", "", "full name")
	f.StringVar(&profile.Email, "email", "", "account email")
	f.StringVar(&profile.BusinessType, "business-type", "",
		"one of: "+strings.Join(domain.BusinessTypes, ", "))
	f.BoolVar(&acceptTerms, "accept-terms", false, "accept the terms of service")
	return cmd
}

func (c *cli) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the saved session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.open(cmd); err != nil {
				return err
			}
			if !c.auth.State().SignedIn() {
				c.printf("Not signed in.\n")
				return nil
			}
			if err := c.auth.SignOut(cmd.Context()); err != nil {
				return fmt.Errorf("signed out, but the saved session could not be removed: %w", err)
			}
			c.printf("Signed out.\n")
			return nil
		},
	}
}

func (c *cli) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.open(cmd); err != nil {
				return err
			}
			s, err := c.session()
			if err != nil {
				return err
			}
			c.printf("Name:     %s\n", s.User.Name)
			c.printf("Email:    %s\n", s.User.Email)
			c.printf("Account:  %s\n", s.User.Kind)
			if s.User.Role != "" {
				c.printf("Role:     %s\n", s.User.Role)
			}
			if s.Club != nil {
				c.printf("Club:     %s\n", s.Club.Name)
			}
			if exp := s.TokenExpiry(); !exp.IsZero() {
				state := "valid"
				if !exp.After(c.opts.now()) {
					state = "expired"
				}
				c.printf("Session:  %s until %s\n", state, exp.Local().Format(time.RFC1123))
			}
			if s.NeedsPasswordChange() {
				c.printf("\nA new password is required: run `clubdesk change-password`.\n")
			}
			return nil
		},
	}
}

func (c *cli) resetPasswordCmd() *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "reset-password",
		Short: "Reset a forgotten password with an emailed code",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.open(cmd); err != nil {
				return err
			}
			ctx := cmd.Context()
			p := c.ask()
			flow := auth.NewResetFlow(c.auth, c.logger)
			defer flow.Discard()

			var err error
			if email == "" {
				if email, err = p.Input("Email", "you@club.com"); err != nil {
					return err
				}
			}
			if err := flow.Request(ctx, email); err != nil {
				return err
			}
			c.printf("A %d-digit code was sent to %s.\n", client.ResetCodeLength, flow.Email())

			code, err := p.Input("Reset code", strings.Repeat("0", client.ResetCodeLength))
			if err != nil {
				return err
			}
			if err := flow.Verify(ctx, code); err != nil {
				return err
			}

			pw, err := p.Password("New password")
			if err != nil {
				return err
			}
			confirm, err := p.Password("Confirm password")
			if err != nil {
				return err
			}
			if err := flow.Complete(ctx, pw, confirm); err != nil {
				return err
			}
			c.printf("Password updated. Sign in with `clubdesk login`.\n")
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	return cmd
}

func (c *cli) changePasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "change-password",
		Short: "Set a new password on first login",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.open(cmd); err != nil {
				return err
			}
			if _, err := c.session(); err != nil {
				return err
			}
			p := c.ask()
			pw, err := p.Password("New password")
			if err != nil {
				return err
			}
			confirm, err := p.Password("Confirm password")
			if err != nil {
				return err
			}
			if err := c.auth.ChangePassword(cmd.Context(), pw, confirm); err != nil {
				return err
			}
			c.printf("Password changed.\n")
			return nil
		},
	}
}

func (c *cli) onboardCmd() *cobra.Command {
	var (
		club     domain.Club
		products []string
		goal     string
		extra    []string
	)
	cmd := &cobra.Command{
		Use:   "onboard",
		Short: "Set up the main club after registering",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.open(cmd); err != nil {
				return err
			}
			s, err := c.session()
			if err != nil {
				return err
			}
			if s.User.IsEmployee() {
				return fmt.Errorf("%w: only owner accounts can onboard", client.ErrValidation)
			}
			if club.Name == "" {
				if club.Name, err = c.ask().Input("Main club name", "Downtown"); err != nil {
					return err
				}
			}

			o := domain.Onboarding{
				ProductTypes: products,
				MainClub:     club,
				InitialGoal:  goal,
				Clubs:        []domain.Club{club},
			}
			for _, name := range extra {
				if name = strings.TrimSpace(name); name != "" {
					o.Clubs = append(o.Clubs, domain.Club{Name: name})
				}
			}
			if err := c.auth.SubmitOnboarding(cmd.Context(), o); err != nil {
				return err
			}
			if s := c.auth.State().Session; s != nil && s.Club != nil {
				c.printf("Main club set to %s.\n", s.Club.Name)
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&club.Name, "club", "", "main club name")
	f.StringVar(&club.Address, "address", "", "main club address")
	f.StringSliceVar(&products, "products", nil, "product types, comma separated")
	f.StringVar(&goal, "goal", "", "first business goal")
	f.StringSliceVar(&extra, "also", nil, "additional club names")
	return cmd
}

func (c *cli) tokenCmd() *cobra.Command {
	var copyIt bool
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Print the session token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.open(cmd); err != nil {
				return err
			}
			s, err := c.session()
			if err != nil {
				return err
			}
			if !copyIt {
				c.printf("%s\n", s.Token)
				return nil
			}
			if err := c.opts.copy(s.Token); err != nil {
				return fmt.Errorf("copy to clipboard: %w", err)
			}
			c.printf("Token copied to clipboard.\n")
			return nil
		},
	}
	cmd.Flags().BoolVar(&copyIt, "copy", false, "copy to the clipboard instead of printing")
	return cmd
}

func (c *cli) termsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "terms",
		Short: "Open the terms of service",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			c.printf("%s\n", tui.TermsURL)
			if err := c.opts.openURL(tui.TermsURL); err != nil {
				return errors.New("could not open a browser; visit the address above")
			}
			return nil
		},
	}
}

func (c *cli) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(*cobra.Command, []string) {
			c.printf("clubdesk %s\n", version)
		},
	}
}
