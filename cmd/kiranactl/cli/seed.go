package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
)

// Seeder stores the bootstrap superadmin.
type Seeder interface {
	SeedSuperadmin(ctx context.Context, email, name, hash string) (int64, bool, error)
}

// SeederFactory opens a Seeder for dsn. The returned func releases it.
type SeederFactory func(ctx context.Context, dsn string) (Seeder, func(), error)

type seedInput struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=8"`
	Name     string `validate:"required,max=120"`
}

type seedResult struct {
	ID      int64  `json:"id"`
	Email   string `json:"email"`
	Created bool   `json:"created"`
}

func newSeedCommand(open SeederFactory) *cobra.Command {
	var (
		in       seedInput
		dsn      string
		jsonOut  bool
		deadline time.Duration
	)
	cmd := &cobra.Command{
		Use:   "seed-superadmin",
		Short: "Create or promote the bootstrap superadmin account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Email = strings.ToLower(strings.TrimSpace(in.Email))
			in.Name = strings.TrimSpace(in.Name)
			if err := validator.New().Struct(in); err != nil {
				var verrs validator.ValidationErrors
				if errors.As(err, &verrs) && len(verrs) > 0 {
					return fmt.Errorf("seed-superadmin: invalid --%s (%s)", strings.ToLower(verrs[0].Field()), verrs[0].Tag())
				}
				return err
			}
			if dsn == "" {
				return errors.New("seed-superadmin: --dsn or PG_DSN is required")
			}
			hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
			if err != nil {
				return fmt.Errorf("seed-superadmin: hash password: %w", err)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), deadline)
			defer cancel()
			seeder, release, err := open(ctx, dsn)
			if err != nil {
				return fmt.Errorf("seed-superadmin: connect: %w", err)
			}
			defer release()

			id, created, err := seeder.SeedSuperadmin(ctx, in.Email, in.Name, string(hash))
			if err != nil {
				return fmt.Errorf("seed-superadmin: %w", err)
			}
			res := seedResult{ID: id, Email: in.Email, Created: created}
			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), res)
			}
			verb := "promoted"
			if created {
				verb = "created"
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "superadmin %s %s (id %d)\n", in.Email, verb, id)
			return err
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&in.Email, "email", "", "account email")
	flags.StringVar(&in.Password, "password", "", "initial password, at least 8 characters")
	flags.StringVar(&in.Name, "name", "", "display name")
	flags.StringVar(&dsn, "dsn", os.Getenv("PG_DSN"), "PostgreSQL connection string")
	flags.DurationVar(&deadline, "timeout", 30*time.Second, "overall deadline")
	flags.BoolVar(&jsonOut, "json", false, "print the result as JSON")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}
