package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/kirana-event/kirana/cmd/kiranactl/cli"
	"github.com/kirana-event/kirana/internal/platform/db"
	"github.com/kirana-event/kirana/internal/users"
)

func main() {
	cobra.CheckErr(cli.NewRootCommand(openSeeder).Execute())
}

func openSeeder(ctx context.Context, dsn string) (cli.Seeder, func(), error) {
	pool, err := db.New(ctx, dsn)
	if err != nil {
		return nil, nil, err
	}
	return users.NewRepository(pool), pool.Close, nil
}
