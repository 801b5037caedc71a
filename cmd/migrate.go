package cmd

import (
	"errors"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hibiki-social/hibiki/migration"
)

// migrateCommand データベースマイグレーションコマンド
func migrateCommand() *cobra.Command {
	var dropDB bool

	cmd := cobra.Command{
		Use:   "migrate",
		Short: "Execute database schema migration only",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := getCLILogger()
			defer logger.Sync()

			if !c.useDatabase() {
				return errors.New("storage.type is not mariadb")
			}

			engine, err := c.getDatabase()
			if err != nil {
				return err
			}
			db, err := engine.DB()
			if err != nil {
				return err
			}
			defer db.Close()

			if dropDB {
				logger.Info("dropping all tables...")
				if err := migration.DropAll(engine); err != nil {
					return err
				}
				logger.Info("all tables were dropped")
			}

			init, err := migration.Migrate(engine)
			if err != nil {
				return err
			}
			logger.Info("database schema migration finished", zap.Bool("init", init))
			return nil
		},
	}

	flags := cmd.Flags()
	flags.BoolVar(&dropDB, "reset", false, "whether to truncate database (drop all tables)")

	return &cmd
}
