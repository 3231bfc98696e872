package bootstrap

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/guregu/null/v6"
	"github.com/krobus00/odds-tracker/internal/config"
	"github.com/krobus00/odds-tracker/internal/constant"
	"github.com/krobus00/odds-tracker/internal/infrastructure"
	"github.com/krobus00/odds-tracker/internal/util"
	"github.com/pressly/goose/v3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const migrationRootDir = "migration/postgresql"

func StartMigrate(cmd *cobra.Command, args []string) {
	databaseName, _ := cmd.Flags().GetString("databaseName")
	actionType, _ := cmd.Flags().GetString("action")
	migrationName, _ := cmd.Flags().GetString("name")
	version, _ := cmd.Flags().GetInt64("version")

	databaseName = strings.TrimSpace(databaseName)
	if databaseName == "" {
		databaseName = constant.OddsDatabaseName
	}

	migrationDir := filepath.Join(migrationRootDir, databaseName)
	_, err := os.Stat(migrationDir)
	util.ContinueOrFatalf(err, "migration directory %s", migrationDir)

	dbConfig, ok := config.Env.Database[databaseName]
	if !ok || strings.TrimSpace(dbConfig.DSN) == "" {
		util.ContinueOrFatal(fmt.Errorf("database %q is not configured", databaseName))
	}

	logger := logrus.WithFields(logrus.Fields{
		"database": databaseName,
		"dsn":      infrastructure.MaskDSN(dbConfig.DSN),
		"action":   actionType,
	})

	db, err := sql.Open("postgres", dbConfig.DSN)
	util.ContinueOrFatalf(err, "open database %s", databaseName)
	defer func() {
		_ = db.Close()
	}()

	err = goose.SetDialect("postgres")
	util.ContinueOrFatal(err)

	logger.Info("running migration")

	err = runMigration(db, migrationDir, actionType, migrationName, version)
	util.ContinueOrFatalf(err, "migration %s on %s", actionType, databaseName)

	logger.Info("migration finished")
}

func runMigration(db *sql.DB, dir, action, name string, version int64) error {
	switch action {
	case "create":
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("migration name is required")
		}
		return goose.Create(db, dir, name, "sql")
	case "up":
		return goose.Up(db, dir, goose.WithAllowMissing())
	case "up-by-one":
		return goose.UpByOne(db, dir, goose.WithAllowMissing())
	case "up-to":
		return goose.UpTo(db, dir, null.IntFrom(version).Int64, goose.WithAllowMissing())
	case "down":
		return goose.Down(db, dir, goose.WithAllowMissing())
	case "down-to":
		return goose.DownTo(db, dir, null.IntFrom(version).Int64, goose.WithAllowMissing())
	case "status":
		return goose.Status(db, dir)
	case "version":
		return goose.Version(db, dir)
	case "reset":
		err := goose.Reset(db, dir, goose.WithAllowMissing())
		if err != nil {
			return err
		}
		return goose.Up(db, dir, goose.WithAllowMissing())
	default:
		return fmt.Errorf("invalid migration action %q", action)
	}
}
