package gormclickhouse

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

func TestMigratorUnsupportedOperations(t *testing.T) {
	m := migrator{}

	require.Equal(t, "", m.CurrentDatabase())
	require.Equal(t, []string(nil), m.GetTypeAliases(""))
	require.Equal(t, false, m.HasTable("users"))
	require.Equal(t, false, m.HasColumn(nil, "col"))
	require.Equal(t, false, m.HasConstraint(nil, "constraint"))
	require.Equal(t, false, m.HasIndex(nil, "index"))

	require.ErrorIs(t, m.CreateTable("users"), errUnsupportedMigration)
	require.ErrorIs(t, m.DropTable("users"), errUnsupportedMigration)
	require.ErrorIs(t, m.RenameTable(nil, nil), errUnsupportedMigration)
	tables, err := m.GetTables()
	require.ErrorIs(t, err, errUnsupportedMigration)
	require.Nil(t, tables)
	_, err = m.TableType(nil)
	require.ErrorIs(t, err, errUnsupportedMigration)
	require.ErrorIs(t, m.AddColumn(nil, ""), errUnsupportedMigration)
	require.ErrorIs(t, m.DropColumn(nil, ""), errUnsupportedMigration)
	require.ErrorIs(t, m.AlterColumn(nil, ""), errUnsupportedMigration)
	require.ErrorIs(t, m.MigrateColumn(nil, nil, nil), errUnsupportedMigration)
	require.ErrorIs(t, m.MigrateColumnUnique(nil, nil, nil), errUnsupportedMigration)
	require.ErrorIs(t, m.RenameColumn(nil, "", ""), errUnsupportedMigration)
	_, err = m.ColumnTypes(nil)
	require.ErrorIs(t, err, errUnsupportedMigration)
	require.ErrorIs(t, m.CreateView("", gorm.ViewOption{}), errUnsupportedMigration)
	require.ErrorIs(t, m.DropView(""), errUnsupportedMigration)
	require.ErrorIs(t, m.CreateConstraint(nil, ""), errUnsupportedMigration)
	require.ErrorIs(t, m.DropConstraint(nil, ""), errUnsupportedMigration)
	require.ErrorIs(t, m.CreateIndex(nil, ""), errUnsupportedMigration)
	require.ErrorIs(t, m.DropIndex(nil, ""), errUnsupportedMigration)
	require.ErrorIs(t, m.RenameIndex(nil, "", ""), errUnsupportedMigration)
	_, err = m.GetIndexes(nil)
	require.ErrorIs(t, err, errUnsupportedMigration)
}

func TestAutoMigrateCreatesMissingTable(t *testing.T) {
	server := newRecordingServer(t, func(statement string) (int, string) {
		if strings.HasPrefix(statement, "DESCRIBE TABLE") {
			return http.StatusNotFound, "Code: 60. DB::Exception: Table default.users does not exist."
		}
		return http.StatusOK, ""
	})
	db := openTestDB(t, server.URL)

	require.NoError(t, db.AutoMigrate(&user{}))
	require.Equal(t, []string{
		"DESCRIBE TABLE `users`",
		"CREATE TABLE `users` (`id` BIGINT,`name` String,`score` DOUBLE,`created_at` DateTime('UTC')) ENGINE = StripeLog",
	}, server.recorded())
}

func TestAutoMigrateKeepsExistingTable(t *testing.T) {
	server := newRecordingServer(t, func(statement string) (int, string) {
		return http.StatusOK, "name\ttype\nString\tString\nid\tUInt64\n"
	})
	db := openTestDB(t, server.URL)

	require.NoError(t, db.AutoMigrate(&user{}))
	require.True(t, db.Migrator().HasTable("users"))
	require.Equal(t, []string{"DESCRIBE TABLE `users`", "DESCRIBE TABLE `users`"}, server.recorded())
}

func TestMigratorTablesAndDatabase(t *testing.T) {
	server := newRecordingServer(t, func(statement string) (int, string) {
		switch statement {
		case "SHOW TABLES":
			return http.StatusOK, "name\nString\nevents\nusers\n"
		case "SELECT currentDatabase() AS name":
			return http.StatusOK, "name\nString\nanalytics\n"
		}
		return http.StatusOK, ""
	})
	db := openTestDB(t, server.URL)
	m := db.Migrator()

	tables, err := m.GetTables()
	require.NoError(t, err)
	require.Equal(t, []string{"events", "users"}, tables)
	require.Equal(t, "analytics", m.CurrentDatabase())
	require.NoError(t, m.DropTable("events"))
	require.Equal(t, "DROP TABLE IF EXISTS `events`", server.recorded()[2])
	require.Equal(t, "BIGINT", m.FullDataTypeOf(&schema.Field{DataType: schema.Int}).SQL)
}
