package gormclickhouse

import (
	"context"
	"errors"
	"strings"

	"github.com/thanhdai917/clickhouse/clickhouse"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/schema"
)

var errUnsupportedMigration = errors.New("clickhouse migrator does not support this operation")

// migrator creates and drops tables through the ClickHouse connection. Column-level
// changes, constraints, indexes and views are rejected.
type migrator struct {
	db   *gorm.DB
	conn *clickhouse.Connection
}

func (m migrator) context() context.Context {
	if m.db != nil && m.db.Statement != nil && m.db.Statement.Context != nil {
		return m.db.Statement.Context
	}
	return context.Background()
}

// tableAndColumns resolves a model, or a bare table name, to its table and column specs.
func (m migrator) tableAndColumns(value interface{}) (string, []clickhouse.ColumnSpec, error) {
	if name, ok := value.(string); ok {
		return name, nil, nil
	}
	if m.db == nil {
		return "", nil, errors.New("clickhouse migrator has no gorm.DB")
	}
	stmt := &gorm.Statement{DB: m.db}
	if err := stmt.Parse(value); err != nil {
		return "", nil, err
	}
	columns := make([]clickhouse.ColumnSpec, 0, len(stmt.Schema.DBNames))
	for _, name := range stmt.Schema.DBNames {
		field := stmt.Schema.FieldsByDBName[name]
		columns = append(columns, clickhouse.ColumnSpec{Name: name, Type: genericTypeOf(field)})
	}
	return stmt.Table, columns, nil
}

func (m migrator) AutoMigrate(values ...interface{}) error {
	for _, value := range values {
		if !m.HasTable(value) {
			if err := m.CreateTable(value); err != nil {
				return err
			}
		}
	}
	return nil
}

func (m migrator) CurrentDatabase() string {
	if m.conn == nil {
		return ""
	}
	var name string
	_ = m.conn.WithSelect(m.context(), "SELECT currentDatabase() AS name", nil, func(stream *clickhouse.ResultStream) error {
		row, err := stream.First()
		name, _ = row["name"].(string)
		return err
	})
	return name
}

func (m migrator) FullDataTypeOf(field *schema.Field) clause.Expr {
	return clause.Expr{SQL: m.db.Dialector.DataTypeOf(field)}
}

func (m migrator) GetTypeAliases(string) []string {
	return nil
}

func (m migrator) CreateTable(values ...interface{}) error {
	if m.conn == nil {
		return errUnsupportedMigration
	}
	for _, value := range values {
		table, columns, err := m.tableAndColumns(value)
		if err != nil {
			return err
		}
		if err := m.conn.CreateTable(m.context(), table, columns); err != nil {
			return err
		}
	}
	return nil
}

func (m migrator) DropTable(values ...interface{}) error {
	if m.conn == nil {
		return errUnsupportedMigration
	}
	for _, value := range values {
		table, _, err := m.tableAndColumns(value)
		if err != nil {
			return err
		}
		var quoted strings.Builder
		Dialector{}.QuoteTo(&quoted, table)
		if err := m.conn.Exec(m.context(), "DROP TABLE IF EXISTS "+quoted.String(), nil); err != nil {
			return err
		}
	}
	return nil
}

func (m migrator) HasTable(value interface{}) bool {
	if m.conn == nil {
		return false
	}
	table, _, err := m.tableAndColumns(value)
	if err != nil {
		return false
	}
	columns, err := m.conn.TableDetail(m.context(), table)
	return err == nil && len(columns) > 0
}

func (m migrator) RenameTable(_, _ interface{}) error {
	return errUnsupportedMigration
}

func (m migrator) GetTables() ([]string, error) {
	if m.conn == nil {
		return nil, errUnsupportedMigration
	}
	var tables []string
	err := m.conn.WithSelect(m.context(), "SHOW TABLES", nil, func(stream *clickhouse.ResultStream) error {
		for stream.Next() {
			if name, ok := stream.Row()["name"].(string); ok {
				tables = append(tables, name)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tables, nil
}

func (m migrator) TableType(_ interface{}) (gorm.TableType, error) {
	return nil, errUnsupportedMigration
}

func (m migrator) AddColumn(_ interface{}, _ string) error {
	return errUnsupportedMigration
}

func (m migrator) DropColumn(_ interface{}, _ string) error {
	return errUnsupportedMigration
}

func (m migrator) AlterColumn(_ interface{}, _ string) error {
	return errUnsupportedMigration
}

func (m migrator) MigrateColumn(_ interface{}, _ *schema.Field, _ gorm.ColumnType) error {
	return errUnsupportedMigration
}

func (m migrator) MigrateColumnUnique(_ interface{}, _ *schema.Field, _ gorm.ColumnType) error {
	return errUnsupportedMigration
}

func (m migrator) HasColumn(_ interface{}, _ string) bool {
	return false
}

func (m migrator) RenameColumn(_ interface{}, _ string, _ string) error {
	return errUnsupportedMigration
}

func (m migrator) ColumnTypes(_ interface{}) ([]gorm.ColumnType, error) {
	return nil, errUnsupportedMigration
}

func (m migrator) CreateView(_ string, _ gorm.ViewOption) error {
	return errUnsupportedMigration
}

func (m migrator) DropView(_ string) error {
	return errUnsupportedMigration
}

func (m migrator) CreateConstraint(_ interface{}, _ string) error {
	return errUnsupportedMigration
}

func (m migrator) DropConstraint(_ interface{}, _ string) error {
	return errUnsupportedMigration
}

func (m migrator) HasConstraint(_ interface{}, _ string) bool {
	return false
}

func (m migrator) CreateIndex(_ interface{}, _ string) error {
	return errUnsupportedMigration
}

func (m migrator) DropIndex(_ interface{}, _ string) error {
	return errUnsupportedMigration
}

func (m migrator) HasIndex(_ interface{}, _ string) bool {
	return false
}

func (m migrator) RenameIndex(_ interface{}, _ string, _ string) error {
	return errUnsupportedMigration
}

func (m migrator) GetIndexes(_ interface{}) ([]gorm.Index, error) {
	return nil, errUnsupportedMigration
}
