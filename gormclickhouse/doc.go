// Package gormclickhouse provides a GORM dialector that executes ClickHouse SQL over the
// HTTP interface of a clickhouse.Connection.
//
// Limitations:
//   - Transactions are not supported; Begin always fails.
//   - UPDATE and DELETE statements are sent as written, and ClickHouse rejects them
//     unless they use its ALTER TABLE mutation syntax.
//   - AutoMigrate only creates missing tables; existing tables are never altered.
package gormclickhouse
