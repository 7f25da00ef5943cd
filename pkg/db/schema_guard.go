package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// ColumnType represents expected column schema
type ColumnType struct {
	Name     string
	DataType string
	Nullable bool
}

// TableSchema represents expected table structure
type TableSchema struct {
	Name    string
	Columns []ColumnType
}

// SchemaGuard validates that the migrated schema matches what the
// repositories read and write, so a missing migration fails at startup
// instead of on the first money-moving request.
type SchemaGuard struct {
	db *sql.DB
}

// NewSchemaGuard creates a new schema guard
func NewSchemaGuard(db *sql.DB) *SchemaGuard {
	return &SchemaGuard{db: db}
}

// ValidateTable validates a table's schema
func (sg *SchemaGuard) ValidateTable(ctx context.Context, schema TableSchema) error {
	query := `
		SELECT COLUMN_NAME, DATA_TYPE, IS_NULLABLE
		FROM INFORMATION_SCHEMA.COLUMNS
		WHERE TABLE_SCHEMA = DATABASE()
		AND TABLE_NAME = ?
		ORDER BY ORDINAL_POSITION
	`

	rows, err := sg.db.QueryContext(ctx, query, schema.Name)
	if err != nil {
		return fmt.Errorf("failed to query table schema for %s: %w", schema.Name, err)
	}
	defer rows.Close()

	actualColumns := make(map[string]ColumnType)
	for rows.Next() {
		var colName, dataType, isNullable string
		if err := rows.Scan(&colName, &dataType, &isNullable); err != nil {
			return fmt.Errorf("failed to scan column info: %w", err)
		}
		actualColumns[colName] = ColumnType{
			Name:     colName,
			DataType: dataType,
			Nullable: isNullable == "YES",
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to read column info for %s: %w", schema.Name, err)
	}

	if len(actualColumns) == 0 {
		return fmt.Errorf("table %s does not exist or has no columns", schema.Name)
	}

	for _, expectedCol := range schema.Columns {
		actualCol, exists := actualColumns[expectedCol.Name]
		if !exists {
			return fmt.Errorf("table %s missing expected column: %s", schema.Name, expectedCol.Name)
		}
		if !matchesDataType(actualCol.DataType, expectedCol.DataType) {
			return fmt.Errorf("table %s column %s has type %s, expected %s",
				schema.Name, expectedCol.Name, actualCol.DataType, expectedCol.DataType)
		}
		if actualCol.Nullable != expectedCol.Nullable {
			return fmt.Errorf("table %s column %s nullable=%t, expected %t",
				schema.Name, expectedCol.Name, actualCol.Nullable, expectedCol.Nullable)
		}
	}

	return nil
}

// matchesDataType compares base types, so decimal matches decimal(20,8).
func matchesDataType(actual, expected string) bool {
	actual = strings.ToLower(actual)
	expected = strings.ToLower(expected)
	return actual == expected || strings.HasPrefix(actual, expected+"(")
}

// ValidateTables validates multiple tables
func (sg *SchemaGuard) ValidateTables(ctx context.Context, schemas []TableSchema) error {
	for _, schema := range schemas {
		if err := sg.ValidateTable(ctx, schema); err != nil {
			return err
		}
	}
	return nil
}

// LedgerTables lists the money-carrying columns checked at startup.
func LedgerTables() []TableSchema {
	money := func(name string) ColumnType { return ColumnType{Name: name, DataType: "decimal"} }
	return []TableSchema{
		{Name: "wallets", Columns: []ColumnType{
			{Name: "user_id", DataType: "bigint"},
			{Name: "currency", DataType: "varchar"},
			money("balance"), money("roi_balance"), money("referral_balance"),
			money("binary_balance"), money("total_deposited"), money("total_withdrawn"),
		}},
		{Name: "binary_tree", Columns: []ColumnType{
			{Name: "user_id", DataType: "bigint"},
			{Name: "parent_id", DataType: "bigint", Nullable: true},
			{Name: "position", DataType: "enum", Nullable: true},
			{Name: "left_child_id", DataType: "bigint", Nullable: true},
			{Name: "right_child_id", DataType: "bigint", Nullable: true},
			money("left_volume"), money("right_volume"),
			money("left_carry_forward"), money("right_carry_forward"), money("total_matched"),
		}},
		{Name: "investments", Columns: []ColumnType{
			money("amount"), money("roi_rate"), money("total_roi_earned"),
			{Name: "start_date", DataType: "date"},
			{Name: "end_date", DataType: "date"},
			{Name: "days_elapsed", DataType: "int"},
		}},
		{Name: "roi_payouts", Columns: []ColumnType{
			{Name: "investment_id", DataType: "bigint"},
			{Name: "payout_date", DataType: "date"},
			money("amount"),
		}},
		{Name: "transactions", Columns: []ColumnType{
			money("amount"), money("fee"), money("net_amount"),
			{Name: "reference_id", DataType: "bigint", Nullable: true},
		}},
		{Name: "withdrawal_requests", Columns: []ColumnType{
			money("amount"), money("fee"), money("net_amount"),
			{Name: "approved_by", DataType: "bigint", Nullable: true},
		}},
	}
}
