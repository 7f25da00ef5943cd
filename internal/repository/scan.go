package repository

import (
	"database/sql"
	"errors"
	"time"
)

// Conditions reported by conditional updates. Services translate them into
// typed errors.
var (
	ErrWalletNotFound    = errors.New("wallet not found")
	ErrInsufficientFunds = errors.New("insufficient balance")
	ErrAlreadySettled    = errors.New("withdrawal request already processed")
)

const dateLayout = "2006-01-02"

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func nullUint64(v sql.NullInt64) *uint64 {
	if !v.Valid {
		return nil
	}
	u := uint64(v.Int64)
	return &u
}

func nullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func nullTime(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}

func uint64Arg(p *uint64) interface{} {
	if p == nil {
		return nil
	}
	return *p
}

func stringArg(p *string) interface{} {
	if p == nil {
		return nil
	}
	return *p
}

func lastInsertID(res sql.Result) (uint64, error) {
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}
