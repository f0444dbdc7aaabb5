package database

import (
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
)

// Isolation level names accepted by TxOptions
const (
	IsolationReadCommitted  = "read_committed"
	IsolationRepeatableRead = "repeatable_read"
	IsolationSerializable   = "serializable"
)

// TxOptions maps an isolation level name to the options used when a unit of work begins.
// An empty name selects read committed.
func TxOptions(isolation string) (pgx.TxOptions, error) {
	switch strings.ToLower(strings.TrimSpace(isolation)) {
	case "", IsolationReadCommitted:
		return pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, nil
	case IsolationRepeatableRead:
		return pgx.TxOptions{IsoLevel: pgx.RepeatableRead}, nil
	case IsolationSerializable:
		return pgx.TxOptions{IsoLevel: pgx.Serializable}, nil
	default:
		return pgx.TxOptions{}, fmt.Errorf("unknown transaction isolation level %q", isolation)
	}
}
