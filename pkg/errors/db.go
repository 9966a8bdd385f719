package errors

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

// DBErrorKind groups database failures by how a writer should react to them.
type DBErrorKind int

const (
	DBUnknown DBErrorKind = iota
	DBNotFound
	DBDuplicateKey
	DBDataTooLong
	DBInvalidValue
	DBDeadlock
	DBConnection
)

func (k DBErrorKind) String() string {
	switch k {
	case DBNotFound:
		return "not_found"
	case DBDuplicateKey:
		return "duplicate_key"
	case DBDataTooLong:
		return "data_too_long"
	case DBInvalidValue:
		return "invalid_value"
	case DBDeadlock:
		return "deadlock"
	case DBConnection:
		return "connection"
	default:
		return "unknown"
	}
}

// Retryable reports whether running the same statement again may succeed.
func (k DBErrorKind) Retryable() bool {
	return k == DBDeadlock || k == DBConnection
}

// DBError is a classified database failure.
type DBError struct {
	Kind DBErrorKind
	// Code is the MySQL error number, zero for non-MySQL errors.
	Code uint16
	Err  error
}

func (e *DBError) Error() string {
	if e.Code > 0 {
		return fmt.Sprintf("database %s (MySQL error %d): %v", e.Kind, e.Code, e.Err)
	}
	return fmt.Sprintf("database %s: %v", e.Kind, e.Err)
}

func (e *DBError) Unwrap() error {
	return e.Err
}

// mysqlKinds maps MySQL error numbers to kinds.
var mysqlKinds = map[uint16]DBErrorKind{
	1062: DBDuplicateKey, // ER_DUP_ENTRY
	1406: DBDataTooLong,  // ER_DATA_TOO_LONG
	1048: DBInvalidValue, // ER_BAD_NULL_ERROR
	1265: DBInvalidValue, // WARN_DATA_TRUNCATED
	1366: DBInvalidValue, // ER_TRUNCATED_WRONG_VALUE_FOR_FIELD
	1213: DBDeadlock,     // ER_LOCK_DEADLOCK
	1205: DBDeadlock,     // ER_LOCK_WAIT_TIMEOUT
}

var connectionHints = []string{
	"connection refused",
	"connection reset",
	"broken pipe",
	"no such host",
	"i/o timeout",
	"invalid connection",
	"bad connection",
	"can't connect",
	"dial tcp",
}

// ClassifyDB classifies a GORM or MySQL driver error. It returns nil for nil.
func ClassifyDB(err error) *DBError {
	if err == nil {
		return nil
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &DBError{Kind: DBNotFound, Err: err}
	}

	var me *mysql.MySQLError
	if errors.As(err, &me) {
		kind, ok := mysqlKinds[me.Number]
		if !ok {
			kind = DBUnknown
		}
		return &DBError{Kind: kind, Code: me.Number, Err: err}
	}

	if errors.Is(err, mysql.ErrInvalidConn) {
		return &DBError{Kind: DBConnection, Err: err}
	}
	msg := strings.ToLower(err.Error())
	for _, hint := range connectionHints {
		if strings.Contains(msg, hint) {
			return &DBError{Kind: DBConnection, Err: err}
		}
	}

	return &DBError{Kind: DBUnknown, Err: err}
}

// DBKindOf returns the kind of err, DBUnknown for nil.
func DBKindOf(err error) DBErrorKind {
	if e := ClassifyDB(err); e != nil {
		return e.Kind
	}
	return DBUnknown
}
