package errors

import (
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

// ErrorDump flattens an error chain plus driver diagnostics for logging.
type ErrorDump struct {
	TopMessage string `json:"top_message"`
	Code       Code   `json:"code,omitempty"`

	Chain []string `json:"chain,omitempty"`

	PGCode       string `json:"pg_code,omitempty"`
	PGConstraint string `json:"pg_constraint,omitempty"`
	PGTable      string `json:"pg_table,omitempty"`
	PGColumn     string `json:"pg_column,omitempty"`
	PGDetail     string `json:"pg_detail,omitempty"`
	PGMessage    string `json:"pg_message,omitempty"`

	MySQLNumber  uint16 `json:"mysql_number,omitempty"`
	MySQLMessage string `json:"mysql_message,omitempty"`

	SQLiteCode    int    `json:"sqlite_code,omitempty"`
	SQLiteMessage string `json:"sqlite_message,omitempty"`
}

func Dump(err error) ErrorDump {
	if err == nil {
		return ErrorDump{}
	}

	d := ErrorDump{
		TopMessage: err.Error(),
	}

	if te := As(err); te != nil {
		d.Code = te.Code()
	}

	for e := err; e != nil; e = errors.Unwrap(e) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T: %v", e, e))
	}

	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		d.PGCode = pgxErr.Code
		d.PGConstraint = pgxErr.ConstraintName
		d.PGTable = pgxErr.TableName
		d.PGColumn = pgxErr.ColumnName
		d.PGDetail = pgxErr.Detail
		d.PGMessage = pgxErr.Message
		return d
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		d.PGCode = string(pqErr.Code)
		d.PGConstraint = pqErr.Constraint
		d.PGTable = pqErr.Table
		d.PGColumn = pqErr.Column
		d.PGDetail = pqErr.Detail
		d.PGMessage = pqErr.Message
		return d
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		d.MySQLNumber = myErr.Number
		d.MySQLMessage = myErr.Message
		return d
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		d.SQLiteCode = int(liteErr.Code)
		d.SQLiteMessage = liteErr.Error()
	}

	return d
}

// Fields returns the non-empty dump entries as a flat log map.
func (d ErrorDump) Fields() map[string]any {
	out := map[string]any{}
	if d.Code != "" {
		out["error_code"] = string(d.Code)
	}
	if len(d.Chain) > 0 {
		out["error_chain"] = d.Chain
	}
	if d.PGCode != "" {
		out["pg_code"] = d.PGCode
		out["pg_constraint"] = d.PGConstraint
		out["pg_table"] = d.PGTable
		out["pg_detail"] = d.PGDetail
		out["pg_message"] = d.PGMessage
	}
	if d.MySQLNumber != 0 {
		out["mysql_number"] = d.MySQLNumber
		out["mysql_message"] = d.MySQLMessage
	}
	if d.SQLiteCode != 0 {
		out["sqlite_code"] = d.SQLiteCode
		out["sqlite_message"] = d.SQLiteMessage
	}
	return out
}
