package dataloader

import (
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/pkg/errors"
)

const (
	csvSuffix = ".csv"

	// https://docs.aws.amazon.com/redshift/latest/dg/r_CREATE_TABLE_usage.html
	maxColumns = 1600

	columnType = "VARCHAR(255)"
)

// SuffixMode selects how the table name is cut out of an object key.
type SuffixMode string

const (
	// SuffixFirstOccurrence truncates at the first ".csv" anywhere in the key.
	SuffixFirstOccurrence SuffixMode = "first"
	// SuffixStrict only removes a trailing ".csv".
	SuffixStrict SuffixMode = "strict"
)

// ParseSuffixMode maps a config value to a SuffixMode. Empty means SuffixFirstOccurrence.
func ParseSuffixMode(s string) (SuffixMode, error) {
	switch SuffixMode(strings.ToLower(s)) {
	case "", SuffixFirstOccurrence:
		return SuffixFirstOccurrence, nil
	case SuffixStrict:
		return SuffixStrict, nil
	}
	return "", errors.Errorf("unknown table suffix mode %q", s)
}

// TableSchema is the target table derived from one CSV object.
type TableSchema struct {
	Table   string
	Columns []string
}

// TableName derives the table name from an object key. Keys without ".csv"
// come back unchanged in both modes.
func TableName(key string, mode SuffixMode) string {
	if mode == SuffixStrict {
		return strings.TrimSuffix(key, csvSuffix)
	}
	if i := strings.Index(key, csvSuffix); i >= 0 {
		return key[:i]
	}
	return key
}

// ResolveSchema builds the table schema from the object key and header row.
func ResolveSchema(key string, doc Document, mode SuffixMode) (TableSchema, error) {
	header, err := doc.Header()
	if err != nil {
		return TableSchema{}, err
	}

	table := TableName(key, mode)
	if table == "" {
		return TableSchema{}, newError(KindSchema, "resolve table", errors.Errorf("object key %q yields an empty table name", key))
	}

	numOfCol := len(header)
	if numOfCol == 0 || numOfCol > maxColumns {
		return TableSchema{}, newError(KindSchema, "resolve columns", errors.Errorf("invalid number of columns in header: %d", numOfCol))
	}

	set := make(map[string]struct{}, numOfCol)
	columns := make([]string, 0, numOfCol)
	for i, name := range header {
		if strings.TrimSpace(name) == "" {
			return TableSchema{}, newError(KindSchema, "resolve columns", errors.Errorf("empty column name at position %d", i))
		}
		// Redshift folds identifiers to lower case, so A and a collide.
		folded := strings.ToLower(name)
		if _, ok := set[folded]; ok {
			return TableSchema{}, newError(KindSchema, "resolve columns", errors.Errorf("duplicate column name in header: %s", name))
		}
		set[folded] = struct{}{}
		columns = append(columns, name)
	}

	return TableSchema{Table: table, Columns: columns}, nil
}

// CreateTableQuery renders the conditional DDL with every identifier quoted.
func (s TableSchema) CreateTableQuery() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s(", pq.QuoteIdentifier(s.Table)))
	prefix := ""
	for _, col := range s.Columns {
		sb.WriteString(prefix)
		sb.WriteString(fmt.Sprintf("%s %s", pq.QuoteIdentifier(col), columnType))
		prefix = ", "
	}
	sb.WriteString(");")
	return sb.String()
}

// InsertQuery renders a positional insert with one placeholder per column.
func (s TableSchema) InsertQuery() string {
	placeholders := make([]string, len(s.Columns))
	for i := range s.Columns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	return fmt.Sprintf("INSERT INTO %s VALUES (%s);", pq.QuoteIdentifier(s.Table), strings.Join(placeholders, ", "))
}
