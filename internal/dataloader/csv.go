package dataloader

import (
	"bytes"
	"encoding/csv"

	"github.com/pkg/errors"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Document is a fully materialized CSV payload. The first record is the header.
type Document struct {
	records [][]string
}

// Len is the number of records including the header.
func (doc Document) Len() int {
	return len(doc.records)
}

// Header returns the column name row.
func (doc Document) Header() ([]string, error) {
	if len(doc.records) == 0 {
		return nil, newError(KindSchema, "read header", ErrEmptyDocument)
	}
	return doc.records[0], nil
}

// Rows returns every record after the header.
func (doc Document) Rows() [][]string {
	if len(doc.records) < 2 {
		return nil
	}
	return doc.records[1:]
}

// DecodeCSV parses content as comma separated UTF-8 text. Bare quotes inside
// unquoted fields are kept literally. Field counts are not checked here, the
// loader reports mismatched rows.
func DecodeCSV(content []byte) (Document, error) {
	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(content, utf8BOM)))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	records, err := r.ReadAll()
	if err != nil {
		return Document{}, newError(KindDecode, "parse csv", errors.WithStack(err))
	}
	return Document{records: records}, nil
}
