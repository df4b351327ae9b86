package dataloader

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies a load failure by the stage that produced it.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotification
	KindFetch
	KindDecode
	KindSchema
	KindConnect
	KindDDL
	KindInsert
)

func (k Kind) String() string {
	switch k {
	case KindNotification:
		return "notification"
	case KindFetch:
		return "fetch"
	case KindDecode:
		return "decode"
	case KindSchema:
		return "schema"
	case KindConnect:
		return "connect"
	case KindDDL:
		return "ddl"
	case KindInsert:
		return "insert"
	}
	return "unknown"
}

// Error is returned by every DataLoader stage.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Cause lets errors.Cause walk through an *Error.
func (e *Error) Cause() error { return e.Err }

func newError(kind Kind, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// ErrEmptyDocument is returned when a CSV payload has no header row.
var ErrEmptyDocument = errors.New("csv document has no header row")
