package e

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Kind — закрытое множество видов отказа конвейера сопоставления.
type Kind int

const (
	KindUnknown Kind = iota
	KindInvalidInput
	KindFetchFailed
	KindUnreadableImage
	KindEmptyCatalog
	KindDimensionMismatch
	KindDegenerateEmbedding
)

var kindSentinels = map[Kind]error{
	KindInvalidInput:        ErrInvalidInput,
	KindFetchFailed:         ErrFetchFailed,
	KindUnreadableImage:     ErrUnreadableImage,
	KindEmptyCatalog:        ErrEmptyCatalog,
	KindDimensionMismatch:   ErrDimensionMismatch,
	KindDegenerateEmbedding: ErrDegenerateEmbedding,
}

// Code возвращает стабильный машинный код вида ошибки.
func (k Kind) Code() string {
	switch k {
	case KindInvalidInput:
		return "INVALID_INPUT"
	case KindFetchFailed:
		return "FETCH_FAILED"
	case KindUnreadableImage:
		return "UNREADABLE_IMAGE"
	case KindEmptyCatalog:
		return "EMPTY_CATALOG"
	case KindDimensionMismatch:
		return "DIMENSION_MISMATCH"
	case KindDegenerateEmbedding:
		return "DEGENERATE_EMBEDDING"
	default:
		return "INTERNAL"
	}
}

func (k Kind) String() string {
	return k.Code()
}

// MatchError — типизированный отказ с контекстом: где произошёл, какого вида и с какими деталями.
type MatchError struct {
	Kind    Kind
	Op      string
	Details map[string]any
	Err     error
}

// NewMatchError создаёт отказ заданного вида. err может быть nil.
func NewMatchError(kind Kind, op string, err error, details map[string]any) *MatchError {
	return &MatchError{
		Kind:    kind,
		Op:      op,
		Details: details,
		Err:     err,
	}
}

func (m *MatchError) Error() string {
	var b strings.Builder
	if m.Op != "" {
		b.WriteString(m.Op)
		b.WriteString(": ")
	}

	if sentinel, ok := kindSentinels[m.Kind]; ok {
		b.WriteString(sentinel.Error())
	} else {
		b.WriteString("internal error")
	}

	if len(m.Details) > 0 {
		keys := make([]string, 0, len(m.Details))
		for k := range m.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		b.WriteString(" [")
		for i, k := range keys {
			if i > 0 {
				b.WriteString(" ")
			}
			fmt.Fprintf(&b, "%s=%v", k, m.Details[k])
		}
		b.WriteString("]")
	}

	if m.Err != nil {
		b.WriteString(": ")
		b.WriteString(m.Err.Error())
	}

	return b.String()
}

// Unwrap отдаёт sentinel вида и причину, чтобы errors.Is работал по обоим.
func (m *MatchError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if sentinel, ok := kindSentinels[m.Kind]; ok {
		errs = append(errs, sentinel)
	}
	if m.Err != nil {
		errs = append(errs, m.Err)
	}

	return errs
}

// KindOf извлекает вид отказа из цепочки ошибок.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}

	var me *MatchError
	if errors.As(err, &me) {
		return me.Kind
	}

	for kind, sentinel := range kindSentinels {
		if errors.Is(err, sentinel) {
			return kind
		}
	}

	return KindUnknown
}
