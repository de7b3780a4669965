package parse

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/kaptinlin/jsonrepair"
)

// ErrParse is matched by every *ParseFailure.
var ErrParse = errors.New("jsonguard: response is not well-formed JSON")

// ParseFailure reports text that is not a single well-formed JSON value.
type ParseFailure struct {
	// Message is the underlying JSON parser's diagnostic.
	Message string
	// Offset is the number of bytes consumed when parsing failed, counting
	// the offending byte, or -1 when the parser did not report one.
	Offset int64
	// RawText is the text that failed to parse.
	RawText string
	// Repairable reports whether a JSON repair pass would have yielded a
	// valid document. Informational only.
	Repairable bool
}

func (e *ParseFailure) Error() string {
	if e.Offset >= 0 {
		return fmt.Sprintf("invalid JSON at offset %d: %s", e.Offset, e.Message)
	}
	return "invalid JSON: " + e.Message
}

// Is makes every ParseFailure match ErrParse.
func (e *ParseFailure) Is(target error) bool {
	return target == ErrParse
}

// Parse decodes raw as exactly one JSON value. Objects become map[string]any,
// arrays []any, numbers json.Number, and null becomes nil. Leading and
// trailing whitespace is allowed; anything else around the value is not.
// Numbers keep their literal text, so values outside the float64 range are
// accepted. Text that is not valid UTF-8 is rejected.
func Parse(raw string) (any, error) {
	if i := invalidUTF8(raw); i >= 0 {
		return nil, newFailure(raw, "invalid UTF-8 in input", int64(i)+1)
	}

	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()

	var value any
	if err := dec.Decode(&value); err != nil {
		return nil, newParseFailure(raw, err)
	}

	end := dec.InputOffset()
	rest := raw[end:]
	if trailing := strings.TrimLeft(rest, " \t\r\n"); trailing != "" {
		r, _ := utf8.DecodeRuneInString(trailing)
		offset := end + int64(len(rest)-len(trailing)) + 1
		return nil, newFailure(raw, fmt.Sprintf("invalid character %q after top-level value", r), offset)
	}

	return value, nil
}

// ParseObject is like Parse but also returns whether the top-level value is
// a JSON object.
func ParseObject(raw string) (map[string]any, bool, error) {
	value, err := Parse(raw)
	if err != nil {
		return nil, false, err
	}
	obj, ok := value.(map[string]any)
	return obj, ok, nil
}

func newParseFailure(raw string, err error) *ParseFailure {
	failure := newFailure(raw, err.Error(), -1)

	var (
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
	)
	switch {
	case errors.As(err, &syntaxErr):
		failure.Offset = syntaxErr.Offset
	case errors.As(err, &typeErr):
		failure.Offset = typeErr.Offset
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		failure.Message = "unexpected end of JSON input"
		failure.Offset = int64(len(raw))
	}

	return failure
}

func newFailure(raw, message string, offset int64) *ParseFailure {
	return &ParseFailure{
		Message:    message,
		Offset:     offset,
		RawText:    raw,
		Repairable: repairable(raw),
	}
}

// invalidUTF8 returns the index of the first byte of raw that is not part of
// a valid UTF-8 sequence, or -1.
func invalidUTF8(raw string) int {
	for i := 0; i < len(raw); {
		r, size := utf8.DecodeRuneInString(raw[i:])
		if r == utf8.RuneError && size == 1 {
			return i
		}
		i += size
	}
	return -1
}

// repairable reports whether jsonrepair turns raw into a valid JSON document.
func repairable(raw string) bool {
	repaired, err := jsonrepair.JSONRepair(raw)
	if err != nil {
		return false
	}
	return json.Valid([]byte(repaired))
}
