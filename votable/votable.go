// Package votable decodes the VOTable XML wire format used by TAP
// services into a result stream.
//
// Only the parts of the format the archive actually emits are
// covered: a single RESOURCE/TABLE with FIELD definitions and inline
// TABLEDATA rows. Binary serializations (BINARY, FITS) are not
// supported.
package votable

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/msbentley/boa-utils/core"
	"github.com/msbentley/boa-utils/core/builders"
)

var ErrNoTable = errors.New("votable: document contains no table")

// QueryError is the error status a TAP service reports inside an
// otherwise valid VOTable document (INFO name="QUERY_STATUS").
type QueryError struct {
	Message string
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("votable: query failed: %s", e.Message)
}

type document struct {
	Resource struct {
		Infos []info `xml:"INFO"`
		Table *struct {
			Fields []field `xml:"FIELD"`
			Rows   []row   `xml:"DATA>TABLEDATA>TR"`
		} `xml:"TABLE"`
	} `xml:"RESOURCE"`
}

type info struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
	Text  string `xml:",chardata"`
}

type field struct {
	Name      string `xml:"name,attr"`
	Datatype  string `xml:"datatype,attr"`
	Arraysize string `xml:"arraysize,attr"`
}

type row struct {
	Cells []cell `xml:"TD"`
}

type cell struct {
	Value string `xml:",chardata"`
}

// Decode parses a VOTable document into a result stream whose header
// matches the FIELD names in document order.
func Decode(r io.Reader) (core.ResultStream, error) {
	var doc document
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("xml.Decode: %w", err)
	}

	for _, inf := range doc.Resource.Infos {
		if inf.Name == "QUERY_STATUS" && inf.Value == "ERROR" {
			return nil, &QueryError{Message: strings.TrimSpace(inf.Text)}
		}
	}

	table := doc.Resource.Table
	if table == nil {
		return nil, ErrNoTable
	}

	header := make(core.Header, len(table.Fields))
	for i, f := range table.Fields {
		header[i] = f.Name
	}

	rows := make([]core.Row, len(table.Rows))
	for i, tr := range table.Rows {
		if len(tr.Cells) != len(table.Fields) {
			return nil, fmt.Errorf("row %d has %d cells, expected %d", i, len(tr.Cells), len(table.Fields))
		}

		out := make(core.Row, len(tr.Cells))
		for j, td := range tr.Cells {
			val, err := convertCell(td.Value, &table.Fields[j])
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", i, err)
			}
			out[j] = val
		}
		rows[i] = out
	}

	next, hasNext := builders.NextRows(rows)

	return builders.NewResultStreamBuilder().
		WithNextFunc(next, hasNext).
		WithHeader(header).
		Build(), nil
}

// isCharacter reports whether the datatype encodes text, for which
// arraysize is the string length rather than an element count.
func isCharacter(datatype string) bool {
	return datatype == "char" || datatype == "unicodeChar"
}

// convertCell converts a single TD value according to its FIELD
// declaration. Array-valued fields arrive space-separated; a
// one-element array is squeezed to the bare scalar.
func convertCell(raw string, f *field) (any, error) {
	if isCharacter(f.Datatype) || f.Datatype == "" {
		return raw, nil
	}

	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	if f.Arraysize == "" || f.Arraysize == "1" {
		return convertScalar(raw, f)
	}

	parts := strings.Fields(raw)
	if len(parts) == 1 {
		return convertScalar(parts[0], f)
	}

	values := make([]any, len(parts))
	for i, part := range parts {
		val, err := convertScalar(part, f)
		if err != nil {
			return nil, err
		}
		values[i] = val
	}
	return values, nil
}

func convertScalar(raw string, f *field) (any, error) {
	switch f.Datatype {
	case "short", "int", "long", "unsignedByte":
		val, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("field %q: parsing %q as %s: %w", f.Name, raw, f.Datatype, err)
		}
		return val, nil

	case "float", "double":
		val, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("field %q: parsing %q as %s: %w", f.Name, raw, f.Datatype, err)
		}
		return val, nil

	case "boolean":
		switch strings.ToLower(raw) {
		case "true", "t", "1":
			return true, nil
		case "false", "f", "0":
			return false, nil
		}
		return nil, fmt.Errorf("field %q: parsing %q as boolean", f.Name, raw)

	default:
		// unknown datatypes pass through as text
		return raw, nil
	}
}
