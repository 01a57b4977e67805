package format_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/msbentley/boa-utils/core"
	"github.com/msbentley/boa-utils/core/format"
)

var (
	formatHeader = core.Header{"subsystem_id", "apid"}
	formatRows   = []core.Row{
		{"MTM", int64(84)},
		{"MERTIS", int64(113)},
	}
)

func TestCSV(t *testing.T) {
	r := require.New(t)

	out, err := core.NewResultFromRows(formatHeader, formatRows).Format(format.NewCSV())
	r.NoError(err)
	r.Equal("subsystem_id,apid\nMTM,84\nMERTIS,113\n", string(out))
}

func TestJSON(t *testing.T) {
	r := require.New(t)

	out, err := core.NewResultFromRows(formatHeader, formatRows).Format(format.NewJSON())
	r.NoError(err)

	var decoded []map[string]any
	r.NoError(json.Unmarshal(out, &decoded))
	r.Len(decoded, 2)
	r.Equal("MTM", decoded[0]["subsystem_id"])
	r.Equal(float64(84), decoded[0]["apid"])
}

func TestTable(t *testing.T) {
	r := require.New(t)

	out, err := core.NewResultFromRows(formatHeader, formatRows).Format(format.NewTable())
	r.NoError(err)

	rendered := string(out)
	r.Contains(rendered, "subsystem_id")
	r.Contains(rendered, "MERTIS")

	// rows are numbered from one
	r.Contains(rendered, " 1 ")
	r.Contains(rendered, " 2 ")

	lines := strings.Split(rendered, "\n")
	r.GreaterOrEqual(len(lines), 3)
}
