package tap_test

import (
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/msbentley/boa-utils/core"
)

const packetsResponse = `<?xml version="1.0"?>
<VOTABLE version="1.3">
  <RESOURCE type="results">
    <INFO name="QUERY_STATUS" value="OK"/>
    <TABLE>
      <FIELD name="spid" datatype="long" arraysize="1"/>
      <FIELD name="subsystem_id" datatype="char" arraysize="*"/>
      <FIELD name="on_board_time" datatype="char" arraysize="*"/>
      <DATA><TABLEDATA>
        <TR><TD>12345</TD><TD>MTM</TD><TD>2019-04-27 07:49:11.688</TD></TR>
        <TR><TD>12346</TD><TD>STR</TD><TD>2019-04-27 07:50:02.101</TD></TR>
      </TABLEDATA></DATA>
    </TABLE>
  </RESOURCE>
</VOTABLE>`

func TestQuery_Parameters(t *testing.T) {
	r := require.New(t)

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		r.Equal("/sync", req.URL.Path)

		params := req.URL.Query()
		r.Equal("ADQL", params.Get("LANG"))
		r.Equal("doQuery", params.Get("REQUEST"))
		r.Equal("100", params.Get("MAXREC"))
		r.Equal("select * from telemetry_packet", params.Get("QUERY"))

		io.WriteString(w, packetsResponse)
	}))

	_, err := client.Query(context.Background(), "select * from telemetry_packet", 100)
	r.NoError(err)
}

func TestQuery_DefaultMaxRows(t *testing.T) {
	r := require.New(t)

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		r.Equal("5000", req.URL.Query().Get("MAXREC"))
		io.WriteString(w, packetsResponse)
	}))

	_, err := client.Query(context.Background(), "select 1", 0)
	r.NoError(err)
}

func TestQuery_Table(t *testing.T) {
	r := require.New(t)

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		io.WriteString(w, packetsResponse)
	}))

	outcome, err := client.Query(context.Background(), "select * from telemetry_packet", 0)
	r.NoError(err)

	table, ok := outcome.Table()
	r.True(ok)
	r.Equal(core.Header{"spid", "subsystem_id", "on_board_time"}, table.Header())
	r.Equal(2, table.Len())

	rows, err := table.Rows(0, 1)
	r.NoError(err)
	// arraysize="1" numbers are squeezed to bare scalars
	r.Equal(core.Row{int64(12345), "MTM", "2019-04-27 07:49:11.688"}, rows[0])
}

func TestQuery_ScalarCollapse(t *testing.T) {
	r := require.New(t)

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		io.WriteString(w, `<VOTABLE><RESOURCE type="results"><TABLE>
			<FIELD name="subsystem_id" datatype="char" arraysize="*"/>
			<DATA><TABLEDATA><TR><TD>MTM</TD></TR></TABLEDATA></DATA>
		</TABLE></RESOURCE></VOTABLE>`)
	}))

	outcome, err := client.Query(context.Background(), "select distinct subsystem_id from subsystem", 0)
	r.NoError(err)

	r.Equal(core.OutcomeScalar, outcome.Kind())
	value, ok := outcome.Scalar()
	r.True(ok)
	r.Equal("MTM", value)
}

func TestQuery_ZeroRows(t *testing.T) {
	r := require.New(t)

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		io.WriteString(w, `<VOTABLE><RESOURCE type="results"><TABLE>
			<FIELD name="spid" datatype="long"/>
			<FIELD name="apid" datatype="int"/>
			<DATA><TABLEDATA/></DATA>
		</TABLE></RESOURCE></VOTABLE>`)
	}))

	outcome, err := client.Query(context.Background(), "select * from telemetry_packet where 1=0", 0)
	r.NoError(err)

	// no rows is still a table, with the column names intact
	table, ok := outcome.Table()
	r.True(ok)
	r.Equal(0, table.Len())
	r.Equal(core.Header{"spid", "apid"}, table.Header())
}

func TestQuery_ServiceError(t *testing.T) {
	r := require.New(t)

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		io.WriteString(w, `<VOTABLE><RESOURCE type="results">
			<INFO name="QUERY_STATUS" value="ERROR">syntax error</INFO>
		</RESOURCE></VOTABLE>`)
	}))

	_, err := client.Query(context.Background(), "select nope", 0)
	r.Error(err)
	r.Contains(err.Error(), "syntax error")
}
