package tap_test

import (
	"archive/tar"
	"bytes"
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/require"

	"github.com/msbentley/boa-utils/tap"
)

// tarGz builds an in-memory gzip-compressed tar archive.
func tarGz(t *testing.T, files map[string]string) []byte {
	t.Helper()

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)

	for name, content := range files {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name:     name,
			Typeflag: tar.TypeReg,
			Mode:     0o644,
			Size:     int64(len(content)),
		}))
		_, err := tw.Write([]byte(content))
		require.NoError(t, err)
	}

	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	return buf.Bytes()
}

func serveDownload(t *testing.T, filename string, body []byte, onRequest func(*http.Request)) *tap.Client {
	t.Helper()

	return newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if onRequest != nil {
			onRequest(req)
		}
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
		w.Write(body)
	}))
}

func TestRetrieve_TelemetryBinaryDispatch(t *testing.T) {
	r := require.New(t)

	query := "select * from boa.telemetry_packet where subsystem_id='MTM'"

	client := serveDownload(t, "packets.tar.gz", tarGz(t, map[string]string{"packets.gdds": "data"}),
		func(req *http.Request) {
			r.Equal("/retrieve-data", req.URL.Path)
			r.Equal("GDDS", req.URL.Query().Get("dataformat"))
			r.Equal(query, req.URL.Query().Get("QUERY"))
		})

	_, err := client.Retrieve(context.Background(), query, &tap.RetrieveOptions{Dir: t.TempDir()})
	r.NoError(err)
}

func TestRetrieve_TelemetryTextDispatch(t *testing.T) {
	r := require.New(t)

	query := "select * from boa.telemetry_packet"

	client := serveDownload(t, "packets.tar.gz", tarGz(t, map[string]string{"packets.xml": "<packets/>"}),
		func(req *http.Request) {
			r.Equal("XML", req.URL.Query().Get("dataformat"))
		})

	_, err := client.Retrieve(context.Background(), query, &tap.RetrieveOptions{Dir: t.TempDir(), Text: true})
	r.NoError(err)
}

func TestRetrieve_NonTelemetryQuerySplicedIntoURL(t *testing.T) {
	r := require.New(t)

	query := "select file from aux_files where name='sclk.tsc'"

	// an empty tar archive extracts to no members
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	r.NoError(tw.Close())

	client := serveDownload(t, "aux.tar", buf.Bytes(), func(req *http.Request) {
		// the whole query is percent-encoded into the URL, never
		// passed as structured parameters
		r.Equal("select%20file%20from%20aux_files%20where%20name%3D%27sclk.tsc%27", req.URL.RawQuery)
	})

	_, err := client.Retrieve(context.Background(), query, &tap.RetrieveOptions{Dir: t.TempDir()})
	r.NoError(err)
}

func TestRetrieve_NoExtract(t *testing.T) {
	r := require.New(t)

	dir := t.TempDir()
	client := serveDownload(t, "data.bin", []byte("payload"), nil)

	files, err := client.Retrieve(context.Background(), "select 1", &tap.RetrieveOptions{
		Dir:       dir,
		NoExtract: true,
	})
	r.NoError(err)
	r.Equal([]string{filepath.Join(dir, "data.bin")}, files)

	content, err := os.ReadFile(files[0])
	r.NoError(err)
	r.Equal("payload", string(content))
}

func TestRetrieve_FilenameQuotesStripped(t *testing.T) {
	r := require.New(t)

	dir := t.TempDir()
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Disposition", `attachment; filename="foo.tar.gz"`)
		w.Write(tarGz(t, map[string]string{"foo.dat": "x"}))
	}))

	files, err := client.Retrieve(context.Background(), "select 1", &tap.RetrieveOptions{
		Dir:       dir,
		NoExtract: true,
	})
	r.NoError(err)
	r.Equal(filepath.Join(dir, "foo.tar.gz"), files[0])
}

func TestRetrieve_MissingDisposition(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Write([]byte("payload"))
	}))

	_, err := client.Retrieve(context.Background(), "select 1", &tap.RetrieveOptions{Dir: t.TempDir()})
	require.ErrorIs(t, err, tap.ErrFilenameUnresolvable)
}

func TestRetrieve_ExtractSingleMember(t *testing.T) {
	r := require.New(t)

	dir := t.TempDir()
	client := serveDownload(t, "export.tar.gz", tarGz(t, map[string]string{
		"packets.gdds": "binary-payload",
	}), nil)

	files, err := client.Retrieve(context.Background(), "select 1", &tap.RetrieveOptions{Dir: dir})
	r.NoError(err)
	r.Equal([]string{filepath.Join(dir, "packets.gdds")}, files)

	content, err := os.ReadFile(files[0])
	r.NoError(err)
	r.Equal("binary-payload", string(content))
}

func TestRetrieve_ExtractManyMembers(t *testing.T) {
	r := require.New(t)

	dir := t.TempDir()
	client := serveDownload(t, "export.tar.gz", tarGz(t, map[string]string{
		"a.gdds": "a",
		"b.gdds": "b",
		"c.gdds": "c",
	}), nil)

	files, err := client.Retrieve(context.Background(), "select 1", &tap.RetrieveOptions{Dir: dir})
	r.NoError(err)
	r.Equal(3, len(files))

	for _, f := range files {
		_, err := os.Stat(f)
		r.NoError(err)
	}
}

func TestRetrieve_RejectsEscapingMembers(t *testing.T) {
	dir := t.TempDir()
	client := serveDownload(t, "evil.tar.gz", tarGz(t, map[string]string{
		"../evil.txt": "gotcha",
	}), nil)

	_, err := client.Retrieve(context.Background(), "select 1", &tap.RetrieveOptions{Dir: dir})
	require.Error(t, err)

	_, statErr := os.Stat(filepath.Join(filepath.Dir(dir), "evil.txt"))
	require.True(t, os.IsNotExist(statErr))
}
