package tap

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// telemetryPacketTable marks a query as a telemetry-packet export.
// The bulk endpoint only accepts structured parameters for these;
// everything else has the whole query percent-encoded into the URL.
const telemetryPacketTable = "boa.telemetry_packet"

// data formats offered for telemetry-packet exports
const (
	formatBinary = "GDDS"
	formatText   = "XML"
)

// downloadChunkSize bounds the copy buffer so large telemetry
// archives never have to fit in memory.
const downloadChunkSize = 100_000

// RetrieveOptions configure a bulk download. The zero value requests
// the binary export, extraction, and the current directory - matching
// the archive's usual usage.
type RetrieveOptions struct {
	// Dir is the destination directory. Empty means the current
	// directory.
	Dir string
	// Text requests the XML export instead of the binary GDDS format.
	// Only meaningful for telemetry-packet queries.
	Text bool
	// NoExtract keeps the downloaded file as-is instead of treating
	// it as a tar archive and expanding it.
	NoExtract bool
}

// Retrieve downloads the files selected by query into the destination
// directory. When the download is extracted, the returned slice holds
// the extracted member paths; otherwise it holds the single
// downloaded file path.
func (c *Client) Retrieve(ctx context.Context, query string, opts *RetrieveOptions) ([]string, error) {
	if opts == nil {
		opts = &RetrieveOptions{}
	}
	dir := opts.Dir
	if dir == "" {
		dir = "."
	}

	var resp *http.Response
	var err error

	if strings.Contains(query, telemetryPacketTable) {
		format := formatBinary
		if opts.Text {
			format = formatText
		}
		params := url.Values{
			"dataformat": {format},
			"QUERY":      {query},
		}
		resp, err = c.get(ctx, c.retrieveURL+"/retrieve-data", params)
	} else {
		// The endpoint takes no structured parameters here; the
		// percent-encoded query is spliced into the URL directly.
		encoded := strings.ReplaceAll(url.QueryEscape(query), "+", "%20")
		resp, err = c.get(ctx, c.retrieveURL+"/retrieve-data?"+encoded, nil)
	}
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	filename, err := filenameFromDisposition(resp.Header.Get("Content-Disposition"))
	if err != nil {
		c.logger.Error("resolving download filename", "error", err)
		return nil, err
	}

	downloaded := filepath.Join(dir, filename)
	if err := writeChunked(downloaded, resp.Body); err != nil {
		return nil, err
	}
	c.logger.Info("retrieved file", "file", filename)

	if opts.NoExtract {
		return []string{downloaded}, nil
	}

	members, err := extractTar(downloaded, dir)
	if err != nil {
		return nil, fmt.Errorf("extracting %s: %w", filename, err)
	}
	c.logger.Info("extracted files", "archive", filename, "members", len(members))

	return members, nil
}

var dispositionFilename = regexp.MustCompile(`filename=(.+)`)

// filenameFromDisposition pulls the served filename out of a
// content-disposition header. The archive always names its downloads;
// a response without one cannot be stored and is an error.
func filenameFromDisposition(cd string) (string, error) {
	if cd == "" {
		return "", ErrFilenameUnresolvable
	}

	match := dispositionFilename.FindStringSubmatch(cd)
	if match == nil {
		return "", ErrFilenameUnresolvable
	}

	filename := strings.Trim(strings.TrimSpace(match[1]), `"`)
	// discard any path component the server may have smuggled in
	filename = filepath.Base(filename)
	if filename == "." || filename == string(filepath.Separator) || filename == "" {
		return "", ErrFilenameUnresolvable
	}

	return filename, nil
}

// writeChunked streams the body to disk through a fixed-size buffer.
// A failed write removes the partial file rather than leaving a
// truncated download behind.
func writeChunked(path string, body io.Reader) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("os.Create: %w", err)
	}

	buf := make([]byte, downloadChunkSize)
	if _, err := io.CopyBuffer(f, body, buf); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("writing %s: %w", path, err)
	}

	if err := f.Close(); err != nil {
		os.Remove(path)
		return fmt.Errorf("closing %s: %w", path, err)
	}
	return nil
}

// memberPath resolves an archive member name inside the destination
// directory, rejecting names that would escape it.
func memberPath(dir, name string) (string, error) {
	path := filepath.Join(dir, name)

	rel, err := filepath.Rel(dir, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("archive member %q escapes destination directory", name)
	}
	return path, nil
}

// extractTar expands a tar archive (gzip-compressed or plain) into
// dir and returns the paths of the extracted regular files.
func extractTar(archivePath, dir string) ([]string, error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return nil, fmt.Errorf("os.Open: %w", err)
	}
	defer f.Close()

	var reader io.Reader = f
	if strings.HasSuffix(archivePath, ".gz") || strings.HasSuffix(archivePath, ".tgz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("gzip.NewReader: %w", err)
		}
		defer gz.Close()
		reader = gz
	}

	var members []string

	tr := tar.NewReader(reader)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("tar.Next: %w", err)
		}

		path, err := memberPath(dir, hdr.Name)
		if err != nil {
			return nil, err
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(path, 0o755); err != nil {
				return nil, fmt.Errorf("os.MkdirAll: %w", err)
			}

		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return nil, fmt.Errorf("os.MkdirAll: %w", err)
			}
			if err := writeChunked(path, tr); err != nil {
				return nil, err
			}
			members = append(members, path)
		}
	}

	return members, nil
}
