package tap

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/msbentley/boa-utils/core"
	"github.com/msbentley/boa-utils/votable"
)

// Query runs a synchronous ADQL query against the archive. maxRows
// caps the result size; zero or negative means DefaultMaxRows.
//
// The outcome follows the archive's collapse rule: a one-row
// one-column result is a scalar, everything else - a zero-row result
// included - is a table with the response's column names.
func (c *Client) Query(ctx context.Context, adql string, maxRows int) (*core.Outcome, error) {
	if maxRows <= 0 {
		maxRows = DefaultMaxRows
	}

	params := url.Values{
		"LANG":    {"ADQL"},
		"REQUEST": {"doQuery"},
		"MAXREC":  {strconv.Itoa(maxRows)},
		"QUERY":   {adql},
	}

	resp, err := c.get(ctx, c.queryURL+"/sync", params)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	stream, err := votable.Decode(resp.Body)
	if err != nil {
		c.logger.Error("decoding query response", "error", err)
		return nil, fmt.Errorf("votable.Decode: %w", err)
	}

	result, err := core.NewResult(stream)
	if err != nil {
		return nil, fmt.Errorf("core.NewResult: %w", err)
	}

	return core.CollapseResult(result), nil
}
