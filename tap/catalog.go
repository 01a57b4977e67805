package tap

import (
	"context"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/msbentley/boa-utils/core"
)

// The /tables endpoint speaks the VOSI tableset format, a separate
// XML schema from the VOTable results format.
type tableset struct {
	Schemas []vosiSchema `xml:"schema"`
}

type vosiSchema struct {
	Name   string     `xml:"name"`
	Tables []vosiTable `xml:"table"`
}

type vosiTable struct {
	Name    string       `xml:"name"`
	Columns []vosiColumn `xml:"column"`
}

type vosiColumn struct {
	Name     string `xml:"name"`
	DataType string `xml:"dataType"`
}

func (c *Client) tableset(ctx context.Context) (*tableset, error) {
	resp, err := c.get(ctx, c.queryURL+"/tables", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var ts tableset
	if err := xml.NewDecoder(resp.Body).Decode(&ts); err != nil {
		c.logger.Error("decoding tableset response", "error", err)
		return nil, fmt.Errorf("xml.Decode: %w", err)
	}

	return &ts, nil
}

// Tables lists the archive catalog: one structure per schema with its
// tables as children.
func (c *Client) Tables(ctx context.Context) ([]*core.Structure, error) {
	ts, err := c.tableset(ctx)
	if err != nil {
		return nil, err
	}

	structure := make([]*core.Structure, 0, len(ts.Schemas))
	for _, schema := range ts.Schemas {
		node := &core.Structure{
			Name:   schema.Name,
			Schema: schema.Name,
			Type:   core.StructureTypeSchema,
		}
		for _, table := range schema.Tables {
			node.Children = append(node.Children, &core.Structure{
				Name:   table.Name,
				Schema: schema.Name,
				Type:   core.StructureTypeTable,
			})
		}
		structure = append(structure, node)
	}

	return structure, nil
}

// Columns lists name and declared type of every column of the given
// table. A schema or table the catalog does not contain fails with a
// *NotFoundError rather than an empty result.
func (c *Client) Columns(ctx context.Context, schema, table string) ([]*core.Column, error) {
	ts, err := c.tableset(ctx)
	if err != nil {
		return nil, err
	}

	for _, s := range ts.Schemas {
		if !strings.EqualFold(s.Name, schema) {
			continue
		}

		for _, t := range s.Tables {
			if !strings.EqualFold(t.Name, table) {
				continue
			}

			columns := make([]*core.Column, 0, len(t.Columns))
			for _, col := range t.Columns {
				columns = append(columns, &core.Column{
					Name: col.Name,
					Type: col.DataType,
				})
			}
			return columns, nil
		}

		return nil, &NotFoundError{Schema: schema, Table: table}
	}

	return nil, &NotFoundError{Schema: schema}
}
