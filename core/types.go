package core

type (
	// Row and Header are attributes of the ResultStream iterator.
	Row    []any
	Header []string

	// ResultStream is a result from an executed query in the form of
	// an iterator.
	ResultStream interface {
		Header() Header
		Next() (Row, error)
		HasNext() bool
		Close()
	}
)

type (
	// FormatterOptions provide various options for formatters.
	FormatterOptions struct {
		ChunkStart int
	}

	// Formatter converts a header and rows to bytes.
	Formatter interface {
		Format(header Header, rows []Row, opts *FormatterOptions) ([]byte, error)
	}
)

// Column describes a single column of an archive table with its
// declared type.
type Column struct {
	Name string
	Type string
}

type StructureType int

const (
	StructureTypeNone StructureType = iota
	StructureTypeSchema
	StructureTypeTable
)

func (s StructureType) String() string {
	switch s {
	case StructureTypeSchema:
		return "schema"
	case StructureTypeTable:
		return "table"
	default:
		return ""
	}
}

// Structure represents a node of the archive catalog. The metadata
// endpoint returns one Structure per schema with its tables as
// children.
type Structure struct {
	// Name to be displayed
	Name   string
	Schema string
	Type   StructureType
	// Children catalog nodes
	Children []*Structure
}
