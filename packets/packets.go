// Package packets is a convenience layer over the archive client for
// telemetry-packet queries: filter construction, subsystem
// validation, and result cleanup.
package packets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/msbentley/boa-utils/core"
	"github.com/msbentley/boa-utils/tap"
)

// TimeFormat is the archive's time literal format for ADQL queries.
const TimeFormat = "2006-01-02 15:04:05.000000"

// parseLayout is TimeFormat without the fraction; time.Parse accepts
// an optional fractional second on input regardless of the layout.
const parseLayout = "2006-01-02 15:04:05"

const (
	packetTable     = "TELEMETRY_PACKET"
	exportTable     = "boa.telemetry_packet"
	subsystemsQuery = "select distinct subsystem_id from subsystem"
)

// adminColumns are the administrative columns dropped from reduced
// results.
var adminColumns = []string{
	"item_id",
	"ground_station_id",
	"mib_version",
	"inactive",
	"ingested_time",
	"bscs_ingestion_time",
	"proprietary_end_date",
	"retrieval_url",
	"telemetry_packet_oid",
}

// ErrUnknownSubsystem is returned when a requested subsystem is not
// part of the archive's live subsystem enumeration.
var ErrUnknownSubsystem = errors.New("unknown subsystem")

type (
	// Querier is the query surface of the archive client.
	Querier interface {
		Query(ctx context.Context, adql string, maxRows int) (*core.Outcome, error)
	}

	// Retriever is the bulk-download surface of the archive client.
	Retriever interface {
		Retrieve(ctx context.Context, query string, opts *tap.RetrieveOptions) ([]string, error)
	}

	// Archive combines the two; *tap.Client satisfies it.
	Archive interface {
		Querier
		Retriever
	}
)

// Filter selects telemetry packets. Optional predicates are pointer
// fields: nil omits the predicate, a value appends an equality
// predicate for it.
type Filter struct {
	// Start and Stop bound the on-board time range. A zero Start
	// means 24 hours before now, a zero Stop means now.
	Start time.Time
	Stop  time.Time

	// Subsystem filters on subsystem_id. Empty means no subsystem
	// predicate. A non-empty value is validated against the archive's
	// subsystem enumeration before any packet query is issued.
	Subsystem string

	// Type and Subtype filter on the source packet service type and
	// subtype.
	Type    *int
	Subtype *int

	// SPID filters on the telemetry packet SPID.
	SPID *int

	// MaxRows caps the result. Zero means the archive default.
	MaxRows int

	// Raw keeps the administrative columns in the result instead of
	// dropping them.
	Raw bool
}

// window returns the effective time range.
func (f *Filter) window(now time.Time) (start, stop time.Time) {
	start, stop = f.Start, f.Stop
	if start.IsZero() {
		start = now.Add(-24 * time.Hour)
	}
	if stop.IsZero() {
		stop = now
	}
	return start, stop
}

// adql builds the packet selection query.
func (f *Filter) adql(now time.Time) string {
	start, stop := f.window(now)

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT * FROM %s WHERE on_board_time >= '%s' and on_board_time <= '%s'",
		packetTable, start.Format(TimeFormat), stop.Format(TimeFormat))

	if f.Subsystem != "" {
		fmt.Fprintf(&b, " and subsystem_id='%s'", f.Subsystem)
	}
	if f.Type != nil {
		fmt.Fprintf(&b, " and source_packet_service_type=%d", *f.Type)
	}
	if f.Subtype != nil {
		fmt.Fprintf(&b, " and source_packet_service_subtype=%d", *f.Subtype)
	}
	if f.SPID != nil {
		fmt.Fprintf(&b, " and telemetry_packet_spid=%d", *f.SPID)
	}

	return b.String()
}

// Packets runs telemetry-packet operations against an archive.
type Packets struct {
	archive Archive
	logger  *slog.Logger

	// now is swapped out in tests
	now func() time.Time
}

func New(archive Archive, logger *slog.Logger) *Packets {
	if logger == nil {
		logger = slog.Default()
	}

	return &Packets{
		archive: archive,
		logger:  logger,
		now:     time.Now,
	}
}

// Subsystems fetches the live subsystem enumeration.
func (p *Packets) Subsystems(ctx context.Context) ([]string, error) {
	outcome, err := p.archive.Query(ctx, subsystemsQuery, 0)
	if err != nil {
		return nil, err
	}

	// a single-subsystem archive collapses this query to a scalar
	values := outcome.Values()

	subsystems := make([]string, 0, len(values))
	for _, val := range values {
		name, ok := val.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected subsystem id %v", val)
		}
		subsystems = append(subsystems, name)
	}

	return subsystems, nil
}

// checkSubsystem validates the name against the live enumeration.
func (p *Packets) checkSubsystem(ctx context.Context, name string) error {
	subsystems, err := p.Subsystems(ctx)
	if err != nil {
		return err
	}

	for _, s := range subsystems {
		if s == name {
			return nil
		}
	}

	err = fmt.Errorf("%w: %s, should be one of: %s", ErrUnknownSubsystem, name, strings.Join(subsystems, ", "))
	p.logger.Error("subsystem validation failed", "error", err)
	return err
}

// Query fetches the telemetry packets selected by the filter. Unless
// Raw is set, administrative columns are dropped; all columns whose
// name contains "time" are parsed into time.Time values.
func (p *Packets) Query(ctx context.Context, f Filter) (*core.Result, error) {
	if f.Subsystem != "" {
		if err := p.checkSubsystem(ctx, f.Subsystem); err != nil {
			return nil, err
		}
	}

	maxRows := f.MaxRows
	if maxRows <= 0 {
		maxRows = tap.DefaultMaxRows
	}

	outcome, err := p.archive.Query(ctx, f.adql(p.now()), maxRows)
	if err != nil {
		return nil, err
	}

	result, ok := outcome.Table()
	if !ok {
		return nil, errors.New("packet query returned a scalar result")
	}

	if !f.Raw {
		result = result.WithoutColumns(adminColumns...)
	}

	for _, col := range result.ColumnsMatching("time") {
		result, err = result.MapColumn(col, parseTime)
		if err != nil {
			return nil, err
		}
	}

	p.logger.Info("matching telemetry packets found", "count", result.Len())

	if result.Len() == maxRows {
		p.logger.Warn("packet count limited by query, increase MaxRows to see more", "max_rows", maxRows)
	}

	return result, nil
}

// Events fetches event report packets (service type 5) for a
// subsystem over the given time range.
func (p *Packets) Events(ctx context.Context, subsystem string, start, stop time.Time) (*core.Result, error) {
	if err := p.checkSubsystem(ctx, subsystem); err != nil {
		return nil, err
	}

	eventType := 5
	return p.Query(ctx, Filter{
		Start:     start,
		Stop:      stop,
		Subsystem: subsystem,
		Type:      &eventType,
	})
}

// Download exports a subsystem's telemetry packets over the given
// time range through the bulk retriever. The query targets the
// fully-qualified packet table so the export goes through the
// structured-parameter path and the data format option applies.
func (p *Packets) Download(ctx context.Context, subsystem string, start, stop time.Time, opts *tap.RetrieveOptions) ([]string, error) {
	if err := p.checkSubsystem(ctx, subsystem); err != nil {
		return nil, err
	}

	f := Filter{Start: start, Stop: stop, Subsystem: subsystem}
	query := strings.Replace(f.adql(p.now()), packetTable, exportTable, 1)

	return p.archive.Retrieve(ctx, query, opts)
}

// parseTime converts a wire-format time string. Nil cells and values
// that are already timestamps pass through.
func parseTime(val any) (any, error) {
	switch v := val.(type) {
	case nil:
		return nil, nil
	case time.Time:
		return v, nil
	case string:
		if v == "" {
			return nil, nil
		}
		t, err := time.Parse(parseLayout, v)
		if err != nil {
			return nil, fmt.Errorf("parsing time %q: %w", v, err)
		}
		return t, nil
	default:
		return nil, fmt.Errorf("unexpected time value %v", val)
	}
}
