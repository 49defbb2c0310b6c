// Package events reconciles the two disturbance-event source formats into
// the single canonical disturbance_event table.
//
// A project supplies events either as relational tables (each row maps
// near 1:1 to a canonical row) or as a flat simulation-output extract
// (row-per-event-per-timestep, grouped into canonical rows). The two
// producers sit behind one Source capability selected by configuration.
package events

import (
	"fmt"
	"strings"

	"github.com/silvics/cbmconv/internal/schema"
)

// Mode selects which disturbance-event source format feeds the reconciler.
type Mode string

const (
	// SourceRelational reads the project's relational event tables.
	SourceRelational Mode = "relational"
	// SourceExtract derives events from a flat simulation-output extract.
	SourceExtract Mode = "extract"
)

// DefaultSortType is the sort order assigned to events derived from the
// flat extract, which carries no sorting information.
const DefaultSortType = 1

// RelationalRow is one disturbance-event row as read from the project's
// relational tables, with dimension ids already mapped to canonical
// surrogates and the disturbance type still by name.
type RelationalRow struct {
	Dims            schema.Dimensions
	EligibilityID   *int64
	Efficiency      float64
	SortType        int64
	TargetType      string
	TargetMagnitude float64
	DisturbanceType string
	Timestep        int64
}

// ExtractRow is one row of the flat simulation-output extract:
// one disturbed record per timestep. ClassifierValues holds one value name
// per project classifier, in classifier order.
type ExtractRow struct {
	ClassifierValues []string
	DefaultSPUID     *int64
	SPUID            *int64
	DisturbanceType  string
	Timestep         int64
	Area             float64
}

// Source produces canonical disturbance-event rows (and any classifier
// sets it needs) into the dataset, reporting per-row problems to rep and
// continuing.
type Source interface {
	Produce(ds *schema.Dataset, rep *schema.Report) error
}

// NewSource returns the producer for the selected mode.
func NewSource(mode Mode, relational []RelationalRow, extract []ExtractRow) (Source, error) {
	switch mode {
	case SourceRelational:
		return &relationalSource{rows: relational}, nil
	case SourceExtract:
		return &extractSource{rows: extract}, nil
	default:
		return nil, fmt.Errorf("unknown disturbance source mode %q", mode)
	}
}

// relationalSource maps each project event row to exactly one canonical
// row. Missing optional fields stay nil.
type relationalSource struct {
	rows []RelationalRow
}

func (s *relationalSource) Produce(ds *schema.Dataset, rep *schema.Report) error {
	types := disturbanceTypesByName(ds)

	for _, row := range s.rows {
		event := schema.DisturbanceEvent{
			Dims:            row.Dims,
			EligibilityID:   row.EligibilityID,
			Efficiency:      row.Efficiency,
			SortType:        row.SortType,
			TargetType:      row.TargetType,
			TargetMagnitude: row.TargetMagnitude,
			Timestep:        row.Timestep,
		}
		// An empty type name means the source row carried none; optional
		// fields map to null without an issue.
		if row.DisturbanceType != "" {
			if id, ok := types[row.DisturbanceType]; ok {
				event.DisturbanceTypeID = &id
			} else {
				rep.Issue(schema.SeverityError, schema.CategoryUnresolvedReference,
					schema.TableDisturbanceEvents, 0,
					fmt.Sprintf("disturbance type %q not found in metadata", row.DisturbanceType))
			}
		}
		ds.DisturbanceEvents.Append(event)
	}
	return nil
}

// extractSource groups flat extract rows by the dimension tuple the format
// can express plus disturbance type and timestep; each distinct group
// becomes one canonical row. Rows at different timesteps are never
// deduplicated even when their canonical content is otherwise identical.
type extractSource struct {
	rows []ExtractRow
}

type extractGroup struct {
	first ExtractRow
	area  float64
}

func (s *extractSource) Produce(ds *schema.Dataset, rep *schema.Report) error {
	types := disturbanceTypesByName(ds)
	sets := newClassifierSetBuilder(ds, rep)

	// Group in first-appearance order so output ids are deterministic.
	var order []string
	groups := make(map[string]*extractGroup)
	for _, row := range s.rows {
		key := extractGroupKey(row)
		g, ok := groups[key]
		if !ok {
			g = &extractGroup{first: row}
			groups[key] = g
			order = append(order, key)
		}
		g.area += row.Area
	}

	for _, key := range order {
		g := groups[key]
		row := g.first

		event := schema.DisturbanceEvent{
			Dims: schema.Dimensions{
				DefaultSPUID: row.DefaultSPUID,
				SPUID:        row.SPUID,
			},
			Efficiency:      1,
			SortType:        DefaultSortType,
			TargetType:      schema.TargetArea,
			TargetMagnitude: g.area,
			Timestep:        row.Timestep,
		}
		if setID, ok := sets.resolve(row.ClassifierValues); ok {
			event.Dims.ClassifierSetID = &setID
		}
		if id, ok := types[row.DisturbanceType]; ok {
			event.DisturbanceTypeID = &id
		} else {
			rep.Issue(schema.SeverityError, schema.CategoryUnresolvedReference,
				schema.TableDisturbanceEvents, 0,
				fmt.Sprintf("disturbance type %q not found in metadata", row.DisturbanceType))
		}
		ds.DisturbanceEvents.Append(event)
	}
	return nil
}

// extractGroupKey builds the grouping key: expressible dimension values,
// classifier tuple, disturbance type and timestep. A literal "-" marks an
// unset dimension; unit separator bytes keep values from colliding.
func extractGroupKey(row ExtractRow) string {
	var b strings.Builder
	writeID := func(v *int64) {
		if v == nil {
			b.WriteString("-")
		} else {
			fmt.Fprintf(&b, "%d", *v)
		}
		b.WriteByte(0x1f)
	}
	writeID(row.DefaultSPUID)
	writeID(row.SPUID)
	for _, v := range row.ClassifierValues {
		b.WriteString(v)
		b.WriteByte(0x1f)
	}
	b.WriteString(row.DisturbanceType)
	b.WriteByte(0x1f)
	fmt.Fprintf(&b, "%d", row.Timestep)
	return b.String()
}

// classifierSetBuilder creates classifier sets for extract rows, reusing
// one set per distinct value tuple. Classifier values that do not resolve
// against the metadata are reported and skipped; the incomplete set is
// still usable and the coverage check will flag it.
type classifierSetBuilder struct {
	ds      *schema.Dataset
	rep     *schema.Report
	byTuple map[string]int64
	values  []map[string]int64 // per classifier: value name -> value id
}

func newClassifierSetBuilder(ds *schema.Dataset, rep *schema.Report) *classifierSetBuilder {
	values := make([]map[string]int64, ds.Classifiers.Len())
	for i := range values {
		values[i] = make(map[string]int64)
	}
	for _, v := range ds.ClassifierValues.Rows() {
		idx := int(v.ClassifierID - 1)
		if idx >= 0 && idx < len(values) {
			values[idx][v.Value] = v.ID
		}
	}
	return &classifierSetBuilder{
		ds:      ds,
		rep:     rep,
		byTuple: make(map[string]int64),
		values:  values,
	}
}

// resolve returns the classifier set id for the given value tuple,
// creating the set on first sight. ok is false when the tuple length does
// not match the project's classifiers at all.
func (b *classifierSetBuilder) resolve(tuple []string) (int64, bool) {
	if len(tuple) != b.ds.Classifiers.Len() {
		b.rep.Issue(schema.SeverityError, schema.CategoryUnresolvedReference,
			schema.TableClassifierSets, 0,
			fmt.Sprintf("extract row carries %d classifier values, project defines %d classifiers",
				len(tuple), b.ds.Classifiers.Len()))
		return 0, false
	}

	key := strings.Join(tuple, "\x1f")
	if id, ok := b.byTuple[key]; ok {
		return id, true
	}

	setID := b.ds.ClassifierSets.Append(schema.ClassifierSet{Name: strings.Join(tuple, ",")})
	for i, value := range tuple {
		classifier, _ := b.ds.Classifiers.Get(int64(i + 1))
		valueID, ok := b.values[i][value]
		if !ok {
			b.rep.Issue(schema.SeverityError, schema.CategoryUnresolvedReference,
				schema.TableClassifierSetValues, 0,
				fmt.Sprintf("classifier value %q not defined for classifier %q", value, classifier.Name))
			continue
		}
		b.ds.ClassifierSetValues.Append(schema.ClassifierSetValue{
			ClassifierSetID:   setID,
			ClassifierID:      classifier.ID,
			ClassifierValueID: valueID,
		})
	}
	b.byTuple[key] = setID
	return setID, true
}

// disturbanceTypesByName indexes the canonical disturbance types.
func disturbanceTypesByName(ds *schema.Dataset) map[string]int64 {
	byName := make(map[string]int64, ds.DisturbanceTypes.Len())
	for _, dt := range ds.DisturbanceTypes.Rows() {
		byName[dt.Name] = dt.ID
	}
	return byName
}
