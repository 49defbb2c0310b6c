// Package paramdiff compares project-level metadata/parameter tables
// against the default-parameters reference and emits one
// ParameterDifference row per exact discrepancy.
//
// Comparison is key-aligned on stable natural identity (boundary name,
// species name, and so on), never on surrogate ids. Keys present on only
// one side produce added/removed rows; keys on both sides produce one
// changed row per differing field. Differences are informational: they are
// always reported, never errors.
package paramdiff

import (
	"fmt"

	"github.com/silvics/cbmconv/internal/schema"
)

// Field is one named, comparable field of an entry.
type Field struct {
	Name  string
	Value Value
}

// Entry is one key-aligned row of a comparable table.
type Entry struct {
	Key    string
	Fields []Field
}

// TableSnapshot is the comparable form of one table.
type TableSnapshot struct {
	Name    string
	Entries []Entry
}

// Snapshot is a side of the comparison: the comparable form of every
// metadata/parameter table present on that side.
type Snapshot struct {
	Tables []TableSnapshot
}

// table returns the named table, if present.
func (s *Snapshot) table(name string) (TableSnapshot, bool) {
	for _, t := range s.Tables {
		if t.Name == name {
			return t, true
		}
	}
	return TableSnapshot{}, false
}

// Compare diffs every project table against the reference and appends the
// resulting ParameterDifference rows to rep. Project tables absent from
// the reference are skipped with a validation issue rather than failing
// the comparison.
func Compare(project, reference *Snapshot, rep *schema.Report) {
	for _, projTable := range project.Tables {
		refTable, ok := reference.table(projTable.Name)
		if !ok {
			rep.Issue(schema.SeverityWarning, schema.CategoryMissingReferenceTable,
				projTable.Name, 0,
				fmt.Sprintf("table %q not present in the default-parameters reference; comparison skipped", projTable.Name))
			continue
		}
		compareTable(projTable, refTable, rep)
	}
}

func compareTable(project, reference TableSnapshot, rep *schema.Report) {
	refByKey := make(map[string]Entry, len(reference.Entries))
	for _, e := range reference.Entries {
		refByKey[e.Key] = e
	}
	projKeys := make(map[string]bool, len(project.Entries))

	for _, projEntry := range project.Entries {
		projKeys[projEntry.Key] = true
		refEntry, ok := refByKey[projEntry.Key]
		if !ok {
			rep.AddDifference(schema.ParameterDifference{
				Table: project.Name,
				Key:   projEntry.Key,
				Kind:  schema.DiffAdded,
			})
			continue
		}
		compareEntry(project.Name, projEntry, refEntry, rep)
	}

	// Keys present only in the reference, in reference order.
	for _, refEntry := range reference.Entries {
		if !projKeys[refEntry.Key] {
			rep.AddDifference(schema.ParameterDifference{
				Table: project.Name,
				Key:   refEntry.Key,
				Kind:  schema.DiffRemoved,
			})
		}
	}
}

func compareEntry(table string, project, reference Entry, rep *schema.Report) {
	refFields := make(map[string]Value, len(reference.Fields))
	for _, f := range reference.Fields {
		refFields[f.Name] = f.Value
	}

	for _, f := range project.Fields {
		refValue, ok := refFields[f.Name]
		if !ok {
			// Field exists only on the project side; report the project
			// value against an empty default.
			rep.AddDifference(schema.ParameterDifference{
				Table:        table,
				Key:          project.Key,
				Field:        f.Name,
				ProjectValue: f.Value.String(),
				Kind:         schema.DiffChanged,
			})
			continue
		}
		if !f.Value.Equal(refValue) {
			rep.AddDifference(schema.ParameterDifference{
				Table:        table,
				Key:          project.Key,
				Field:        f.Name,
				ProjectValue: f.Value.String(),
				DefaultValue: refValue.String(),
				Kind:         schema.DiffChanged,
			})
		}
	}
}
