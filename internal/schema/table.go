package schema

// Table is an append-only, id-assigning row collection. Ids start at 1 and
// follow append order, so id N is always the Nth row of the table.
type Table[T any] struct {
	name  string
	rows  []T
	setID func(*T, int64)
}

// NewTable creates a table with the given name. setID stores an assigned id
// on a row; it is called exactly once per row, at append time.
func NewTable[T any](name string, setID func(*T, int64)) *Table[T] {
	return &Table[T]{name: name, setID: setID}
}

// Name returns the table name used in reports and exports.
func (t *Table[T]) Name() string { return t.name }

// Append assigns the next id to row and stores it. Returns the assigned id.
func (t *Table[T]) Append(row T) int64 {
	id := int64(len(t.rows) + 1)
	t.setID(&row, id)
	t.rows = append(t.rows, row)
	return id
}

// Len returns the row count.
func (t *Table[T]) Len() int { return len(t.rows) }

// Rows returns the backing row slice in id order. Callers must not modify
// it.
func (t *Table[T]) Rows() []T { return t.rows }

// Get returns the row with the given id.
func (t *Table[T]) Get(id int64) (T, bool) {
	if id < 1 || id > int64(len(t.rows)) {
		var zero T
		return zero, false
	}
	return t.rows[id-1], true
}

// Mutate applies fn to the row with the given id in place. It exists for
// the construction phase only (the NFCMars extension fills dimension
// columns on already-appended inventory rows); finished tables are
// read-only.
func (t *Table[T]) Mutate(id int64, fn func(*T)) bool {
	if id < 1 || id > int64(len(t.rows)) {
		return false
	}
	fn(&t.rows[id-1])
	return true
}
