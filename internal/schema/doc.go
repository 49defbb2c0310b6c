// Package schema defines the canonical row and table types shared by every
// stage of a conversion run: classifiers, metadata, inventory, disturbance
// events, eligibilities, merchantable volume curves, disturbance rules, and
// the two report tables (parameter differences and validation issues).
//
// All tables are append-only. Rows receive a table-local integer id at
// append time, unique within the table and assigned in output order. Once a
// producing component has finished, its tables are read-only to everything
// downstream.
package schema
