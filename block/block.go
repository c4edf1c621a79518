// Package block defines the two capabilities the connection state machine
// needs from a caller-supplied data block: enumerate its columns and report
// its row count. The column type hierarchy, type parsing, and row
// materialization live outside this core entirely; block only has to carry
// enough to build an INSERT query's column list and let the server encoder
// stream a column's body through an io.Writer.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package block

import "io"

// Column is one column of a Block: its name, its textual ClickHouse type
// (e.g. "UInt64", "FixedString(16)"), and a Save method that serializes the
// column's values for every row in the owning Block, in ClickHouse native
// column-body format. Save is the caller's responsibility; this core never
// interprets the bytes it writes.
type Column interface {
	Name() string
	Type() string
	Save(w io.Writer) error
}

// Block is a column-oriented batch of rows ready to INSERT.
type Block interface {
	Columns() []Column
	NumRows() int
}

// empty is the zero-column, zero-row Block used to build the query
// terminator and end-of-data Data packets (see encode.Data).
type empty struct{}

func (empty) Columns() []Column { return nil }
func (empty) NumRows() int      { return 0 }

// Empty returns a Block with no columns and no rows.
func Empty() Block { return empty{} }
