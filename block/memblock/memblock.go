// Package memblock is a minimal in-memory block.Block implementation used
// by package encode's and package conn's tests. It plays the role
// cluster/mock plays for the rest of the tree: a fake collaborator for
// packages whose real implementation lives outside this core's scope.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package memblock

import (
	"io"

	"github.com/ClickHouse/ch-native-core/block"
)

// Column is a fixed in-memory column: a name, a ClickHouse type name, and
// raw pre-serialized row bytes written verbatim by Save.
type Column struct {
	ColumnName string
	ColumnType string
	Data       []byte
}

func (c Column) Name() string { return c.ColumnName }
func (c Column) Type() string { return c.ColumnType }
func (c Column) Save(w io.Writer) error {
	_, err := w.Write(c.Data)
	return err
}

// Block is a fixed in-memory block.Block over a slice of Columns.
type Block struct {
	Cols []Column
	Rows int
}

func (b Block) Columns() []block.Column {
	out := make([]block.Column, len(b.Cols))
	for i, c := range b.Cols {
		out[i] = c
	}
	return out
}

func (b Block) NumRows() int { return b.Rows }
