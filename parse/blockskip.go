package parse

import "github.com/ClickHouse/ch-native-core/ring"

type blockSkipStep int

const (
	stepBlockInfoNum1 blockSkipStep = iota
	stepBlockInfoOverflow
	stepBlockInfoNum2
	stepBlockInfoBucketNum
	stepBlockInfoNum0
	stepNumColumns
	stepNumRows
	stepColumnName
	stepColumnType
	stepCustomFormatLen
	stepCustomFormatBody
	stepColumnData
	stepBlockDone
)

// BlockSkipState traverses a server Data/Log/ProfileEvents packet's block
// body without materializing any column value: block-info header, column
// count, row count, then per-column name/type/[custom-serialization byte],
// then per-column data skipped according to the plan built from its type.
// Resumable at every step, including mid-column-data.
type BlockSkipState struct {
	step blockSkipStep

	varint VarintState
	str    StringState
	rowStr StringState
	skip   SkipBytesState

	numColumns uint64
	numRows    uint64
	colIndex   uint64
	customLen  uint8

	plans         []SkipPlan
	dataPlanIndex int
	rowIndex      uint64

	hasCustomSerialization bool
}

// ResetForNewBlock starts a fresh block traversal. hasBlockInfo and
// hasCustomSerialization are revision-gated flags the caller computes from
// the server's advertised protocol revision.
func (s *BlockSkipState) ResetForNewBlock(hasBlockInfo, hasCustomSerialization bool) {
	step := stepNumColumns
	if hasBlockInfo {
		step = stepBlockInfoNum1
	}
	*s = BlockSkipState{
		step:                   step,
		hasCustomSerialization: hasCustomSerialization,
	}
	s.str.Reset(true)
	s.rowStr.Reset(true)
}

// Advance drives the traversal forward, returning true once the whole
// block's bytes have been consumed.
func (s *BlockSkipState) Advance(r *ring.Ring) (bool, error) {
	for {
		switch s.step {
		case stepBlockInfoNum1:
			if _, ok, err := s.varint.Advance(r); err != nil {
				return false, err
			} else if !ok {
				return false, nil
			}
			s.step = stepBlockInfoOverflow

		case stepBlockInfoOverflow:
			var tmp [1]byte
			if !TryReadFixed(r, tmp[:]) {
				return false, nil
			}
			s.step = stepBlockInfoNum2

		case stepBlockInfoNum2:
			if _, ok, err := s.varint.Advance(r); err != nil {
				return false, err
			} else if !ok {
				return false, nil
			}
			s.step = stepBlockInfoBucketNum

		case stepBlockInfoBucketNum:
			var tmp [4]byte
			if !TryReadFixed(r, tmp[:]) {
				return false, nil
			}
			s.step = stepBlockInfoNum0

		case stepBlockInfoNum0:
			if _, ok, err := s.varint.Advance(r); err != nil {
				return false, err
			} else if !ok {
				return false, nil
			}
			s.step = stepNumColumns

		case stepNumColumns:
			n, ok, err := s.varint.Advance(r)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
			s.numColumns = n
			s.plans = make([]SkipPlan, 0, n)
			s.step = stepNumRows

		case stepNumRows:
			n, ok, err := s.varint.Advance(r)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
			s.numRows = n
			s.colIndex = 0
			s.str.Reset(true)
			if s.numColumns == 0 {
				s.step = stepBlockDone
			} else {
				s.step = stepColumnName
			}

		case stepColumnName:
			s.str.Skip = true
			ok, err := s.str.Advance(r)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
			s.str.Reset(true)
			s.step = stepColumnType

		case stepColumnType:
			s.str.Skip = false
			ok, err := s.str.Advance(r)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
			typeName := s.str.Value
			s.str.Reset(true)

			plan, err := buildSkipPlanOrErr(typeName)
			if err != nil {
				return false, err
			}
			s.plans = append(s.plans, plan)

			if s.hasCustomSerialization {
				s.step = stepCustomFormatLen
			} else {
				s.colIndex++
				if s.colIndex >= s.numColumns {
					s.step = stepColumnData
				} else {
					s.step = stepColumnName
				}
			}

		case stepCustomFormatLen:
			var tmp [1]byte
			if !TryReadFixed(r, tmp[:]) {
				return false, nil
			}
			s.customLen = tmp[0]
			if s.customLen > 0 {
				s.skip.Reset(uint64(s.customLen))
				s.step = stepCustomFormatBody
			} else {
				s.colIndex++
				if s.colIndex >= s.numColumns {
					s.step = stepColumnData
				} else {
					s.step = stepColumnName
				}
			}

		case stepCustomFormatBody:
			if !s.skip.Advance(r) {
				return false, nil
			}
			s.customLen = 0
			s.colIndex++
			if s.colIndex >= s.numColumns {
				s.step = stepColumnData
			} else {
				s.step = stepColumnName
			}

		case stepColumnData:
			if s.numRows == 0 || len(s.plans) == 0 {
				s.step = stepBlockDone
				break
			}
			for s.dataPlanIndex < len(s.plans) {
				plan := s.plans[s.dataPlanIndex]
				switch plan.Kind {
				case SkipFixed:
					bytes := s.numRows * uint64(plan.BytesPerRow)
					if s.skip.remaining == 0 {
						s.skip.Reset(bytes)
					}
					if !s.skip.Advance(r) {
						return false, nil
					}
				case SkipString:
					for s.rowIndex < s.numRows {
						s.rowStr.Skip = true
						ok, err := s.rowStr.Advance(r)
						if err != nil {
							return false, err
						}
						if !ok {
							return false, nil
						}
						s.rowStr.Reset(true)
						s.rowIndex++
					}
					s.rowIndex = 0
				}
				s.dataPlanIndex++
			}
			s.step = stepBlockDone

		case stepBlockDone:
			return true, nil
		}
	}
}
