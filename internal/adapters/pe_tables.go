package adapters

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// metadataReader reads little-endian values with bounds checks. The first
// out-of-range access sets err and every later read returns zero.
type metadataReader struct {
	data []byte
	err  error
}

func (r *metadataReader) fail(off int, n int) {
	if r.err == nil {
		r.err = fmt.Errorf("metadata truncated: need %d bytes at offset %d of %d", n, off, len(r.data))
	}
}

func (r *metadataReader) slice(off int, n int) []byte {
	if r.err != nil {
		return nil
	}
	if off < 0 || n < 0 || off > len(r.data) || n > len(r.data)-off {
		r.fail(off, n)
		return nil
	}
	return r.data[off : off+n]
}

func (r *metadataReader) u16(off int) uint16 {
	b := r.slice(off, 2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

func (r *metadataReader) u32(off int) uint32 {
	b := r.slice(off, 4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (r *metadataReader) u64(off int) uint64 {
	b := r.slice(off, 8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

// index reads a 2- or 4-byte heap or table index.
func (r *metadataReader) index(off int, size int) uint32 {
	if size == 4 {
		return r.u32(off)
	}
	return uint32(r.u16(off))
}

// cstring returns the NUL-terminated string at off and the bytes consumed
// including the terminator.
func (r *metadataReader) cstring(off int) (string, int) {
	if r.err != nil {
		return "", 0
	}
	if off < 0 || off >= len(r.data) {
		r.fail(off, 1)
		return "", 0
	}
	end := bytes.IndexByte(r.data[off:], 0)
	if end < 0 {
		r.fail(off, len(r.data)-off+1)
		return "", 0
	}
	return string(r.data[off : off+end]), end + 1
}

type columnKind int

const (
	colU16 columnKind = iota
	colU32
	colString
	colGUID
	colBlob
	colTable
	colCoded
)

type column struct {
	kind  columnKind
	table int
	coded *codedIndex
}

type codedIndex struct {
	bits   uint
	tables []int
}

const unusedTable = -1

var (
	codedTypeDefOrRef        = &codedIndex{bits: 2, tables: []int{0x02, 0x01, 0x1B}}
	codedHasConstant         = &codedIndex{bits: 2, tables: []int{0x04, 0x08, 0x17}}
	codedHasCustomAttribute  = &codedIndex{bits: 5, tables: []int{0x06, 0x04, 0x01, 0x02, 0x08, 0x09, 0x0A, 0x00, 0x0E, 0x17, 0x14, 0x11, 0x1A, 0x1B, 0x20, 0x23, 0x26, 0x27, 0x28, 0x2A, 0x2C, 0x2B}}
	codedHasFieldMarshal     = &codedIndex{bits: 1, tables: []int{0x04, 0x08}}
	codedHasDeclSecurity     = &codedIndex{bits: 2, tables: []int{0x02, 0x06, 0x20}}
	codedMemberRefParent     = &codedIndex{bits: 3, tables: []int{0x02, 0x01, 0x1A, 0x06, 0x1B}}
	codedHasSemantics        = &codedIndex{bits: 1, tables: []int{0x14, 0x17}}
	codedMethodDefOrRef      = &codedIndex{bits: 1, tables: []int{0x06, 0x0A}}
	codedMemberForwarded     = &codedIndex{bits: 1, tables: []int{0x04, 0x06}}
	codedCustomAttributeType = &codedIndex{bits: 3, tables: []int{unusedTable, unusedTable, 0x06, 0x0A, unusedTable}}
	codedResolutionScope     = &codedIndex{bits: 2, tables: []int{0x00, 0x1A, 0x23, 0x01}}
)

func u16c() column                { return column{kind: colU16} }
func u32c() column                { return column{kind: colU32} }
func strc() column                { return column{kind: colString} }
func guidc() column               { return column{kind: colGUID} }
func blobc() column               { return column{kind: colBlob} }
func tablec(t int) column         { return column{kind: colTable, table: t} }
func codedc(c *codedIndex) column { return column{kind: colCoded, coded: c} }

// tableSchemas lists the columns of every table up to and including
// AssemblyRef, in table order.
var tableSchemas = [tableAssemblyRef + 1][]column{
	0x00: {u16c(), strc(), guidc(), guidc(), guidc()},
	0x01: {codedc(codedResolutionScope), strc(), strc()},
	0x02: {u32c(), strc(), strc(), codedc(codedTypeDefOrRef), tablec(0x04), tablec(0x06)},
	0x03: {tablec(0x04)},
	0x04: {u16c(), strc(), blobc()},
	0x05: {tablec(0x06)},
	0x06: {u32c(), u16c(), u16c(), strc(), blobc(), tablec(0x08)},
	0x07: {tablec(0x08)},
	0x08: {u16c(), u16c(), strc()},
	0x09: {tablec(0x02), codedc(codedTypeDefOrRef)},
	0x0A: {codedc(codedMemberRefParent), strc(), blobc()},
	0x0B: {u16c(), codedc(codedHasConstant), blobc()},
	0x0C: {codedc(codedHasCustomAttribute), codedc(codedCustomAttributeType), blobc()},
	0x0D: {codedc(codedHasFieldMarshal), blobc()},
	0x0E: {u16c(), codedc(codedHasDeclSecurity), blobc()},
	0x0F: {u16c(), u32c(), tablec(0x02)},
	0x10: {u32c(), tablec(0x04)},
	0x11: {blobc()},
	0x12: {tablec(0x02), tablec(0x14)},
	0x13: {tablec(0x14)},
	0x14: {u16c(), strc(), codedc(codedTypeDefOrRef)},
	0x15: {tablec(0x02), tablec(0x17)},
	0x16: {tablec(0x17)},
	0x17: {u16c(), strc(), blobc()},
	0x18: {u16c(), tablec(0x06), codedc(codedHasSemantics)},
	0x19: {tablec(0x02), codedc(codedMethodDefOrRef), codedc(codedMethodDefOrRef)},
	0x1A: {strc()},
	0x1B: {blobc()},
	0x1C: {u16c(), codedc(codedMemberForwarded), strc(), tablec(0x1A)},
	0x1D: {u32c(), tablec(0x04)},
	0x1E: {u32c(), u32c()},
	0x1F: {u32c()},
	0x20: {u32c(), u16c(), u16c(), u16c(), u16c(), u32c(), blobc(), strc(), strc()},
	0x21: {u32c()},
	0x22: {u32c(), u32c(), u32c()},
	0x23: {u16c(), u16c(), u16c(), u16c(), u32c(), blobc(), strc(), strc(), blobc()},
}

type tableLayout struct {
	rows       [64]uint32
	stringSize int
	guidSize   int
	blobSize   int
}

func (l tableLayout) columnSize(c column) int {
	switch c.kind {
	case colU16:
		return 2
	case colU32:
		return 4
	case colString:
		return l.stringSize
	case colGUID:
		return l.guidSize
	case colBlob:
		return l.blobSize
	case colTable:
		if l.rows[c.table] < 1<<16 {
			return 2
		}
		return 4
	case colCoded:
		var largest uint32
		for _, t := range c.coded.tables {
			if t != unusedTable && l.rows[t] > largest {
				largest = l.rows[t]
			}
		}
		if uint64(largest) < uint64(1)<<(16-c.coded.bits) {
			return 2
		}
		return 4
	default:
		return 0
	}
}

func (l tableLayout) rowSize(table int) int {
	size := 0
	for _, c := range tableSchemas[table] {
		size += l.columnSize(c)
	}
	return size
}

func parseTables(stream []byte, stringsHeap []byte, blobHeap []byte) (cliMetadata, error) {
	r := metadataReader{data: stream}
	heapSizes := r.slice(6, 1)
	valid := r.u64(8)
	if r.err != nil {
		return cliMetadata{}, r.err
	}
	layout := tableLayout{stringSize: 2, guidSize: 2, blobSize: 2}
	if heapSizes[0]&heapSizeWideStrings != 0 {
		layout.stringSize = 4
	}
	if heapSizes[0]&heapSizeWideGUID != 0 {
		layout.guidSize = 4
	}
	if heapSizes[0]&heapSizeWideBlob != 0 {
		layout.blobSize = 4
	}

	off := 24
	for i := 0; i < 64; i++ {
		if valid&(uint64(1)<<i) == 0 {
			continue
		}
		layout.rows[i] = r.u32(off)
		off += 4
	}
	if heapSizes[0]&heapSizeExtraData != 0 {
		off += 4
	}
	if r.err != nil {
		return cliMetadata{}, r.err
	}

	var offsets [tableAssemblyRef + 1]int
	cursor := uint64(off)
	for t := 0; t <= tableAssemblyRef; t++ {
		offsets[t] = int(cursor)
		cursor += uint64(layout.rows[t]) * uint64(layout.rowSize(t))
		if cursor > uint64(len(stream)) {
			return cliMetadata{}, fmt.Errorf("table 0x%02x extends past the table stream", t)
		}
	}

	heaps := heapReader{strings: metadataReader{data: stringsHeap}, blob: metadataReader{data: blobHeap}}
	var meta cliMetadata
	if layout.rows[tableAssembly] > 0 {
		row, err := readAssemblyRow(&r, &heaps, layout, offsets[tableAssembly], false)
		if err != nil {
			return cliMetadata{}, fmt.Errorf("assembly table: %w", err)
		}
		meta.Assembly = &row
	}
	refSize := layout.rowSize(tableAssemblyRef)
	for i := 0; i < int(layout.rows[tableAssemblyRef]); i++ {
		row, err := readAssemblyRow(&r, &heaps, layout, offsets[tableAssemblyRef]+i*refSize, true)
		if err != nil {
			return cliMetadata{}, fmt.Errorf("assembly reference %d: %w", i+1, err)
		}
		meta.References = append(meta.References, row)
	}
	return meta, nil
}

// readAssemblyRow decodes an Assembly row (isRef false, leading HashAlgId)
// or an AssemblyRef row (isRef true, trailing HashValue).
func readAssemblyRow(r *metadataReader, heaps *heapReader, layout tableLayout, off int, isRef bool) (assemblyRow, error) {
	if !isRef {
		off += 4
	}
	row := assemblyRow{
		Major:    r.u16(off),
		Minor:    r.u16(off + 2),
		Build:    r.u16(off + 4),
		Revision: r.u16(off + 6),
		Flags:    r.u32(off + 8),
	}
	off += 12
	keyIndex := r.index(off, layout.blobSize)
	off += layout.blobSize
	nameIndex := r.index(off, layout.stringSize)
	off += layout.stringSize
	cultureIndex := r.index(off, layout.stringSize)
	if r.err != nil {
		return assemblyRow{}, r.err
	}
	row.PublicKey = heaps.blobAt(keyIndex)
	row.Name = heaps.stringAt(nameIndex)
	row.Culture = heaps.stringAt(cultureIndex)
	if err := heaps.firstErr(); err != nil {
		return assemblyRow{}, err
	}
	return row, nil
}

type heapReader struct {
	strings metadataReader
	blob    metadataReader
}

func (h *heapReader) stringAt(index uint32) string {
	if index == 0 {
		return ""
	}
	value, _ := h.strings.cstring(int(index))
	return value
}

// blobAt decodes the compressed length prefix (ECMA-335 II.24.2.4).
func (h *heapReader) blobAt(index uint32) []byte {
	if index == 0 {
		return nil
	}
	off := int(index)
	lead := h.blob.slice(off, 1)
	if lead == nil {
		return nil
	}
	var length, prefix int
	switch {
	case lead[0]&0x80 == 0:
		length, prefix = int(lead[0]), 1
	case lead[0]&0xC0 == 0x80:
		b := h.blob.slice(off, 2)
		if b == nil {
			return nil
		}
		length, prefix = int(b[0]&0x3F)<<8|int(b[1]), 2
	case lead[0]&0xE0 == 0xC0:
		b := h.blob.slice(off, 4)
		if b == nil {
			return nil
		}
		length, prefix = int(b[0]&0x1F)<<24|int(b[1])<<16|int(b[2])<<8|int(b[3]), 4
	default:
		h.blob.err = fmt.Errorf("invalid blob length prefix 0x%02x at %d", lead[0], off)
		return nil
	}
	value := h.blob.slice(off+prefix, length)
	if value == nil {
		return nil
	}
	return append([]byte(nil), value...)
}

func (h *heapReader) firstErr() error {
	if h.strings.err != nil {
		return fmt.Errorf("strings heap: %w", h.strings.err)
	}
	if h.blob.err != nil {
		return fmt.Errorf("blob heap: %w", h.blob.err)
	}
	return nil
}
