package adapters

import (
	"bytes"
	"debug/pe"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// ecmaKey is the ECMA standard public key; its token is b77a5c561934e089.
var ecmaKey = []byte{0, 0, 0, 0, 0, 0, 0, 0, 4, 0, 0, 0, 0, 0, 0, 0}

type testAssembly struct {
	name    string
	culture string
	version [4]uint16
	flags   uint32
	key     []byte
}

type testHeaps struct {
	strings bytes.Buffer
	blob    bytes.Buffer
}

func newTestHeaps() *testHeaps {
	h := &testHeaps{}
	h.strings.WriteByte(0)
	h.blob.WriteByte(0)
	return h
}

func (h *testHeaps) str(value string) uint16 {
	if value == "" {
		return 0
	}
	index := h.strings.Len()
	h.strings.WriteString(value)
	h.strings.WriteByte(0)
	return uint16(index)
}

func (h *testHeaps) blobIndex(value []byte) uint16 {
	if len(value) == 0 {
		return 0
	}
	index := h.blob.Len()
	h.blob.WriteByte(byte(len(value)))
	h.blob.Write(value)
	return uint16(index)
}

func put(buf *bytes.Buffer, values ...any) {
	for _, v := range values {
		_ = binary.Write(buf, binary.LittleEndian, v)
	}
}

func pad4(buf *bytes.Buffer) {
	for buf.Len()%4 != 0 {
		buf.WriteByte(0)
	}
}

// buildMetadata assembles a metadata root holding only the Assembly and
// AssemblyRef tables, with narrow heap indexes.
func buildMetadata(runtime string, self *testAssembly, refs []testAssembly) []byte {
	heaps := newTestHeaps()

	var tables bytes.Buffer
	valid := uint64(1) << tableAssemblyRef
	if self != nil {
		valid |= uint64(1) << tableAssembly
	}
	put(&tables, uint32(0), uint8(2), uint8(0), uint8(0), uint8(1), valid, uint64(0))
	if self != nil {
		put(&tables, uint32(1))
	}
	put(&tables, uint32(len(refs)))
	if self != nil {
		put(&tables, uint32(0x8004))
		put(&tables, self.version[0], self.version[1], self.version[2], self.version[3], self.flags)
		put(&tables, heaps.blobIndex(self.key), heaps.str(self.name), heaps.str(self.culture))
	}
	for _, ref := range refs {
		put(&tables, ref.version[0], ref.version[1], ref.version[2], ref.version[3], ref.flags)
		put(&tables, heaps.blobIndex(ref.key), heaps.str(ref.name), heaps.str(ref.culture), uint16(0))
	}
	pad4(&tables)
	pad4(&heaps.strings)
	pad4(&heaps.blob)

	version := []byte(runtime + "\x00")
	for len(version)%4 != 0 {
		version = append(version, 0)
	}
	type stream struct {
		name string
		data []byte
	}
	streams := []stream{
		{name: "#~", data: tables.Bytes()},
		{name: "#Strings", data: heaps.strings.Bytes()},
		{name: "#Blob", data: heaps.blob.Bytes()},
	}
	headerSize := 16 + len(version) + 4
	for _, s := range streams {
		headerSize += 8 + (len(s.name)+1+3)&^3
	}

	var root bytes.Buffer
	put(&root, uint32(metadataSignature), uint16(1), uint16(1), uint32(0), uint32(len(version)))
	root.Write(version)
	put(&root, uint16(0), uint16(len(streams)))
	offset := headerSize
	for _, s := range streams {
		put(&root, uint32(offset), uint32(len(s.data)))
		root.WriteString(s.name)
		root.WriteByte(0)
		pad4(&root)
		offset += len(s.data)
	}
	for _, s := range streams {
		root.Write(s.data)
	}
	return root.Bytes()
}

// buildPEImage wraps metadata in a minimal PE32 image with one section
// holding the CLI header and the metadata.
func buildPEImage(metadata []byte) []byte {
	const (
		headerEnd   = 0x200
		sectionRVA  = 0x2000
		cliSize     = 72
		optionalLen = 224
	)
	var payload bytes.Buffer
	put(&payload, uint32(cliSize), uint16(2), uint16(5), uint32(sectionRVA+cliSize), uint32(len(metadata)))
	payload.Write(make([]byte, cliSize-payload.Len()))
	payload.Write(metadata)
	pad4(&payload)

	var image bytes.Buffer
	dos := make([]byte, 0x40)
	dos[0], dos[1] = 'M', 'Z'
	binary.LittleEndian.PutUint32(dos[0x3c:], 0x40)
	image.Write(dos)
	image.WriteString("PE\x00\x00")
	put(&image, pe.FileHeader{
		Machine:              pe.IMAGE_FILE_MACHINE_I386,
		NumberOfSections:     1,
		SizeOfOptionalHeader: optionalLen,
		Characteristics:      pe.IMAGE_FILE_DLL | pe.IMAGE_FILE_EXECUTABLE_IMAGE,
	})
	optional := pe.OptionalHeader32{
		Magic:               0x10b,
		SectionAlignment:    0x2000,
		FileAlignment:       0x200,
		SizeOfImage:         sectionRVA + 0x2000,
		SizeOfHeaders:       headerEnd,
		NumberOfRvaAndSizes: 16,
	}
	optional.DataDirectory[clrHeaderDirectory] = pe.DataDirectory{VirtualAddress: sectionRVA, Size: cliSize}
	put(&image, optional)
	var name [8]uint8
	copy(name[:], ".text")
	put(&image, pe.SectionHeader32{
		Name:             name,
		VirtualSize:      uint32(payload.Len()),
		VirtualAddress:   sectionRVA,
		SizeOfRawData:    uint32(payload.Len()),
		PointerToRawData: headerEnd,
	})
	image.Write(make([]byte, headerEnd-image.Len()))
	image.Write(payload.Bytes())
	return image.Bytes()
}

func writeImage(t *testing.T, dir string, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}
