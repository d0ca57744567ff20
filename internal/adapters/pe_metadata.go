package adapters

import (
	"bytes"
	"crypto/sha1"
	"debug/pe"
	"encoding/binary"
	"fmt"
)

const (
	clrHeaderDirectory   = 14
	metadataSignature    = 0x424A5342
	tableAssembly        = 0x20
	tableAssemblyRef     = 0x23
	assemblyFlagFullKey  = 0x0001
	heapSizeWideStrings  = 0x01
	heapSizeWideGUID     = 0x02
	heapSizeWideBlob     = 0x04
	heapSizeExtraData    = 0x40
	publicKeyTokenLength = 8
)

// assemblyRow is one row of the Assembly or AssemblyRef table.
type assemblyRow struct {
	Major, Minor, Build, Revision uint16
	Flags                         uint32
	PublicKey                     []byte
	Name                          string
	Culture                       string
}

// Token reduces the row's key blob to a public key token. AssemblyRef rows
// usually carry the token itself.
func (r assemblyRow) Token() []byte {
	if len(r.PublicKey) == 0 {
		return nil
	}
	if r.Flags&assemblyFlagFullKey == 0 && len(r.PublicKey) == publicKeyTokenLength {
		return append([]byte(nil), r.PublicKey...)
	}
	return publicKeyToken(r.PublicKey)
}

type cliMetadata struct {
	RuntimeVersion string
	Assembly       *assemblyRow
	References     []assemblyRow
}

// publicKeyToken is the last eight bytes of the key's SHA-1, reversed.
func publicKeyToken(key []byte) []byte {
	sum := sha1.Sum(key)
	token := make([]byte, publicKeyTokenLength)
	for i := 0; i < publicKeyTokenLength; i++ {
		token[i] = sum[len(sum)-1-i]
	}
	return token
}

// readCLIMetadata returns the raw metadata block of a managed PE image.
func readCLIMetadata(f *pe.File) ([]byte, error) {
	var dirs []pe.DataDirectory
	switch header := f.OptionalHeader.(type) {
	case *pe.OptionalHeader32:
		dirs = header.DataDirectory[:min(int(header.NumberOfRvaAndSizes), len(header.DataDirectory))]
	case *pe.OptionalHeader64:
		dirs = header.DataDirectory[:min(int(header.NumberOfRvaAndSizes), len(header.DataDirectory))]
	default:
		return nil, fmt.Errorf("image has no optional header")
	}
	if len(dirs) <= clrHeaderDirectory || dirs[clrHeaderDirectory].VirtualAddress == 0 {
		return nil, fmt.Errorf("image has no CLI header")
	}
	clr := dirs[clrHeaderDirectory]
	header, err := readRVA(f, clr.VirtualAddress, clr.Size)
	if err != nil {
		return nil, fmt.Errorf("CLI header: %w", err)
	}
	if len(header) < 16 {
		return nil, fmt.Errorf("CLI header truncated")
	}
	rva := binary.LittleEndian.Uint32(header[8:])
	size := binary.LittleEndian.Uint32(header[12:])
	if rva == 0 || size == 0 {
		return nil, fmt.Errorf("CLI header has no metadata")
	}
	return readRVA(f, rva, size)
}

func readRVA(f *pe.File, rva uint32, size uint32) ([]byte, error) {
	for _, section := range f.Sections {
		span := max(section.VirtualSize, section.Size)
		if rva < section.VirtualAddress || uint64(rva) >= uint64(section.VirtualAddress)+uint64(span) {
			continue
		}
		data, err := section.Data()
		if err != nil {
			return nil, err
		}
		start := uint64(rva - section.VirtualAddress)
		end := start + uint64(size)
		if end > uint64(len(data)) {
			return nil, fmt.Errorf("rva 0x%x+%d exceeds section %s", rva, size, section.Name)
		}
		return data[start:end], nil
	}
	return nil, fmt.Errorf("rva 0x%x is not mapped by any section", rva)
}

// parseMetadataRoot decodes the metadata root and the Assembly and
// AssemblyRef tables.
func parseMetadataRoot(data []byte) (cliMetadata, error) {
	r := metadataReader{data: data}
	if sig := r.u32(0); sig != metadataSignature {
		if r.err != nil {
			return cliMetadata{}, r.err
		}
		return cliMetadata{}, fmt.Errorf("bad metadata signature 0x%08x", sig)
	}
	length := int(r.u32(12))
	versionBytes := r.slice(16, length)
	if r.err != nil {
		return cliMetadata{}, r.err
	}
	if i := bytes.IndexByte(versionBytes, 0); i >= 0 {
		versionBytes = versionBytes[:i]
	}
	off := 16 + length
	streamCount := int(r.u16(off + 2))
	off += 4

	streams := map[string][]byte{}
	for i := 0; i < streamCount; i++ {
		streamOffset := int(r.u32(off))
		streamSize := int(r.u32(off + 4))
		name, consumed := r.cstring(off + 8)
		if r.err != nil {
			return cliMetadata{}, r.err
		}
		streams[name] = r.slice(streamOffset, streamSize)
		if r.err != nil {
			return cliMetadata{}, fmt.Errorf("stream %s: %w", name, r.err)
		}
		off += 8 + (consumed+3)&^3
	}

	tables, ok := streams["#~"]
	if !ok {
		tables, ok = streams["#-"]
	}
	if !ok {
		return cliMetadata{}, fmt.Errorf("metadata has no table stream")
	}
	meta, err := parseTables(tables, streams["#Strings"], streams["#Blob"])
	if err != nil {
		return cliMetadata{}, err
	}
	meta.RuntimeVersion = string(versionBytes)
	return meta, nil
}
