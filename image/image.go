// Package image implements the KLC binary object-file format: the
// fixed-size header, the package name, the map directory, and the typed
// item records that back a compiled package's [atom.Table].
//
// The on-disk layout (spec.md §6) mirrors the ImageHeader/MapItem/*Item
// struct layout of the original KLC format, with multi-byte fields written
// little-endian as that layout specifies (note this differs from the
// big-endian convention code/code.go's machinery uses for bytecode operands
// inside a Code item's opaque byte blob — the two layers are encoded
// independently). The read/write split (a Builder that appends through an
// [atom.Table] plus a Finish step, and a Reader that validates the magic
// and walks the map) follows a "build then finish, parse then walk a
// directory" shape.
package image

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/fangguanya/koala-lang/atom"
)

const (
	magic      = "KLC"
	endianTag  = 0x1a2b3c4d
	headerSize = 32
)

// Version identifies the image format revision written by this package.
var Version = [4]byte{0, 1, 0, 0}

// Header mirrors klc.h's ImageHeader.
type Header struct {
	Magic      [4]byte
	Version    [4]byte
	FileSize   uint32
	HeaderSize uint32
	EndianTag  uint32
	MapOffset  uint32
	MapCount   uint32
	PkgSize    uint32
}

// MapItem is one directory entry: which kind, how many items, where they start.
type MapItem struct {
	Kind   uint16
	Unused uint16
	Offset uint32
	Count  int32
}

// Image couples a package name with the atom table holding its items.
type Image struct {
	PkgName string
	Table   *atom.Table
}

// New creates an empty Image for pkgName, ready to be populated through its Table.
func New(pkgName string) *Image {
	return &Image{PkgName: pkgName, Table: atom.New()}
}

// pad4 rounds n up to the next multiple of 4.
func pad4(n int) int { return (n + 3) &^ 3 }

// Write serializes img to the KLC binary layout.
func (img *Image) Write() ([]byte, error) {
	var items bytes.Buffer
	var mapItems []MapItem

	for kind := atom.Kind(1); kind < atom.KindIMethod+1; kind++ {
		count := img.Table.Size(kind)
		if count == 0 {
			continue
		}
		offset := items.Len()
		var err error
		img.Table.Each(kind, func(_ int, it atom.Item) {
			if err != nil {
				return
			}
			err = writeItem(&items, kind, it)
		})
		if err != nil {
			return nil, fmt.Errorf("image: write %v item: %w", kind, err)
		}
		mapItems = append(mapItems, MapItem{Kind: uint16(kind), Offset: uint32(offset), Count: int32(count)})
	}

	pkgBytes := append([]byte(img.PkgName), 0)
	pkgPadded := pad4(len(pkgBytes))

	mapOffset := headerSize + pkgPadded
	mapSize := len(mapItems) * 12
	itemsOffset := mapOffset + mapSize

	var buf bytes.Buffer
	hdr := Header{
		Version:    Version,
		FileSize:   uint32(itemsOffset + items.Len()),
		HeaderSize: headerSize,
		EndianTag:  endianTag,
		MapOffset:  uint32(mapOffset),
		MapCount:   uint32(len(mapItems)),
		PkgSize:    uint32(len(pkgBytes)),
	}
	copy(hdr.Magic[:], magic)

	if err := binary.Write(&buf, binary.LittleEndian, hdr.Magic); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.LittleEndian, hdr.Version); err != nil {
		return nil, err
	}
	for _, v := range []uint32{hdr.FileSize, hdr.HeaderSize, hdr.EndianTag, hdr.MapOffset, hdr.MapCount, hdr.PkgSize} {
		if err := binary.Write(&buf, binary.LittleEndian, v); err != nil {
			return nil, err
		}
	}

	buf.Write(pkgBytes)
	buf.Write(make([]byte, pkgPadded-len(pkgBytes)))

	for _, m := range mapItems {
		if err := binary.Write(&buf, binary.LittleEndian, m.Kind); err != nil {
			return nil, err
		}
		if err := binary.Write(&buf, binary.LittleEndian, m.Unused); err != nil {
			return nil, err
		}
		if err := binary.Write(&buf, binary.LittleEndian, m.Offset); err != nil {
			return nil, err
		}
		if err := binary.Write(&buf, binary.LittleEndian, m.Count); err != nil {
			return nil, err
		}
	}

	buf.Write(items.Bytes())

	return buf.Bytes(), nil
}

// Read parses a KLC image from raw bytes.
func Read(data []byte) (*Image, error) {
	if len(data) < headerSize {
		return nil, fmt.Errorf("image: truncated header")
	}
	r := bytes.NewReader(data)

	var hdr Header
	if _, err := r.Read(hdr.Magic[:]); err != nil {
		return nil, err
	}
	if string(hdr.Magic[:3]) != magic {
		return nil, fmt.Errorf("image: bad magic %q", hdr.Magic[:3])
	}
	if _, err := r.Read(hdr.Version[:]); err != nil {
		return nil, err
	}
	for _, p := range []*uint32{&hdr.FileSize, &hdr.HeaderSize, &hdr.EndianTag, &hdr.MapOffset, &hdr.MapCount, &hdr.PkgSize} {
		if err := binary.Read(r, binary.LittleEndian, p); err != nil {
			return nil, err
		}
	}
	if hdr.EndianTag != endianTag {
		return nil, fmt.Errorf("image: bad endian tag %#x", hdr.EndianTag)
	}
	if int(hdr.FileSize) != len(data) {
		return nil, fmt.Errorf("image: file size mismatch: header says %d, got %d", hdr.FileSize, len(data))
	}

	pkgBytes := make([]byte, hdr.PkgSize)
	if _, err := r.Read(pkgBytes); err != nil {
		return nil, err
	}
	pkgName := string(bytes.TrimRight(pkgBytes, "\x00"))

	if _, err := r.Seek(int64(hdr.MapOffset), 0); err != nil {
		return nil, err
	}
	maps := make([]MapItem, hdr.MapCount)
	for i := range maps {
		if err := binary.Read(r, binary.LittleEndian, &maps[i].Kind); err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.LittleEndian, &maps[i].Unused); err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.LittleEndian, &maps[i].Offset); err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.LittleEndian, &maps[i].Count); err != nil {
			return nil, err
		}
	}

	itemsBase := int(hdr.MapOffset) + int(hdr.MapCount)*12
	img := New(pkgName)

	for _, m := range maps {
		kind := atom.Kind(m.Kind)
		ir := bytes.NewReader(data[itemsBase+int(m.Offset):])
		for i := int32(0); i < m.Count; i++ {
			it, err := readItem(ir, kind)
			if err != nil {
				return nil, fmt.Errorf("image: read %v item %d: %w", kind, i, err)
			}
			img.Table.Insert(kind, it, false)
		}
	}

	return img, nil
}
