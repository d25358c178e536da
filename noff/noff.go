// Package noff implements C1, the executable loader: parsing the fixed
// NOFF ("Nachos Object File Format") header described in spec.md §4.1 and
// §6, with the little-endian-on-disk / host-endian byte-swap fixup
// ported from original_source/nachos/code/userprog/addrspace.cc's
// SwapHeader.
//
// There is no ecosystem library for this format anywhere in the
// retrieval pack (it is a one-off, 40-byte fixed layout specific to this
// kernel), so this package is deliberately stdlib-only: encoding/binary
// for the fixed-width fields. Files are opened through the
// kernel.FileSystem contract, not through os directly.
package noff

import (
	"encoding/binary"
	"fmt"

	"github.com/nachosvm/vm/kernel"
)

// Magic is the fixed constant NOFFMAGIC identifies a well-formed header.
const Magic uint32 = 0x456789ab

// headerSize is magic (4 bytes) plus three 12-byte segment records.
const headerSize = 4 + 3*12

// Segment describes one of the three program segments in a NOFF file.
type Segment struct {
	Size        uint32
	VirtualAddr uint32
	InFileAddr  uint32
}

// Header is the on-disk NOFF header, byte-swapped into host order if
// necessary.
type Header struct {
	Magic      uint32
	Code       Segment
	InitData   Segment
	UninitData Segment
}

// TotalSize returns the sum of the three segment sizes, i.e. the part of
// the address space that spec.md §4.4 sizes before adding UserStackSize.
func (h Header) TotalSize() uint32 {
	return h.Code.Size + h.InitData.Size + h.UninitData.Size
}

// ParseHeader reads and decodes the NOFF header from f, applying the
// endian fixup described in spec.md §4.1 and §6's "Endian fixup" scenario
// (S5): if the on-disk magic doesn't match Magic but its byte-swapped
// form does, every word of the header is swapped. If neither matches,
// this is a fatal load error (spec.md §7's BadMagic).
func ParseHeader(f kernel.File) (Header, error) {
	buf := make([]byte, headerSize)
	n, err := f.ReadAt(buf, headerSize, 0)
	if err != nil {
		return Header{}, fmt.Errorf("noff: reading header: %w", err)
	}
	if n < headerSize {
		return Header{}, fmt.Errorf("noff: short header read: got %d of %d bytes", n, headerSize)
	}

	h := decode(buf)
	if h.Magic == Magic {
		return h, nil
	}

	swapped := swapHeader(h)
	if swapped.Magic == Magic {
		return swapped, nil
	}

	kernel.Abort(kernel.BadMagic,
		"noff header magic 0x%x matches neither native (0x%x) nor swapped form", h.Magic, Magic)
	panic("unreachable")
}

func decode(buf []byte) Header {
	words := make([]uint32, len(buf)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(buf[i*4 : i*4+4])
	}

	return Header{
		Magic: words[0],
		Code: Segment{
			Size: words[1], VirtualAddr: words[2], InFileAddr: words[3],
		},
		InitData: Segment{
			Size: words[4], VirtualAddr: words[5], InFileAddr: words[6],
		},
		UninitData: Segment{
			Size: words[7], VirtualAddr: words[8], InFileAddr: words[9],
		},
	}
}

// swapHeader byte-swaps every word of h, matching addrspace.cc's
// SwapHeader (word-wise WordToHost on every field, including the magic).
func swapHeader(h Header) Header {
	return Header{
		Magic: swap32(h.Magic),
		Code: Segment{
			Size: swap32(h.Code.Size), VirtualAddr: swap32(h.Code.VirtualAddr), InFileAddr: swap32(h.Code.InFileAddr),
		},
		InitData: Segment{
			Size: swap32(h.InitData.Size), VirtualAddr: swap32(h.InitData.VirtualAddr), InFileAddr: swap32(h.InitData.InFileAddr),
		},
		UninitData: Segment{
			Size: swap32(h.UninitData.Size), VirtualAddr: swap32(h.UninitData.VirtualAddr), InFileAddr: swap32(h.UninitData.InFileAddr),
		},
	}
}

func swap32(v uint32) uint32 {
	return (v>>24)&0xff | (v>>8)&0xff00 | (v<<8)&0xff0000 | (v<<24)&0xff000000
}

// Encode serializes a Header back to its on-disk little-endian byte
// layout. It exists mainly so tests (and the CLI's inspection command)
// can build fixtures without hand-assembling byte slices.
func Encode(h Header) []byte {
	words := [10]uint32{
		h.Magic,
		h.Code.Size, h.Code.VirtualAddr, h.Code.InFileAddr,
		h.InitData.Size, h.InitData.VirtualAddr, h.InitData.InFileAddr,
		h.UninitData.Size, h.UninitData.VirtualAddr, h.UninitData.InFileAddr,
	}
	buf := make([]byte, headerSize)
	for i, w := range words {
		binary.LittleEndian.PutUint32(buf[i*4:i*4+4], w)
	}
	return buf
}

// Executable is an opened NOFF file plus its parsed header, the handle
// exposed to the address space for demand-paged reloads (spec.md §4.3's
// "executable" field).
type Executable struct {
	Path   string
	File   kernel.File
	Header Header
}

// Open opens path on fs and parses its header, per spec.md §4.1's
// `open(path) -> handle` and `parseHeader(handle) -> Header`.
func Open(fs kernel.FileSystem, path string) (*Executable, error) {
	f, err := fs.Open(path)
	if err != nil {
		kernel.Abort(kernel.FileOpenFailure, "opening %q: %v", path, err)
	}

	h, err := ParseHeader(f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	return &Executable{Path: path, File: f, Header: h}, nil
}

// ReadAt reads length bytes at the given file offset from the executable,
// matching addrspace.cc's repeated Executable->ReadAt calls.
func (e *Executable) ReadAt(dst []byte, length int, offset int64) (int, error) {
	return e.File.ReadAt(dst, length, offset)
}

// Close releases the underlying file handle.
func (e *Executable) Close() error {
	return e.File.Close()
}
