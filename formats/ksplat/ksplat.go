// Package ksplat reads the mkkellogg .ksplat container: a 4 KiB main header,
// fixed-size section headers, and per-section splat data with three
// compression modes (raw float32, float16 with bucketed 16-bit positions,
// and byte-quantized harmonics).
package ksplat

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/splatforge/splatforge/gmath"
	"github.com/splatforge/splatforge/internal/f16"
	"github.com/splatforge/splatforge/table"
)

const (
	mainHeaderSize    = 4096
	sectionHeaderSize = 1024
	bucketCenterSize  = 12 // 3 x float32
)

var (
	// ErrShort is returned when the buffer ends before a described field.
	ErrShort = errors.New("ksplat: short buffer")
	// ErrBadCompression is returned for compression modes other than 0-2.
	ErrBadCompression = errors.New("ksplat: unsupported compression mode")
	// ErrBadSHDegree is returned for harmonics degrees above 3.
	ErrBadSHDegree = errors.New("ksplat: unsupported spherical harmonics degree")
)

// section mirrors one 1 KiB section header.
type section struct {
	splatCount          int
	bucketSize          int
	bucketCount         int
	bucketBlockSize     float32
	bucketStorageSize   int
	compressionRange    uint32
	storageSize         int
	fullBuckets         int
	partialBuckets      int
	shDegree            int
}

// Read decodes a .ksplat buffer into a Gaussian table. Sections concatenate
// in declaration order; the table's SH band count is the maximum section
// degree, with lower-degree sections zero-filled.
func Read(data []byte) (*table.Table, error) {
	if len(data) < mainHeaderSize {
		return nil, fmt.Errorf("%w: main header", ErrShort)
	}

	maxSectionCount := int(binary.LittleEndian.Uint32(data[4:]))
	sectionCount := int(binary.LittleEndian.Uint32(data[8:]))
	totalSplats := int(binary.LittleEndian.Uint32(data[16:]))
	compression := int(binary.LittleEndian.Uint16(data[20:]))
	minSH := math.Float32frombits(binary.LittleEndian.Uint32(data[36:]))
	maxSH := math.Float32frombits(binary.LittleEndian.Uint32(data[40:]))

	if compression < 0 || compression > 2 {
		return nil, fmt.Errorf("%w: %d", ErrBadCompression, compression)
	}
	if sectionCount > maxSectionCount {
		return nil, fmt.Errorf("ksplat: section count %d exceeds max %d", sectionCount, maxSectionCount)
	}
	headersEnd := mainHeaderSize + maxSectionCount*sectionHeaderSize
	if len(data) < headersEnd {
		return nil, fmt.Errorf("%w: section headers", ErrShort)
	}

	sections := make([]section, sectionCount)
	maxDegree := 0
	for i := range sections {
		hdr := data[mainHeaderSize+i*sectionHeaderSize:]
		s := section{
			splatCount:        int(binary.LittleEndian.Uint32(hdr[0:])),
			bucketSize:        int(binary.LittleEndian.Uint32(hdr[8:])),
			bucketCount:       int(binary.LittleEndian.Uint32(hdr[12:])),
			bucketBlockSize:   math.Float32frombits(binary.LittleEndian.Uint32(hdr[16:])),
			bucketStorageSize: int(binary.LittleEndian.Uint16(hdr[20:])),
			compressionRange:  binary.LittleEndian.Uint32(hdr[24:]),
			storageSize:       int(binary.LittleEndian.Uint32(hdr[28:])),
			fullBuckets:       int(binary.LittleEndian.Uint32(hdr[32:])),
			partialBuckets:    int(binary.LittleEndian.Uint32(hdr[36:])),
			shDegree:          int(binary.LittleEndian.Uint16(hdr[40:])),
		}
		if s.shDegree > 3 {
			return nil, fmt.Errorf("%w: %d", ErrBadSHDegree, s.shDegree)
		}
		if s.shDegree > maxDegree {
			maxDegree = s.shDegree
		}
		sections[i] = s
	}

	dim := table.CoeffsForBand(maxDegree)
	bld := newBuilder(totalSplats, dim)

	offset := headersEnd
	for i := range sections {
		s := &sections[i]
		if offset+s.storageSize > len(data) {
			return nil, fmt.Errorf("%w: section %d data", ErrShort, i)
		}
		if err := bld.readSection(data[offset:offset+s.storageSize], s, compression, minSH, maxSH); err != nil {
			return nil, fmt.Errorf("ksplat: section %d: %w", i, err)
		}
		offset += s.storageSize
	}
	if bld.row != totalSplats {
		return nil, fmt.Errorf("ksplat: sections carry %d splats, header says %d", bld.row, totalSplats)
	}

	return bld.build()
}

// builder accumulates decoded splats across sections.
type builder struct {
	row  int
	dim  int
	cols map[string][]float32
	rest [][]float32
}

func newBuilder(n, dim int) *builder {
	b := &builder{
		dim:  dim,
		cols: make(map[string][]float32),
	}
	for _, name := range []string{
		"x", "y", "z", "scale_0", "scale_1", "scale_2",
		"rot_0", "rot_1", "rot_2", "rot_3",
		"f_dc_0", "f_dc_1", "f_dc_2", "opacity",
	} {
		b.cols[name] = make([]float32, n)
	}
	b.rest = make([][]float32, 3*dim)
	for i := range b.rest {
		b.rest[i] = make([]float32, n)
	}
	return b
}

func (b *builder) build() (*table.Table, error) {
	list := make([]table.Column, 0, 14+len(b.rest))
	for _, name := range []string{
		"x", "y", "z", "scale_0", "scale_1", "scale_2",
		"rot_0", "rot_1", "rot_2", "rot_3",
		"f_dc_0", "f_dc_1", "f_dc_2", "opacity",
	} {
		list = append(list, table.NewColumn(name, b.cols[name]))
	}
	for i, data := range b.rest {
		list = append(list, table.NewColumn(fmt.Sprintf("f_rest_%d", i), data))
	}
	return table.New(list...)
}

// splatBytes returns the per-splat byte width for a compression mode and
// per-splat harmonics count.
func splatBytes(compression, shCount int) int {
	switch compression {
	case 0:
		return 12 + 12 + 16 + 4 + 4*shCount
	case 1:
		return 6 + 6 + 8 + 4 + 2*shCount
	default:
		return 6 + 6 + 8 + 4 + shCount
	}
}

func (b *builder) readSection(data []byte, s *section, compression int, minSH, maxSH float32) error {
	secCoeffs := table.CoeffsForBand(s.shDegree)
	shCount := 3 * secCoeffs
	// restIndex maps a section coefficient onto the table's channel-major
	// layout, whose per-channel stride is the maximum section degree's.
	restIndex := func(j int) int { return (j/secCoeffs)*b.dim + j%secCoeffs }

	// Section data: partial bucket lengths, bucket centers, splat records.
	partialLenBytes := s.partialBuckets * 4
	bucketBytes := s.bucketCount * s.bucketStorageSize
	if compression == 0 {
		partialLenBytes, bucketBytes = 0, 0
	}
	splatBase := partialLenBytes + bucketBytes
	perSplat := splatBytes(compression, shCount)
	if splatBase+s.splatCount*perSplat > len(data) {
		return ErrShort
	}

	// Bucket spans: full buckets first, then partial buckets with recorded
	// lengths.
	var bucketEnd []int
	var centers []byte
	if compression != 0 {
		centers = data[partialLenBytes : partialLenBytes+bucketBytes]
		end := 0
		for i := 0; i < s.fullBuckets; i++ {
			end += s.bucketSize
			bucketEnd = append(bucketEnd, end)
		}
		for i := 0; i < s.partialBuckets; i++ {
			end += int(binary.LittleEndian.Uint32(data[i*4:]))
			bucketEnd = append(bucketEnd, end)
		}
	}

	scaleFactor := float32(0)
	if compression != 0 && s.compressionRange != 0 {
		scaleFactor = s.bucketBlockSize / 2 / float32(s.compressionRange)
	}

	bucket := 0
	for i := 0; i < s.splatCount; i++ {
		rec := data[splatBase+i*perSplat:]
		row := b.row

		if compression == 0 {
			b.cols["x"][row] = f32(rec[0:])
			b.cols["y"][row] = f32(rec[4:])
			b.cols["z"][row] = f32(rec[8:])
			b.cols["scale_0"][row] = f32(rec[12:])
			b.cols["scale_1"][row] = f32(rec[16:])
			b.cols["scale_2"][row] = f32(rec[20:])
			b.setRotation(row, f32(rec[24:]), f32(rec[28:]), f32(rec[32:]), f32(rec[36:]))
			b.setColor(row, rec[40], rec[41], rec[42], rec[43])
			for j := 0; j < shCount; j++ {
				b.rest[restIndex(j)][row] = f32(rec[44+j*4:])
			}
		} else {
			for bucket < len(bucketEnd) && i >= bucketEnd[bucket] {
				bucket++
			}
			if bucket >= s.bucketCount {
				return fmt.Errorf("splat %d has no bucket", i)
			}
			cx := f32(centers[bucket*s.bucketStorageSize:])
			cy := f32(centers[bucket*s.bucketStorageSize+4:])
			cz := f32(centers[bucket*s.bucketStorageSize+8:])

			dequant := func(off int, center float32) float32 {
				q := binary.LittleEndian.Uint16(rec[off:])
				return (float32(q)-float32(s.compressionRange))*scaleFactor + center
			}
			b.cols["x"][row] = dequant(0, cx)
			b.cols["y"][row] = dequant(2, cy)
			b.cols["z"][row] = dequant(4, cz)

			b.cols["scale_0"][row] = half(rec[6:])
			b.cols["scale_1"][row] = half(rec[8:])
			b.cols["scale_2"][row] = half(rec[10:])
			b.setRotation(row, half(rec[12:]), half(rec[14:]), half(rec[16:]), half(rec[18:]))
			b.setColor(row, rec[20], rec[21], rec[22], rec[23])

			for j := 0; j < shCount; j++ {
				if compression == 1 {
					b.rest[restIndex(j)][row] = half(rec[24+j*2:])
				} else {
					b.rest[restIndex(j)][row] = minSH + float32(rec[24+j])/255*(maxSH-minSH)
				}
			}
		}
		b.row++
	}
	return nil
}

// setRotation stores a normalized quaternion from file order (w, x, y, z).
func (b *builder) setRotation(row int, w, x, y, z float32) {
	q := gmath.Quat{W: float64(w), X: float64(x), Y: float64(y), Z: float64(z)}.Normalize()
	b.cols["rot_0"][row] = float32(q.W)
	b.cols["rot_1"][row] = float32(q.X)
	b.cols["rot_2"][row] = float32(q.Y)
	b.cols["rot_3"][row] = float32(q.Z)
}

func (b *builder) setColor(row int, r, g, bl, a byte) {
	b.cols["f_dc_0"][row] = float32((float64(r)/255 - 0.5) / gmath.C0)
	b.cols["f_dc_1"][row] = float32((float64(g)/255 - 0.5) / gmath.C0)
	b.cols["f_dc_2"][row] = float32((float64(bl)/255 - 0.5) / gmath.C0)
	b.cols["opacity"][row] = float32(gmath.InvSigmoid(float64(a) / 255))
}

func f32(b []byte) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b))
}

func half(b []byte) float32 {
	return f16.ToFloat32(f16.Bits(binary.LittleEndian.Uint16(b)))
}
