package sog

import (
	"encoding/json"
	"fmt"
	"math"
	"path/filepath"

	"github.com/splatforge/splatforge/gmath"
	"github.com/splatforge/splatforge/internal/fs"
	"github.com/splatforge/splatforge/internal/webpcodec"
	"github.com/splatforge/splatforge/internal/zipio"
	"github.com/splatforge/splatforge/table"
)

// ReadBundle decodes a .sog ZIP bundle.
func ReadBundle(data []byte, codec webpcodec.Codec) (*table.Table, error) {
	files, err := zipio.ReadAll(data)
	if err != nil {
		return nil, err
	}
	metaBytes, ok := files[fileMeta]
	if !ok {
		return nil, ErrNoMeta
	}
	return decode(metaBytes, func(name string) ([]byte, error) {
		buf, ok := files[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingTexture, name)
		}
		return buf, nil
	}, codec)
}

// ReadFiles decodes the unbundled form: a meta.json with its textures in
// the same directory.
func ReadFiles(fsys fs.FileSystem, metaPath string, codec webpcodec.Codec) (*table.Table, error) {
	metaBytes, err := fs.ReadFile(fsys, metaPath)
	if err != nil {
		return nil, err
	}
	dir := filepath.Dir(metaPath)
	return decode(metaBytes, func(name string) ([]byte, error) {
		return fs.ReadFile(fsys, filepath.Join(dir, name))
	}, codec)
}

// texture is a decoded RGBA image.
type texture struct {
	rgba []byte
	w, h int
}

func decode(metaBytes []byte, load func(string) ([]byte, error), codec webpcodec.Codec) (*table.Table, error) {
	if codec == nil {
		codec = webpcodec.Native{}
	}

	var m meta
	if err := json.Unmarshal(metaBytes, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadMeta, err)
	}
	if m.Count <= 0 {
		return nil, fmt.Errorf("%w: bad count %d", ErrBadMeta, m.Count)
	}

	loadTex := func(name string) (*texture, error) {
		raw, err := load(name)
		if err != nil {
			return nil, err
		}
		rgba, w, h, err := codec.DecodeRGBA(raw)
		if err != nil {
			return nil, fmt.Errorf("sog: %s: %w", name, err)
		}
		return &texture{rgba: rgba, w: w, h: h}, nil
	}

	// loadSplatTex additionally checks the texture covers every splat.
	loadSplatTex := func(name string) (*texture, error) {
		tex, err := loadTex(name)
		if err != nil {
			return nil, err
		}
		if tex.w*tex.h < m.Count {
			return nil, fmt.Errorf("%w: %s holds %d pixels for %d splats", ErrBadMeta, name, tex.w*tex.h, m.Count)
		}
		return tex, nil
	}

	need := func(files []string, n int) ([]string, error) {
		if len(files) != n {
			return nil, fmt.Errorf("%w: expected %d files", ErrBadMeta, n)
		}
		return files, nil
	}

	n := m.Count
	names := []string{
		"x", "y", "z", "scale_0", "scale_1", "scale_2",
		"rot_0", "rot_1", "rot_2", "rot_3",
		"f_dc_0", "f_dc_1", "f_dc_2", "opacity",
	}
	cols := make(map[string][]float32, len(names))
	list := make([]table.Column, 0, len(names))
	for _, name := range names {
		d := make([]float32, n)
		cols[name] = d
		list = append(list, table.NewColumn(name, d))
	}

	// Means.
	meansFiles, err := need(m.Means.Files, 2)
	if err != nil {
		return nil, err
	}
	low, err := loadSplatTex(meansFiles[0])
	if err != nil {
		return nil, err
	}
	high, err := loadSplatTex(meansFiles[1])
	if err != nil {
		return nil, err
	}
	for a, name := range []string{"x", "y", "z"} {
		lo, hi := m.Means.Mins[a], m.Means.Maxs[a]
		for i := 0; i < n; i++ {
			q := uint16(low.rgba[i*4+a]) | uint16(high.rgba[i*4+a])<<8
			lt := lo
			if hi > lo {
				lt = lo + float64(q)/65535*(hi-lo)
			}
			cols[name][i] = invLogTransform(float32(lt))
		}
	}

	// Quats.
	quatFiles, err := need(m.Quats.Files, 1)
	if err != nil {
		return nil, err
	}
	quats, err := loadSplatTex(quatFiles[0])
	if err != nil {
		return nil, err
	}
	for i := 0; i < n; i++ {
		w, x, y, z := decodeQuat(quats.rgba[i*4:])
		cols["rot_0"][i] = w
		cols["rot_1"][i] = x
		cols["rot_2"][i] = y
		cols["rot_3"][i] = z
	}

	// Scales.
	scaleFiles, err := need(m.Scales.Files, 1)
	if err != nil {
		return nil, err
	}
	scales, err := loadSplatTex(scaleFiles[0])
	if err != nil {
		return nil, err
	}
	scaleLookup, err := paletteLookup(&m.Scales)
	if err != nil {
		return nil, err
	}
	for i := 0; i < n; i++ {
		cols["scale_0"][i] = scaleLookup(0, scales.rgba[i*4+0])
		cols["scale_1"][i] = scaleLookup(1, scales.rgba[i*4+1])
		cols["scale_2"][i] = scaleLookup(2, scales.rgba[i*4+2])
	}

	// SH0 and opacity.
	sh0Files, err := need(m.Sh0.Files, 1)
	if err != nil {
		return nil, err
	}
	sh0, err := loadSplatTex(sh0Files[0])
	if err != nil {
		return nil, err
	}
	dcLookup, err := paletteLookup(&m.Sh0)
	if err != nil {
		return nil, err
	}
	for i := 0; i < n; i++ {
		cols["f_dc_0"][i] = dcLookup(0, sh0.rgba[i*4+0])
		cols["f_dc_1"][i] = dcLookup(1, sh0.rgba[i*4+1])
		cols["f_dc_2"][i] = dcLookup(2, sh0.rgba[i*4+2])
		cols["opacity"][i] = float32(gmath.InvSigmoid(float64(sh0.rgba[i*4+3]) / 255))
	}

	tbl, err := table.New(list...)
	if err != nil {
		return nil, err
	}

	// SH rest.
	if m.ShN != nil {
		if err := decodeSHN(tbl, &m, loadTex, n); err != nil {
			return nil, err
		}
	}
	return tbl, nil
}

// paletteLookup resolves a byte label to a value: through the codebook when
// present, otherwise by the legacy per-channel linear dequantization.
func paletteLookup(p *metaPalette) (func(channel int, b byte) float32, error) {
	if len(p.Codebook) > 0 {
		book := p.Codebook
		return func(_ int, b byte) float32 {
			if int(b) >= len(book) {
				return float32(book[len(book)-1])
			}
			return float32(book[b])
		}, nil
	}
	if len(p.Mins) == 3 && len(p.Maxs) == 3 {
		mins, maxs := p.Mins, p.Maxs
		return func(channel int, b byte) float32 {
			return float32(mins[channel] + float64(b)/255*(maxs[channel]-mins[channel]))
		}, nil
	}
	return nil, fmt.Errorf("%w: palette has neither codebook nor ranges", ErrBadMeta)
}

func decodeSHN(tbl *table.Table, m *meta, loadTex func(string) (*texture, error), n int) error {
	shn := m.ShN
	if shn.Bands < 1 || shn.Bands > 3 {
		return fmt.Errorf("%w: shN bands %d", ErrBadMeta, shn.Bands)
	}
	files := shn.Files
	if len(files) != 2 {
		return fmt.Errorf("%w: shN expects centroid and label files", ErrBadMeta)
	}
	cent, err := loadTex(files[0])
	if err != nil {
		return err
	}
	labels, err := loadTex(files[1])
	if err != nil {
		return err
	}
	if labels.w*labels.h < n {
		return fmt.Errorf("%w: shN label texture too small", ErrBadMeta)
	}

	coeffs := table.CoeffsForBand(shn.Bands)
	book := shn.Codebook
	if len(book) == 0 {
		return fmt.Errorf("%w: shN codebook missing", ErrBadMeta)
	}
	lookup := func(b byte) float32 {
		if int(b) >= len(book) {
			return float32(book[len(book)-1])
		}
		return float32(book[b])
	}

	rest := make([][]float32, 3*coeffs)
	for i := range rest {
		rest[i] = make([]float32, n)
	}
	for i := 0; i < n; i++ {
		label := int(labels.rgba[i*4]) | int(labels.rgba[i*4+1])<<8
		if label >= shn.Count {
			return fmt.Errorf("%w: shN label %d out of range", ErrBadMeta, label)
		}
		px := (label % 64) * coeffs
		py := label / 64
		for j := 0; j < coeffs; j++ {
			at := (py*cent.w + px + j) * 4
			if at+2 >= len(cent.rgba) {
				return fmt.Errorf("%w: shN centroid texture too small", ErrBadMeta)
			}
			rest[0*coeffs+j][i] = lookup(cent.rgba[at+0])
			rest[1*coeffs+j][i] = lookup(cent.rgba[at+1])
			rest[2*coeffs+j][i] = lookup(cent.rgba[at+2])
		}
	}
	for i, data := range rest {
		if err := tbl.AddColumn(table.NewColumn(fmt.Sprintf("f_rest_%d", i), data)); err != nil {
			return err
		}
	}
	return nil
}

// decodeQuat inverts the smallest-three byte packing.
func decodeQuat(src []byte) (w, x, y, z float32) {
	largest := int(src[3]) - 252
	if largest < 0 || largest > 3 {
		return 1, 0, 0, 0
	}

	var comps [4]float64 // x, y, z, w
	sumSq := 0.0
	at := 0
	for i := 0; i < 4; i++ {
		if i == largest {
			continue
		}
		v := (float64(src[at])/255*2 - 1) / math.Sqrt2
		comps[i] = v
		sumSq += v * v
		at++
	}
	restSq := 1 - sumSq
	if restSq < 0 {
		restSq = 0
	}
	comps[largest] = math.Sqrt(restSq)
	return float32(comps[3]), float32(comps[0]), float32(comps[1]), float32(comps[2])
}
