package sog

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"sort"

	"github.com/splatforge/splatforge/gmath"
	"github.com/splatforge/splatforge/internal/fs"
	"github.com/splatforge/splatforge/internal/zipio"
	"github.com/splatforge/splatforge/kmeans"
	"github.com/splatforge/splatforge/morton"
	"github.com/splatforge/splatforge/table"
)

// file is one encoded output, kept ordered for deterministic bundles.
type file struct {
	name string
	data []byte
}

// WriteBundle encodes the table and wraps every texture plus the descriptor
// in a STORE-only ZIP stream.
func WriteBundle(w io.Writer, t *table.Table, opts *Options) error {
	files, err := encode(t, opts)
	if err != nil {
		return err
	}
	zw := zipio.NewWriter(w)
	for _, f := range files {
		if err := zw.Add(f.name, f.data); err != nil {
			return err
		}
	}
	return zw.Close()
}

// WriteFiles encodes the table as loose files in metaPath's directory, with
// the descriptor at metaPath itself.
func WriteFiles(fsys fs.FileSystem, metaPath string, t *table.Table, opts *Options) error {
	files, err := encode(t, opts)
	if err != nil {
		return err
	}
	dir := filepath.Dir(metaPath)
	for _, f := range files {
		path := filepath.Join(dir, f.name)
		if f.name == fileMeta {
			path = metaPath
		}
		err := fs.WriteAtomic(fsys, path, func(out fs.File) error {
			_, err := out.Write(f.data)
			return err
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// encode runs the full SOG pipeline: Morton order, texture packing, codebook
// clustering, WebP encoding and descriptor assembly.
func encode(t *table.Table, o *Options) ([]file, error) {
	opts := o.withDefaults()

	if err := table.CheckGaussian(t); err != nil {
		return nil, err
	}
	bands, err := table.SHBands(t)
	if err != nil {
		return nil, err
	}

	for _, name := range table.RequiredColumns {
		if table.Float32Data(t.Column(name)) == nil {
			return nil, fmt.Errorf("sog: write requires float32 gaussian columns (%s)", name)
		}
	}
	x := table.Float32Data(t.Column("x"))
	y := table.Float32Data(t.Column("y"))
	z := table.Float32Data(t.Column("z"))
	ordered := t.Permute(morton.Order(x, y, z))

	n := ordered.NumRows()
	width, height := textureDims(n)
	m := &meta{Version: 2, Count: n}

	var files []file
	addTexture := func(name string, rgba []byte) error {
		data, err := opts.Codec.EncodeLosslessRGBA(rgba, width, height)
		if err != nil {
			return err
		}
		files = append(files, file{name: name, data: data})
		return nil
	}

	get := func(name string) []float32 { return table.Float32Data(ordered.Column(name)) }

	// Means: two textures carry the 16-bit log-transformed positions.
	lowRGBA := newRGBA(width, height)
	highRGBA := newRGBA(width, height)
	axes := [3][]float32{get("x"), get("y"), get("z")}
	for a := 0; a < 3; a++ {
		lo, hi := math.Inf(1), math.Inf(-1)
		for _, v := range axes[a] {
			lt := float64(logTransform(v))
			if lt < lo {
				lo = lt
			}
			if lt > hi {
				hi = lt
			}
		}
		m.Means.Mins[a] = lo
		m.Means.Maxs[a] = hi
		for i, v := range axes[a] {
			q := uint16(0)
			if hi > lo {
				q = uint16(math.Round(65535 * (float64(logTransform(v)) - lo) / (hi - lo)))
			}
			lowRGBA[i*4+a] = byte(q)
			highRGBA[i*4+a] = byte(q >> 8)
		}
	}
	m.Means.Files = []string{fileMeansLow, fileMeansHigh}
	if err := addTexture(fileMeansLow, lowRGBA); err != nil {
		return nil, err
	}
	if err := addTexture(fileMeansHigh, highRGBA); err != nil {
		return nil, err
	}

	// Quats: smallest-three packed into RGB, omitted index tagged in alpha.
	quatRGBA := newRGBA(width, height)
	r0, r1, r2, r3 := get("rot_0"), get("rot_1"), get("rot_2"), get("rot_3")
	for i := 0; i < n; i++ {
		encodeQuat(quatRGBA[i*4:], r0[i], r1[i], r2[i], r3[i])
	}
	m.Quats.Files = []string{fileQuats}
	if err := addTexture(fileQuats, quatRGBA); err != nil {
		return nil, err
	}

	// Scales: one shared 256-entry codebook over all three axes.
	scaleCols := [3][]float32{get("scale_0"), get("scale_1"), get("scale_2")}
	scaleBook, scaleLabels, err := palette1D(stack3(scaleCols, n), &opts)
	if err != nil {
		return nil, err
	}
	scaleRGBA := newRGBA(width, height)
	for i := 0; i < n; i++ {
		scaleRGBA[i*4+0] = scaleLabels[i]
		scaleRGBA[i*4+1] = scaleLabels[n+i]
		scaleRGBA[i*4+2] = scaleLabels[2*n+i]
	}
	m.Scales = metaPalette{Codebook: scaleBook, Files: []string{fileScales}}
	if err := addTexture(fileScales, scaleRGBA); err != nil {
		return nil, err
	}

	// SH0 + opacity: codebook labels in RGB, visible alpha in A.
	dcCols := [3][]float32{get("f_dc_0"), get("f_dc_1"), get("f_dc_2")}
	dcBook, dcLabels, err := palette1D(stack3(dcCols, n), &opts)
	if err != nil {
		return nil, err
	}
	op := get("opacity")
	sh0RGBA := newRGBA(width, height)
	for i := 0; i < n; i++ {
		sh0RGBA[i*4+0] = dcLabels[i]
		sh0RGBA[i*4+1] = dcLabels[n+i]
		sh0RGBA[i*4+2] = dcLabels[2*n+i]
		sh0RGBA[i*4+3] = byte(clampRound(gmath.Sigmoid(float64(op[i]))*255, 0, 255))
	}
	m.Sh0 = metaPalette{Codebook: dcBook, Files: []string{fileSH0}}
	if err := addTexture(fileSH0, sh0RGBA); err != nil {
		return nil, err
	}

	// SH rest: palette the coefficient vectors, then codebook the palette.
	if bands > 0 {
		shn, centTex, centW, centH, labelRGBA, err := encodeSHN(ordered, bands, n, width, height, &opts)
		if err != nil {
			return nil, err
		}
		m.ShN = shn
		data, err := opts.Codec.EncodeLosslessRGBA(centTex, centW, centH)
		if err != nil {
			return nil, err
		}
		files = append(files, file{name: fileSHNCentroids, data: data})
		if err := addTexture(fileSHNLabels, labelRGBA); err != nil {
			return nil, err
		}
	}

	metaBytes, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, err
	}
	files = append(files, file{name: fileMeta, data: metaBytes})
	return files, nil
}

// paletteSize picks the SH-rest palette: min(64, 2^floor(log2(n/1024)))*1024,
// never below 1024.
func paletteSize(n int) int {
	factor := 1
	for factor*2 <= n/1024 && factor < 64 {
		factor *= 2
	}
	return factor * 1024
}

// encodeSHN builds the shN centroid and label textures.
func encodeSHN(t *table.Table, bands, n, width, height int, opts *Options) (*metaShN, []byte, int, int, []byte, error) {
	coeffs := table.CoeffsForBand(bands)
	dim := 3 * coeffs
	rest := table.RestData(t, bands)
	if rest == nil {
		return nil, nil, 0, 0, nil, fmt.Errorf("sog: f_rest columns must be float32")
	}

	points := make([]float32, n*dim)
	for i := 0; i < n; i++ {
		for d := 0; d < dim; d++ {
			points[i*dim+d] = rest[d][i]
		}
	}

	k := paletteSize(n)
	centroids, labels, err := kmeans.Cluster(points, dim, k,
		kmeans.WithIterations(opts.Iterations),
		kmeans.WithSeed(opts.Seed),
		kmeans.WithBatch(opts.Batch),
	)
	if err != nil {
		return nil, nil, 0, 0, nil, err
	}
	if len(centroids)/dim < k {
		k = len(centroids) / dim
	}

	// Second stage: a 256-entry codebook over the centroid values maps each
	// coefficient to a byte.
	book, valueLabels, err := palette1D(centroids, opts)
	if err != nil {
		return nil, nil, 0, 0, nil, err
	}

	centW := 64 * coeffs
	centH := (k + 63) / 64
	centTex := newRGBA(centW, centH)
	for c := 0; c < k; c++ {
		px := (c % 64) * coeffs
		py := c / 64
		for j := 0; j < coeffs; j++ {
			at := (py*centW + px + j) * 4
			centTex[at+0] = valueLabels[c*dim+j]
			centTex[at+1] = valueLabels[c*dim+coeffs+j]
			centTex[at+2] = valueLabels[c*dim+2*coeffs+j]
			centTex[at+3] = 255
		}
	}

	labelRGBA := newRGBA(width, height)
	for i := 0; i < n; i++ {
		labelRGBA[i*4+0] = byte(labels[i])
		labelRGBA[i*4+1] = byte(labels[i] >> 8)
	}

	return &metaShN{
		Count:    k,
		Bands:    bands,
		Codebook: book,
		Files:    []string{fileSHNCentroids, fileSHNLabels},
	}, centTex, centW, centH, labelRGBA, nil
}

// palette1D clusters scalar values into a 256-entry codebook sorted
// ascending and returns a byte label per value.
func palette1D(values []float32, opts *Options) ([]float64, []byte, error) {
	centroids, labels, err := kmeans.Cluster(values, 1, 256,
		kmeans.WithIterations(opts.Iterations),
		kmeans.WithSeed(opts.Seed),
		kmeans.WithBatch(opts.Batch),
	)
	if err != nil {
		return nil, nil, err
	}
	k := len(centroids)

	// Sort the codebook ascending and remap labels accordingly.
	order := make([]int, k)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return centroids[order[a]] < centroids[order[b]] })
	rank := make([]int, k)
	for r, idx := range order {
		rank[idx] = r
	}

	book := make([]float64, k)
	for r, idx := range order {
		book[r] = float64(centroids[idx])
	}
	out := make([]byte, len(values))
	for i, l := range labels {
		out[i] = byte(rank[int(l)])
	}
	return book, out, nil
}

// encodeQuat packs a normalized quaternion (w, x, y, z columns) into four
// bytes: the three smallest components in RGB, 252 plus the omitted index
// (over x, y, z, w) in alpha.
func encodeQuat(dst []byte, w, x, y, z float32) {
	q := gmath.Quat{W: float64(w), X: float64(x), Y: float64(y), Z: float64(z)}.Normalize()
	comps := [4]float64{q.X, q.Y, q.Z, q.W}

	largest := 0
	for i := 1; i < 4; i++ {
		if math.Abs(comps[i]) > math.Abs(comps[largest]) {
			largest = i
		}
	}
	if comps[largest] < 0 {
		for i := range comps {
			comps[i] = -comps[i]
		}
	}

	at := 0
	for i := 0; i < 4; i++ {
		if i == largest {
			continue
		}
		v := comps[i] * math.Sqrt2 // [-1, 1]
		dst[at] = byte(clampRound(255*(v*0.5+0.5), 0, 255))
		at++
	}
	dst[3] = byte(252 + largest)
}

func stack3(cols [3][]float32, n int) []float32 {
	out := make([]float32, 3*n)
	for c := 0; c < 3; c++ {
		copy(out[c*n:(c+1)*n], cols[c])
	}
	return out
}

func newRGBA(w, h int) []byte {
	rgba := make([]byte, w*h*4)
	for i := 3; i < len(rgba); i += 4 {
		rgba[i] = 255
	}
	return rgba
}

func clampRound(v, lo, hi float64) float64 {
	v = math.Round(v)
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
