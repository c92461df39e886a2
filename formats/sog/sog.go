// Package sog implements the super-compressed SOG format: per-attribute
// WebP textures plus a meta.json descriptor, stored either as a folder next
// to the descriptor or bundled into a STORE-only ZIP (.sog).
//
// Positions are log-transformed and quantized to 16 bits across two
// textures; quaternions use a smallest-three byte packing; scales, DC color
// and spherical harmonics run through 256-entry k-means codebooks.
package sog

import (
	"errors"

	"github.com/chewxy/math32"

	"github.com/splatforge/splatforge/internal/webpcodec"
	"github.com/splatforge/splatforge/kmeans"
)

const (
	fileMeta         = "meta.json"
	fileMeansLow     = "means_l.webp"
	fileMeansHigh    = "means_u.webp"
	fileQuats        = "quats.webp"
	fileScales       = "scales.webp"
	fileSH0          = "sh0.webp"
	fileSHNCentroids = "shN_centroids.webp"
	fileSHNLabels    = "shN_labels.webp"
)

var (
	// ErrNoMeta is returned when a bundle carries no meta.json.
	ErrNoMeta = errors.New("sog: missing meta.json")
	// ErrBadMeta is returned for a descriptor the reader cannot use.
	ErrBadMeta = errors.New("sog: malformed meta.json")
	// ErrMissingTexture is returned when a referenced texture is absent.
	ErrMissingTexture = errors.New("sog: missing texture")
)

// Options configure the SOG writer.
type Options struct {
	// Iterations is the k-means iteration count for every codebook.
	Iterations int
	// Seed makes codebook initialization reproducible.
	Seed int64
	// Codec performs WebP encode/decode; nil selects the pure-Go codec.
	Codec webpcodec.Codec
	// Batch optionally routes k-means assignment through an external
	// clusterer (the GPU path).
	Batch kmeans.BatchClusterer
}

func (o *Options) withDefaults() Options {
	out := Options{Iterations: 10, Seed: 0x50609}
	if o != nil {
		if o.Iterations > 0 {
			out.Iterations = o.Iterations
		}
		out.Seed = o.Seed
		out.Codec = o.Codec
		out.Batch = o.Batch
	}
	if out.Codec == nil {
		out.Codec = webpcodec.Native{}
	}
	return out
}

// meta is the on-disk descriptor. Version 2 records codebooks; the legacy
// shape carried per-channel mins/maxs instead, which the reader still
// accepts.
type meta struct {
	Version int         `json:"version"`
	Count   int         `json:"count"`
	Means   metaMeans   `json:"means"`
	Scales  metaPalette `json:"scales"`
	Quats   metaFiles   `json:"quats"`
	Sh0     metaPalette `json:"sh0"`
	ShN     *metaShN    `json:"shN,omitempty"`
}

type metaMeans struct {
	Mins  [3]float64 `json:"mins"`
	Maxs  [3]float64 `json:"maxs"`
	Files []string   `json:"files"`
}

type metaFiles struct {
	Files []string `json:"files"`
}

type metaPalette struct {
	Codebook []float64 `json:"codebook,omitempty"`
	// Legacy linear-dequantization shape.
	Mins  []float64 `json:"mins,omitempty"`
	Maxs  []float64 `json:"maxs,omitempty"`
	Files []string  `json:"files"`
}

type metaShN struct {
	Count    int       `json:"count"`
	Bands    int       `json:"bands"`
	Codebook []float64 `json:"codebook,omitempty"`
	Files    []string  `json:"files"`
}

// textureDims picks the shared texture size: width is the splat count's
// square root rounded up to a multiple of four, height the row count
// likewise.
func textureDims(n int) (int, int) {
	if n == 0 {
		return 4, 4
	}
	width := (int(math32.Ceil(math32.Sqrt(float32(n))))+3) / 4 * 4
	rows := (n + width - 1) / width
	height := (rows + 3) / 4 * 4
	return width, height
}

// logTransform compresses a coordinate as sign(v) * ln(|v| + 1).
func logTransform(v float32) float32 {
	if v < 0 {
		return -math32.Log(-v + 1)
	}
	return math32.Log(v + 1)
}

// invLogTransform inverts logTransform: sign(v) * (e^|v| - 1).
func invLogTransform(v float32) float32 {
	if v < 0 {
		return -(math32.Exp(-v) - 1)
	}
	return math32.Exp(v) - 1
}
