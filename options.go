package splatforge

import (
	"github.com/splatforge/splatforge/gmath"
	"github.com/splatforge/splatforge/internal/fs"
	"github.com/splatforge/splatforge/internal/webpcodec"
	"github.com/splatforge/splatforge/kmeans"
)

type options struct {
	logger     *Logger
	fsys       fs.FileSystem
	overwrite  bool
	iterations int
	useGPU     bool
	gpu        kmeans.BatchClusterer
	webp       webpcodec.Codec
	cameraPos  gmath.Vec3
	cameraTgt  gmath.Vec3
}

// Option configures a Pipeline.
type Option func(*options)

func defaultOptions() options {
	return options{
		logger:     NoopLogger(),
		fsys:       fs.Default,
		iterations: 10,
		cameraPos:  gmath.Vec3{X: 2, Y: 2, Z: -2},
	}
}

// WithLogger sets the pipeline logger.
func WithLogger(l *Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithFileSystem swaps the file system; tests point this at temp dirs.
func WithFileSystem(fsys fs.FileSystem) Option {
	return func(o *options) {
		if fsys != nil {
			o.fsys = fsys
		}
	}
}

// WithOverwrite allows replacing an existing output file.
func WithOverwrite(overwrite bool) Option {
	return func(o *options) { o.overwrite = overwrite }
}

// WithIterations sets the k-means iteration count used by compressed
// writers.
func WithIterations(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.iterations = n
		}
	}
}

// WithGPU requests GPU clustering through the given batch clusterer. The
// clusterer is supplied by the caller and used as-is for every SOG write;
// the pipeline neither creates nor releases a device. Requesting GPU with a
// nil clusterer surfaces ErrResourceUnavailable when a SOG output is written.
func WithGPU(clusterer kmeans.BatchClusterer) Option {
	return func(o *options) {
		o.useGPU = true
		o.gpu = clusterer
	}
}

// WithWebPCodec swaps the WebP implementation used by the SOG codec.
func WithWebPCodec(c webpcodec.Codec) Option {
	return func(o *options) { o.webp = c }
}

// WithCamera sets the viewer camera for HTML output.
func WithCamera(position, target gmath.Vec3) Option {
	return func(o *options) {
		o.cameraPos = position
		o.cameraTgt = target
	}
}
