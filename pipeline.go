package splatforge

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/splatforge/splatforge/formats/csvout"
	"github.com/splatforge/splatforge/formats/htmlout"
	"github.com/splatforge/splatforge/formats/ksplat"
	"github.com/splatforge/splatforge/formats/ply"
	"github.com/splatforge/splatforge/formats/sog"
	"github.com/splatforge/splatforge/formats/splat"
	"github.com/splatforge/splatforge/formats/spz"
	"github.com/splatforge/splatforge/generate"
	"github.com/splatforge/splatforge/internal/fs"
	"github.com/splatforge/splatforge/table"
)

// FileSpec names one input or output file together with the actions applied
// to it, in command-line order.
type FileSpec struct {
	Path    string
	Actions []Action
}

// Pipeline reads inputs, transforms them, merges them and writes the
// output.
type Pipeline struct {
	opts options
}

// New creates a Pipeline.
func New(opts ...Option) *Pipeline {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Pipeline{opts: o}
}

// Run executes the full conversion: inputs are read concurrently, each
// file's action sequence applies in order against its own table, the tables
// merge by column union, the output actions apply, and the writer emits
// atomically.
func (p *Pipeline) Run(ctx context.Context, inputs []FileSpec, output FileSpec) error {
	if len(inputs) == 0 {
		return fmt.Errorf("%w: at least one input file required", ErrInvalidArgument)
	}

	if !p.opts.overwrite {
		if _, err := p.opts.fsys.Stat(output.Path); err == nil {
			return fmt.Errorf("%w: %q", ErrOutputExists, output.Path)
		}
	}

	tables := make([]*table.Table, len(inputs))
	g, ctx := errgroup.WithContext(ctx)
	for i, in := range inputs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			t, err := p.readFile(in)
			if err != nil {
				return err
			}
			log := p.opts.logger.WithFile(in.Path).WithRows(t.NumRows())
			log.Debug("read input")
			for _, action := range MergeActions(in.Actions) {
				if t, err = action.Apply(t); err != nil {
					return translateError(in.Path, err)
				}
			}
			tables[i] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	merged, err := table.Combine(tables)
	if err != nil {
		return translateError(output.Path, err)
	}
	for _, action := range MergeActions(output.Actions) {
		if merged, err = action.Apply(merged); err != nil {
			return translateError(output.Path, err)
		}
	}

	p.opts.logger.WithFile(output.Path).WithRows(merged.NumRows()).Info("writing output")
	return p.writeFile(output.Path, merged)
}

// readFile dispatches on the input suffix.
func (p *Pipeline) readFile(in FileSpec) (*table.Table, error) {
	path := in.Path
	switch {
	case hasSuffix(path, ".ply"):
		return p.readStream(path, ply.Read)
	case hasSuffix(path, ".splat"):
		return p.readStream(path, splat.Read)
	case hasSuffix(path, ".spz"):
		return p.readStream(path, spz.Read)
	case hasSuffix(path, ".ksplat"):
		data, err := fs.ReadFile(p.opts.fsys, path)
		if err != nil {
			return nil, err
		}
		t, err := ksplat.Read(data)
		if err != nil {
			return nil, &ErrMalformedInput{Path: path, cause: err}
		}
		return t, nil
	case hasSuffix(path, ".sog"):
		data, err := fs.ReadFile(p.opts.fsys, path)
		if err != nil {
			return nil, err
		}
		t, err := sog.ReadBundle(data, p.opts.webp)
		if err != nil {
			return nil, &ErrMalformedInput{Path: path, cause: err}
		}
		return t, nil
	case isMetaJSON(path):
		t, err := sog.ReadFiles(p.opts.fsys, path, p.opts.webp)
		if err != nil {
			return nil, &ErrMalformedInput{Path: path, cause: err}
		}
		return t, nil
	case hasSuffix(path, ".mjs"):
		return p.runGenerator(in)
	default:
		return nil, &ErrUnsupportedFormat{Path: path}
	}
}

func (p *Pipeline) readStream(path string, decode func(io.Reader) (*table.Table, error)) (*table.Table, error) {
	f, err := p.opts.fsys.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	t, err := decode(f)
	if err != nil {
		return nil, &ErrMalformedInput{Path: path, cause: err}
	}
	return t, nil
}

// runGenerator resolves a .mjs input through the generator registry, keyed
// by the script's base name, feeding it the file's -P parameters.
func (p *Pipeline) runGenerator(in FileSpec) (*table.Table, error) {
	name := strings.TrimSuffix(filepath.Base(in.Path), filepath.Ext(in.Path))
	factory, ok := generate.Lookup(name)
	if !ok {
		return nil, &ErrUnsupportedFormat{Path: in.Path}
	}

	params := generate.Params{}
	for _, action := range in.Actions {
		if pa, ok := action.(Param); ok {
			for k, v := range pa.Values {
				params[k] = v
			}
		}
	}
	gen, err := factory(params)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	return generate.Build(gen)
}

// writeFile dispatches on the output suffix; all single-file outputs stream
// through the atomic writer.
func (p *Pipeline) writeFile(path string, t *table.Table) error {
	atomic := func(write func(fs.File) error) error {
		return fs.WriteAtomic(p.opts.fsys, path, write)
	}

	switch {
	case hasSuffix(path, ".compressed.ply"):
		return atomic(func(f fs.File) error { return translateError(path, ply.WriteCompressed(f, t)) })
	case hasSuffix(path, ".ply"):
		return atomic(func(f fs.File) error { return ply.Write(f, t) })
	case hasSuffix(path, ".splat"):
		return atomic(func(f fs.File) error { return translateError(path, splat.Write(f, t)) })
	case hasSuffix(path, ".csv"):
		return atomic(func(f fs.File) error { return csvout.Write(f, t) })
	case hasSuffix(path, ".html"):
		return atomic(func(f fs.File) error {
			return translateError(path, htmlout.Write(f, t, &htmlout.Options{
				CameraPosition: p.opts.cameraPos,
				CameraTarget:   p.opts.cameraTgt,
			}))
		})
	case hasSuffix(path, ".sog"):
		opts, err := p.sogOptions()
		if err != nil {
			return err
		}
		return atomic(func(f fs.File) error { return translateError(path, sog.WriteBundle(f, t, opts)) })
	case isMetaJSON(path):
		opts, err := p.sogOptions()
		if err != nil {
			return err
		}
		return translateError(path, sog.WriteFiles(p.opts.fsys, path, t, opts))
	default:
		return &ErrUnsupportedFormat{Path: path}
	}
}

func (p *Pipeline) sogOptions() (*sog.Options, error) {
	opts := &sog.Options{
		Iterations: p.opts.iterations,
		Codec:      p.opts.webp,
	}
	if p.opts.useGPU {
		if p.opts.gpu == nil {
			return nil, fmt.Errorf("%w: GPU clustering requested but no device available", ErrResourceUnavailable)
		}
		opts.Batch = p.opts.gpu
	}
	return opts, nil
}

func hasSuffix(path, suffix string) bool {
	return strings.HasSuffix(strings.ToLower(path), suffix)
}

func isMetaJSON(path string) bool {
	return strings.EqualFold(filepath.Base(path), "meta.json")
}
