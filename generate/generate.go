// Package generate defines the adapter contract for procedural splat
// sources (the .mjs generator scripts): given string parameters, a
// generator streams rows over a fixed column-name set into a pre-allocated
// row dictionary. The format engine consumes the interface only; loading
// script engines is a plug-in concern.
package generate

import (
	"fmt"

	"github.com/splatforge/splatforge/table"
)

// Params are the name/value pairs collected from -P flags.
type Params map[string]string

// Generator produces splat rows procedurally.
type Generator interface {
	// Columns names the columns every generated row populates.
	Columns() []string
	// Count is the number of rows the generator will produce.
	Count() int
	// Generate fills row for index i. The dictionary is pre-allocated and
	// reused across calls.
	Generate(row map[string]float64, i int) error
}

// Factory builds a generator from parameters.
type Factory func(params Params) (Generator, error)

var factories = map[string]Factory{}

// Register installs a factory under a generator name. The plug-in loader
// calls this for each discovered script.
func Register(name string, f Factory) {
	factories[name] = f
}

// Lookup returns the named factory.
func Lookup(name string) (Factory, bool) {
	f, ok := factories[name]
	return f, ok
}

// Build runs a generator to completion, materializing a float32 table over
// its column set.
func Build(g Generator) (*table.Table, error) {
	names := g.Columns()
	n := g.Count()

	cols := make([]table.Column, len(names))
	data := make([][]float32, len(names))
	for i, name := range names {
		data[i] = make([]float32, n)
		cols[i] = table.NewColumn(name, data[i])
	}

	row := make(map[string]float64, len(names))
	for i := 0; i < n; i++ {
		if err := g.Generate(row, i); err != nil {
			return nil, fmt.Errorf("generate row %d: %w", i, err)
		}
		for c, name := range names {
			data[c][i] = float32(row[name])
		}
	}
	return table.New(cols...)
}
