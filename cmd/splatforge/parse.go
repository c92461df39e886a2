package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/splatforge/splatforge"
	"github.com/splatforge/splatforge/generate"
	"github.com/splatforge/splatforge/gmath"
)

// invocation is the parsed command line: global flags plus the ordered file
// list, each file carrying the actions that followed it.
type invocation struct {
	help       bool
	version    bool
	overwrite  bool
	noGPU      bool
	iterations int
	cameraPos  gmath.Vec3
	cameraTgt  gmath.Vec3

	inputs []splatforge.FileSpec
	output splatforge.FileSpec
}

// parseArgs scans the raw argument stream. Global flags may appear
// anywhere; action flags attach to the most recent positional path; the
// last path is the output.
func parseArgs(args []string) (*invocation, error) {
	inv := &invocation{
		iterations: 10,
		cameraPos:  gmath.Vec3{X: 2, Y: 2, Z: -2},
	}

	var files []splatforge.FileSpec
	current := -1

	next := func(i *int, flag string) (string, error) {
		*i++
		if *i >= len(args) {
			return "", fmt.Errorf("flag %s requires a value", flag)
		}
		return args[*i], nil
	}
	action := func(a splatforge.Action, flag string) error {
		if current < 0 {
			return fmt.Errorf("action flag %s must follow a file path", flag)
		}
		files[current].Actions = append(files[current].Actions, a)
		return nil
	}

	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch arg {
		case "-h", "--help":
			inv.help = true
			return inv, nil
		case "-v", "--version":
			inv.version = true
			return inv, nil
		case "-w", "--overwrite":
			inv.overwrite = true
		case "-g", "--no-gpu":
			inv.noGPU = true
		case "-i", "--iterations":
			v, err := next(&i, arg)
			if err != nil {
				return nil, err
			}
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				return nil, fmt.Errorf("invalid iteration count %q", v)
			}
			inv.iterations = n
		case "-p", "--cameraPos":
			v, err := next(&i, arg)
			if err != nil {
				return nil, err
			}
			if inv.cameraPos, err = parseVec3(v); err != nil {
				return nil, err
			}
		case "-e", "--cameraTarget":
			v, err := next(&i, arg)
			if err != nil {
				return nil, err
			}
			if inv.cameraTgt, err = parseVec3(v); err != nil {
				return nil, err
			}
		case "-t":
			v, err := next(&i, arg)
			if err != nil {
				return nil, err
			}
			vec, err := parseVec3(v)
			if err != nil {
				return nil, err
			}
			if err := action(splatforge.Translate{Offset: vec}, arg); err != nil {
				return nil, err
			}
		case "-r":
			v, err := next(&i, arg)
			if err != nil {
				return nil, err
			}
			vec, err := parseVec3(v)
			if err != nil {
				return nil, err
			}
			if err := action(splatforge.Rotate{Degrees: vec}, arg); err != nil {
				return nil, err
			}
		case "-s":
			v, err := next(&i, arg)
			if err != nil {
				return nil, err
			}
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid scale factor %q", v)
			}
			if err := action(splatforge.Scale{Factor: f}, arg); err != nil {
				return nil, err
			}
		case "-n":
			if err := action(splatforge.FilterNaN{}, arg); err != nil {
				return nil, err
			}
		case "-c":
			v, err := next(&i, arg)
			if err != nil {
				return nil, err
			}
			filter, err := parseValueFilter(v)
			if err != nil {
				return nil, err
			}
			if err := action(filter, arg); err != nil {
				return nil, err
			}
		case "-b":
			v, err := next(&i, arg)
			if err != nil {
				return nil, err
			}
			bands, err := strconv.Atoi(v)
			if err != nil || bands < 0 || bands > 3 {
				return nil, fmt.Errorf("invalid band count %q (want 0-3)", v)
			}
			if err := action(splatforge.FilterBands{Bands: bands}, arg); err != nil {
				return nil, err
			}
		case "-P":
			v, err := next(&i, arg)
			if err != nil {
				return nil, err
			}
			params, err := parseParams(v)
			if err != nil {
				return nil, err
			}
			if err := action(splatforge.Param{Values: params}, arg); err != nil {
				return nil, err
			}
		default:
			if strings.HasPrefix(arg, "-") {
				return nil, fmt.Errorf("unknown flag %q", arg)
			}
			files = append(files, splatforge.FileSpec{Path: arg})
			current = len(files) - 1
		}
	}

	if len(files) < 2 {
		return nil, fmt.Errorf("need at least one input and one output path")
	}
	inv.inputs = files[:len(files)-1]
	inv.output = files[len(files)-1]
	return inv, nil
}

// parseVec3 parses "x,y,z".
func parseVec3(s string) (gmath.Vec3, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return gmath.Vec3{}, fmt.Errorf("invalid vector %q (want x,y,z)", s)
	}
	var out [3]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return gmath.Vec3{}, fmt.Errorf("invalid vector component %q", p)
		}
		out[i] = v
	}
	return gmath.Vec3{X: out[0], Y: out[1], Z: out[2]}, nil
}

// parseValueFilter parses "name,cmp,value".
func parseValueFilter(s string) (splatforge.FilterByValue, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return splatforge.FilterByValue{}, fmt.Errorf("invalid filter %q (want name,cmp,value)", s)
	}
	switch parts[1] {
	case splatforge.CmpLT, splatforge.CmpLTE, splatforge.CmpGT, splatforge.CmpGTE, splatforge.CmpEQ, splatforge.CmpNEQ:
	default:
		return splatforge.FilterByValue{}, fmt.Errorf("unknown comparator %q", parts[1])
	}
	v, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return splatforge.FilterByValue{}, fmt.Errorf("invalid filter value %q", parts[2])
	}
	return splatforge.FilterByValue{Column: parts[0], Cmp: parts[1], Value: v}, nil
}

// parseParams parses "name=value[,name=value...]".
func parseParams(s string) (generate.Params, error) {
	params := generate.Params{}
	for _, pair := range strings.Split(s, ",") {
		name, value, ok := strings.Cut(pair, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid parameter %q (want name=value)", pair)
		}
		params[name] = value
	}
	return params, nil
}
