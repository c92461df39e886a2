// Package htmlout writes a self-contained HTML viewer: the scene embedded
// as base64 compressed PLY with the camera vectors substituted into a
// template.
package htmlout

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"github.com/splatforge/splatforge/formats/ply"
	"github.com/splatforge/splatforge/gmath"
	"github.com/splatforge/splatforge/table"
)

// Options position the viewer camera.
type Options struct {
	CameraPosition gmath.Vec3
	CameraTarget   gmath.Vec3
}

// Write renders the viewer page for the given Gaussian table.
func Write(w io.Writer, t *table.Table, opts *Options) error {
	var o Options
	if opts != nil {
		o = *opts
	}

	var scene bytes.Buffer
	if err := ply.WriteCompressed(&scene, t); err != nil {
		return err
	}

	page := strings.NewReplacer(
		"{{sceneData}}", base64.StdEncoding.EncodeToString(scene.Bytes()),
		"{{cameraPosition}}", vec(o.CameraPosition),
		"{{cameraTarget}}", vec(o.CameraTarget),
	).Replace(viewerTemplate)

	_, err := io.WriteString(w, page)
	return err
}

func vec(v gmath.Vec3) string {
	return fmt.Sprintf("[%g, %g, %g]", v.X, v.Y, v.Z)
}
