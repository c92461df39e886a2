// Package splatforge converts, merges and edits 3D Gaussian-splat point
// clouds between on-disk representations: standard and compressed PLY, the
// antimatter15 .splat, the mkkellogg .ksplat, the Niantic .spz, the SOG
// super-compressed format, CSV and a standalone HTML viewer.
//
// All readers materialize a shared columnar table (package table); actions
// transform it in place or replace it; the writer for a given suffix emits
// it atomically. Compressed outputs run the Morton pre-sort and the k-means
// codebook quantizer.
//
//	p := splatforge.New(splatforge.WithOverwrite(true))
//	err := p.Run(ctx,
//	    []splatforge.FileSpec{{Path: "scene.ply", Actions: []splatforge.Action{
//	        splatforge.Rotate{Degrees: gmath.Vec3{Y: 90}},
//	    }}},
//	    splatforge.FileSpec{Path: "scene.sog"},
//	)
package splatforge
