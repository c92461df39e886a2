package table

import (
	"fmt"
	"strings"
)

// RequiredColumns is the column set a table must carry to be treated as a
// Gaussian splat set.
var RequiredColumns = []string{
	"x", "y", "z",
	"scale_0", "scale_1", "scale_2",
	"rot_0", "rot_1", "rot_2", "rot_3",
	"f_dc_0", "f_dc_1", "f_dc_2",
	"opacity",
}

// ErrMissingColumns reports the required Gaussian columns a table lacks.
type ErrMissingColumns struct {
	Missing []string
}

func (e *ErrMissingColumns) Error() string {
	return fmt.Sprintf("not a gaussian splat table: missing columns %s", strings.Join(e.Missing, ", "))
}

// ErrBadRestCount reports an f_rest_* column count that maps to no SH band.
type ErrBadRestCount struct {
	Count int
}

func (e *ErrBadRestCount) Error() string {
	return fmt.Sprintf("unsupported spherical harmonics layout: %d f_rest columns (want 0, 9, 24 or 45)", e.Count)
}

// CoeffsForBand returns C(b), the per-channel coefficient count for SH bands
// 1..b beyond DC.
func CoeffsForBand(b int) int {
	switch b {
	case 0:
		return 0
	case 1:
		return 3
	case 2:
		return 8
	case 3:
		return 15
	default:
		panic(fmt.Sprintf("table: invalid SH band %d", b))
	}
}

// CheckGaussian verifies the table carries every required Gaussian column.
func CheckGaussian(t *Table) error {
	var missing []string
	for _, name := range RequiredColumns {
		if !t.HasColumn(name) {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return &ErrMissingColumns{Missing: missing}
	}
	return nil
}

// IsGaussian reports whether the table is a Gaussian splat set.
func IsGaussian(t *Table) bool { return CheckGaussian(t) == nil }

// RestColumnCount counts the contiguous f_rest_0..f_rest_{n-1} columns.
func RestColumnCount(t *Table) int {
	n := 0
	for t.HasColumn(fmt.Sprintf("f_rest_%d", n)) {
		n++
	}
	return n
}

// SHBands returns the SH band count implied by the table's f_rest columns:
// 0, 9, 24 or 45 rest columns map to bands 0..3. Any other count is an error.
func SHBands(t *Table) (int, error) {
	switch n := RestColumnCount(t); n {
	case 0:
		return 0, nil
	case 9:
		return 1, nil
	case 24:
		return 2, nil
	case 45:
		return 3, nil
	default:
		return 0, &ErrBadRestCount{Count: n}
	}
}

// RestData collects the f_rest column backings for a table with the given
// band count, in channel-major order. All rest columns must be float32.
func RestData(t *Table, bands int) [][]float32 {
	n := 3 * CoeffsForBand(bands)
	out := make([][]float32, n)
	for i := 0; i < n; i++ {
		c := t.Column(fmt.Sprintf("f_rest_%d", i))
		if c == nil {
			return nil
		}
		data := Float32Data(c)
		if data == nil {
			return nil
		}
		out[i] = data
	}
	return out
}
