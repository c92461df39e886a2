package table

// columnKey identifies a column across tables: name plus element type.
type columnKey struct {
	name string
	typ  Type
}

// Combine merges the given Gaussian tables into one. The output column set
// is the union over inputs keyed by (name, element type) in first-seen
// order; the row count is the sum of input row counts. Columns absent from
// an input leave their rows at zero.
func Combine(tables []*Table) (*Table, error) {
	if len(tables) == 1 {
		return tables[0], nil
	}

	total := 0
	for _, t := range tables {
		if err := CheckGaussian(t); err != nil {
			return nil, err
		}
		total += t.NumRows()
	}

	// Union of (name, type) in first-seen order.
	var protos []Column
	seen := make(map[columnKey]int)
	for _, t := range tables {
		for _, c := range t.Columns() {
			key := columnKey{c.Name(), c.Type()}
			if _, ok := seen[key]; !ok {
				seen[key] = len(protos)
				protos = append(protos, c)
			}
		}
	}

	cols := make([]Column, len(protos))
	for i, p := range protos {
		cols[i] = p.empty(total)
	}

	offset := 0
	for _, t := range tables {
		n := t.NumRows()
		for _, src := range t.Columns() {
			idx, ok := seen[columnKey{src.Name(), src.Type()}]
			if !ok {
				continue
			}
			dst := cols[idx]
			for row := 0; row < n; row++ {
				src.copyRow(dst, offset+row, row)
			}
		}
		offset += n
	}

	out := &Table{cols: cols}
	for _, t := range tables {
		out.Comments = append(out.Comments, t.Comments...)
	}
	return out, nil
}
