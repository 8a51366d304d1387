package sheets

// View is the projected data handed to the answer generator.
type View map[string]Snapshot

// Project reduces every row of data to the fields selected for its sheet.
//
// Fields are kept only when present in both the row and the selection, so
// nothing is ever fabricated. A sheet without a selection entry keeps its
// rows but with no fields. TotalRows and Unavailable pass through unchanged. Projecting a
// view again with the same selection returns an equal view.
func Project(data Data, sel Selection) View {
	view := make(View, len(data))
	for name, snap := range data {
		fields := sel[name]
		rows := make([]Row, 0, len(snap.Rows))
		for _, row := range snap.Rows {
			projected := make(Row, len(fields))
			for _, field := range fields {
				if v, ok := row[field]; ok {
					projected[field] = v
				}
			}
			rows = append(rows, projected)
		}
		view[name] = Snapshot{Rows: rows, TotalRows: snap.TotalRows, Unavailable: snap.Unavailable}
	}
	return view
}

// AsData lets a projected view be projected again.
func (v View) AsData() Data {
	return Data(v)
}
