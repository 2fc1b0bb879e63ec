// Package dataset holds uploaded tables in memory and implements the
// operations the sweeper applies to them.
//
// A Dataset is read from a CSV or XLSX upload with Read, which infers a
// type per column (int, float, bool or string) and marks the usual missing
// tokens ("", "NA", "NaN", "null", ...) as NA. The frame is a gota DataFrame.
//
// Operations:
//
//	DropDuplicates  remove repeated rows, keeping the first occurrence
//	FillMissing     replace NA in numeric columns with the column mean
//	Select          choose a column view, kept in file order
//	Head            preview the first rows of the view
//	Profile         per-column counts and descriptive statistics
//
// Example:
//
//	ds, err := dataset.Read("sales.csv", file, size)
//	if err != nil {
//	    return err
//	}
//	removed, _ := ds.DropDuplicates()
//	fills, _ := ds.FillMissing()
//	err = ds.Select([]string{"region", "revenue"})
package dataset
