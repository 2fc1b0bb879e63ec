package dataset

import (
	"fmt"

	"github.com/go-gota/gota/dataframe"
)

// Select sets the column view. Requested names must all exist; the view keeps
// them in their file order regardless of request order, and repeated names
// count once. A later call replaces the previous selection.
func (d *Dataset) Select(names []string) error {
	if len(names) == 0 {
		return ErrEmptySelection
	}

	wanted := make(map[string]struct{}, len(names))
	for _, name := range names {
		wanted[name] = struct{}{}
	}

	ordered := make([]string, 0, len(wanted))
	for _, name := range d.frame.Names() {
		if _, ok := wanted[name]; ok {
			ordered = append(ordered, name)
			delete(wanted, name)
		}
	}
	for _, name := range names {
		if _, missing := wanted[name]; missing {
			return fmt.Errorf("%w: %s", ErrUnknownColumn, name)
		}
	}

	d.selection = ordered
	return nil
}

// Selection returns the names of the columns in the current view.
func (d *Dataset) Selection() []string {
	if d.selection == nil {
		return d.frame.Names()
	}
	return append([]string(nil), d.selection...)
}

// View returns the selected columns of the current frame.
func (d *Dataset) View() dataframe.DataFrame {
	if d.selection == nil {
		return d.frame.Copy()
	}
	return d.frame.Select(d.selection)
}

// ViewColumns describes the columns of the current view.
func (d *Dataset) ViewColumns() []Column {
	return describe(d.View())
}
