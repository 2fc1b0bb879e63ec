// Package chart renders the bar chart view of a dataset: the first two
// numeric columns of the current column selection plotted against the row
// index, as PNG or SVG.
package chart
