// Package viz renders epidemic runs in the terminal.
//
//   - [Plot] and [PlotCompartments]: asciigraph line plots for the CLI
//   - [Canvas]: Braille-based pixel canvas used by the interactive browser
//   - [SummaryTable]: lipgloss table of a run's headline numbers
//   - Theme selection with 5 built-in color schemes
package viz
