// Package output renders aggregation results for the terminal or for
// machine consumption. Text output is for humans scanning their review
// queue; JSON output carries the full normalized structures for scripting.
package output
