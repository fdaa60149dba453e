// Package extract turns raw source pages into structured records. Every field
// is read through an ordered list of strategies so that markup drift on the
// source site is absorbed by adding a selector instead of changing code.
// An empty result is a valid outcome and is never reported as an error.
package extract
