// Package exporter copies approved items to the export location. Only
// finished items are eligible; recent mode limits the scope to items finished
// since the last clean run. Existing destination files are classified by size
// (present or different) instead of being overwritten.
package exporter
