// Package dataset holds the tabular plumbing shared by the analytics pipelines:
// loading CSV and SQL data into gota DataFrames, typed column access with
// lookup and type errors, and date parsing.
package dataset
