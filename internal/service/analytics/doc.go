// Package analytics runs the marketing pipelines on behalf of the API and
// the CLI.
//
// The service applies configured defaults, persists a run summary and its
// output table, caches clustering results, keeps two identical clustering
// runs from executing at once, keeps trained sentiment models for
// prediction and optionally emails a rendered report. Every collaborator is
// optional; without them the pipelines still run and return their results.
package analytics
