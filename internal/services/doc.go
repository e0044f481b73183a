// Package services implements the logic behind the dashboard API.
//
// Handlers in transport/http stay thin and delegate here. The index service answers from
// the in-memory run state first and falls back to the artifacts on disk, so a restarted
// server keeps serving the last published values.
package services
