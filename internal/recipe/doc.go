// Package recipe turns raw vision model output into persisted recipe
// artifacts.
//
// Clean extracts the JSON object from a chatty model response, NameFor derives
// a folder name from it, Location lays out where the artifacts go, and
// AnalysisRecord is the metadata document written next to every recipe.
package recipe
