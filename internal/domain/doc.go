// Package domain contains the data model shared by the indexcheck stages.
//
// A run writes Records built from a Template, keeps the successful writes in
// a CreatedSet keyed by the uuid the store assigned, and compares that set
// against query results until nothing is missing. Reports returned by each
// stage live here so the orchestrator and the report repository can share
// them without import cycles.
package domain
