// Package models contains GORM persistence models for the licensing tables.
// Domain types stay free of ORM tags; the mappers here convert in both directions.
//
//   - base.go: BaseModel and AggregateModel
//   - license_application.go: license_applications
//   - status_history.go: license_status_history
//   - document.go: license_documents
package models
