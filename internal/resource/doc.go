// ABOUTME: Package resource implements the generic single-entity CRUD protocol
// ABOUTME: Schemas, records, validation and the service shared by the API and the admin forms

// Package resource implements the generic CRUD protocol that every entity
// of the store dashboard goes through.
//
// An entity is declared once as a Schema: its fields, which are required,
// which are refs to other entities, and which may filter a collection read.
// The Service runs the same pipeline for every schema:
//
//  1. the caller must be authenticated (except public creates)
//  2. the input is validated against the schema
//  3. creates require that the caller owns the target store
//  4. refs must point at records in the same store
//  5. exactly one repository call persists the change
//  6. observers (audit log, event publisher) are told about the change
//
// Updates and deletes are conditional writes scoped by record id and
// owner. A caller who does not own the record gets a zero count rather
// than an error.
package resource
