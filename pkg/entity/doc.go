// Package entity declares the entity kinds managed by formsync and the field
// schemas that drive normalization, encoding, and option resolution.
//
// A Schema lists fields in display order. Reference fields name the kind they
// point at (Target) so pickers know which collection to resolve options from,
// and reference sets declare how they travel inside multipart bodies through
// an ArrayStrategy. Kinds that declare at least one attachment field are
// always submitted as multipart/form-data; every other kind is submitted as
// JSON. The encoding mode is a property of the schema, never of the data.
package entity
