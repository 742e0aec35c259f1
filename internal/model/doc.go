// Package model defines the unified entities shared across the aggregation
// core: Revision, Project, DiffFile, Comment, and Reviewer.
//
// All entities are read-only projections constructed fresh per request;
// none are mutated after construction. A revision's identity is its
// (source, id) pair — platform IDs are never comparable across sources.
package model
