// Package normalize maps raw platform records into the unified data model:
// merge requests and differential revisions into Revisions, note lists and
// transaction streams into ordered Comments.
//
// Normalization is pure per item apart from identity resolution, which goes
// through an IdentityCache constructed per aggregation call. A project
// lookup miss drops the single affected item from its batch — logged, never
// fatal.
package normalize
