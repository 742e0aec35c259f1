// Package cli defines the revq command tree: listing the cross-platform
// review queue, showing revision detail, posting and deleting comments, and
// managing configuration and the project cache.
package cli
