// Package model holds runtime values of resources and their nested elements.
//
// An Instance is backed by a schema.ResourceType and only accepts values its
// field descriptors allow. Every setter is atomic: on error the instance is
// left exactly as it was. Nested instances form a tree; an instance has at
// most one owner and can not be attached in two places at once.
//
// Choice slots (value[x]) store one entry per variant, and every mutation
// through this package clears the sibling variants, so at most one variant of
// a slot is ever populated.
//
// Instances are not safe for concurrent mutation.
package model
