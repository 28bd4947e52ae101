// Package domain holds the identity types shared by the relation engine:
// object ids, relation end-point ids and the error taxonomy.
package domain
