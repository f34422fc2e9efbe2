// Package fridge holds the grocery domain model and the pure decision logic
// run by the reminder runners: expiration classification, expiration
// messages and nearest store/zone selection.
//
// All values are immutable; mutators return modified copies.
package fridge
