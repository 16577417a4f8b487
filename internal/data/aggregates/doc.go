// Package aggregates implements the domain aggregate contracts on top of gorm.
//
// Write methods compose the table repos from internal/data/repos, own their
// transaction, and undo image-store side effects when the transaction fails.
package aggregates
