// Package models holds the gorm row types behind the repositories.
// Domain types never carry gorm tags; each model converts to and from its aggregate.
package models
