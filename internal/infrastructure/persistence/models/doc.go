// Package models holds the GORM persistence models of the reference server
// and their conversions to domain types. Ids are server-generated UUID
// strings.
package models
