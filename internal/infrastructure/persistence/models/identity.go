package models

import (
	"time"

	"github.com/chrisfalcon1208/apprest/internal/domain/identity"
	"github.com/chrisfalcon1208/apprest/internal/domain/venue"
)

// UserModel is the persistence model for a floor user. TokenID is the id of
// the one session credential currently valid for the user; logout clears it.
type UserModel struct {
	BaseModel
	Name         string `gorm:"type:varchar(100);not null"`
	Email        string `gorm:"type:varchar(200);not null;uniqueIndex"`
	PasswordHash string `gorm:"type:varchar(200);not null"`
	Role         string `gorm:"type:varchar(20);not null"`
	TokenID      string `gorm:"type:varchar(36);index"`
	LastLoginAt  *time.Time
}

// TableName returns the table name for GORM
func (UserModel) TableName() string {
	return "users"
}

// ToDomain converts to the redacted domain user
func (m *UserModel) ToDomain() identity.User {
	return identity.User{
		ID:    m.ID,
		Name:  m.Name,
		Email: m.Email,
		Role:  identity.Role(m.Role),
	}
}

// ProfileModel is the business profile singleton, always row 1
type ProfileModel struct {
	ID         uint   `gorm:"primaryKey"`
	Name       string `gorm:"type:varchar(200);not null"`
	Phone      string `gorm:"type:varchar(50)"`
	LogoRef    string `gorm:"type:varchar(500)"`
	TableCount int    `gorm:"not null;default:10"`
	UpdatedAt  time.Time
}

// ProfileID is the primary key of the singleton row
const ProfileID = 1

// TableName returns the table name for GORM
func (ProfileModel) TableName() string {
	return "business_profile"
}

// ToDomain converts to the domain profile
func (m *ProfileModel) ToDomain() venue.Profile {
	return venue.Profile{
		Name:       m.Name,
		Phone:      m.Phone,
		LogoRef:    m.LogoRef,
		TableCount: m.TableCount,
	}
}

// ProfileModelFromDomain converts the domain profile
func ProfileModelFromDomain(p venue.Profile) *ProfileModel {
	return &ProfileModel{
		ID:         ProfileID,
		Name:       p.Name,
		Phone:      p.Phone,
		LogoRef:    p.LogoRef,
		TableCount: p.TableCount,
	}
}
