package models

import "gorm.io/datatypes"

// Platform is a supported external game platform (Steam, Xbox, PSN, ...).
type Platform struct {
	BaseUUIDModel
	Slug              string         `gorm:"type:varchar(64);uniqueIndex;not null" json:"slug"`
	Name              string         `gorm:"type:varchar(128);not null"            json:"name"`
	RequiresAuth      bool           `gorm:"not null;default:true"                 json:"requiresAuth"`
	CredentialsSchema datatypes.JSON `gorm:"type:jsonb"                            json:"credentialsSchema,omitempty"`
}

func (Platform) TableName() string {
	return "platforms"
}
