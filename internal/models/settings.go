package models

// SettingsRowID is the id of the only live settings row.
const SettingsRowID = 1

type Settings struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Maintenance bool   `gorm:"not null;default:false" json:"maintenance"`
	Message     string `gorm:"type:text" json:"message"`
}

type UpdateSettingsRequest struct {
	Maintenance bool   `json:"maintenance"`
	Message     string `json:"message"`
}

type SettingsResponse struct {
	Maintenance bool   `json:"maintenance"`
	Message     string `json:"message"`
	Loading     bool   `json:"loading"`
}
