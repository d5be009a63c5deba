package settings

import "time"

// ProviderSetting is a named persisted value for the content provider, such as the API key override.
type ProviderSetting struct {
	Name      string    `gorm:"column:name;primaryKey" json:"name"`
	Value     string    `gorm:"column:value;type:text;not null" json:"-"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (ProviderSetting) TableName() string { return "provider_setting" }

const NameOpenAIAPIKey = "openai_api_key"
