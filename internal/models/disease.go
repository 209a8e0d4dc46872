package models

// DiseaseCatalog is the reference list of codified diseases. Code is the
// immutable business key; deletion only clears IsActive.
type DiseaseCatalog struct {
	BaseModel
	Code        string `gorm:"size:20;uniqueIndex;not null" json:"code"`
	Name        string `gorm:"size:255;index;not null" json:"name"`
	Description string `gorm:"type:text" json:"description,omitempty"`
	IsActive    bool   `gorm:"index;not null" json:"isActive"`
}
