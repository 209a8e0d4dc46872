package models

import "time"

// LabResult stores one laboratory test outcome for an encounter
type LabResult struct {
	BaseModel
	MedicalRecordID string    `gorm:"size:36;index;not null" json:"medicalRecordId"`
	TestType        string    `gorm:"size:255;index;not null" json:"testType"`
	Result          string    `gorm:"type:text;not null" json:"result"`
	ReferenceRange  string    `gorm:"size:255" json:"referenceRange,omitempty"`
	LabName         string    `gorm:"size:255" json:"labName,omitempty"`
	TestDate        time.Time `gorm:"index" json:"testDate"`
	Comments        string    `gorm:"type:text" json:"comments,omitempty"`
}
