package models

import (
	"time"
)

// RecordStatus represents the lifecycle of an encounter
type RecordStatus string

const (
	RecordStatusActive   RecordStatus = "active"
	RecordStatusArchived RecordStatus = "archived"
)

// MedicalRecord is the aggregate root of one patient/physician encounter.
// Records are archived, never hard-deleted.
type MedicalRecord struct {
	BaseModel
	PatientID     string       `gorm:"size:64;index;not null" json:"patientId"`
	PhysicianID   string       `gorm:"size:64;index;not null" json:"physicianId"`
	AppointmentID *string      `gorm:"size:64;index" json:"appointmentId,omitempty"`
	Date          time.Time    `gorm:"index" json:"date"`
	Symptoms      string       `gorm:"type:text;not null" json:"symptoms"`
	Diagnosis     string       `gorm:"type:text" json:"diagnosis"`
	Treatment     string       `gorm:"type:text" json:"treatment"`
	Notes         string       `gorm:"type:text" json:"notes"`
	Status        RecordStatus `gorm:"size:20;index;not null" json:"status"`

	// Relations
	Diagnostics   []Diagnostic   `gorm:"foreignKey:MedicalRecordID" json:"diagnostics,omitempty"`
	Prescriptions []Prescription `gorm:"foreignKey:MedicalRecordID" json:"prescriptions,omitempty"`
	LabResults    []LabResult    `gorm:"foreignKey:MedicalRecordID" json:"labResults,omitempty"`
	MedicalOrders []MedicalOrder `gorm:"foreignKey:MedicalRecordID" json:"medicalOrders,omitempty"`
}
