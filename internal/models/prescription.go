package models

import "time"

// Prescription is a medication order written against a diagnosed encounter.
type Prescription struct {
	BaseModel
	MedicalRecordID  string    `gorm:"size:36;index;not null" json:"medicalRecordId"`
	PatientID        string    `gorm:"size:64;index;not null" json:"patientId"`
	DoctorID         string    `gorm:"size:64;index;not null" json:"doctorId"`
	DiagnosticID     *string   `gorm:"size:36;index" json:"diagnosticId,omitempty"`
	Medication       string    `gorm:"size:255;not null" json:"medication"`
	MedicationType   string    `gorm:"size:50" json:"medicationType,omitempty"`
	Dosage           string    `gorm:"size:255;not null" json:"dosage"`
	Frequency        string    `gorm:"size:255;not null" json:"frequency"`
	Duration         string    `gorm:"size:100;not null" json:"duration"`
	Instructions     string    `gorm:"type:text" json:"instructions,omitempty"`
	PrescriptionDate time.Time `json:"prescriptionDate"`

	MedicalRecord *MedicalRecord `gorm:"foreignKey:MedicalRecordID" json:"medicalRecord,omitempty"`
}
