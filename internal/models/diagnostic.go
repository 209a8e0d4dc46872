package models

import "time"

// DiagnosticType classifies a diagnosis within its encounter
type DiagnosticType string

const (
	DiagnosticPrimary   DiagnosticType = "PRIMARY"
	DiagnosticSecondary DiagnosticType = "SECONDARY"
)

// DiagnosticState is ACTIVE until the diagnosis is resolved or discarded
type DiagnosticState string

const (
	DiagnosticActive   DiagnosticState = "ACTIVE"
	DiagnosticResolved DiagnosticState = "RESOLVED"
	DiagnosticInactive DiagnosticState = "INACTIVE"
)

// Diagnostic ties one catalog disease to one medical record. DiseaseCode and
// DiseaseName are a snapshot of the catalog entry at creation time.
type Diagnostic struct {
	BaseModel
	PatientID       string          `gorm:"size:64;index;not null" json:"patientId"`
	DoctorID        string          `gorm:"size:64;index;not null" json:"doctorId"`
	MedicalRecordID string          `gorm:"size:36;index:idx_diagnostic_record_type_state;not null" json:"medicalRecordId"`
	DiseaseCode     string          `gorm:"size:20;index;not null" json:"diseaseCode"`
	DiseaseName     string          `gorm:"size:255;not null" json:"diseaseName"`
	Type            DiagnosticType  `gorm:"size:20;index:idx_diagnostic_record_type_state;not null" json:"type"`
	Title           string          `gorm:"size:255;not null" json:"title"`
	Description     string          `gorm:"type:text;not null" json:"description"`
	Diagnosis       string          `gorm:"type:text" json:"diagnosis"`
	Treatment       string          `gorm:"type:text;not null" json:"treatment"`
	Observations    string          `gorm:"type:text" json:"observations,omitempty"`
	NextAppointment *time.Time      `json:"nextAppointment,omitempty"`
	State           DiagnosticState `gorm:"size:20;index:idx_diagnostic_record_type_state;not null" json:"state"`

	Documents []Document `gorm:"foreignKey:DiagnosticID" json:"documents,omitempty"`
}
