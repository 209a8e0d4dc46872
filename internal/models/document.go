package models

import "gorm.io/gorm"

// DocumentCategory groups stored files by purpose
type DocumentCategory string

const (
	CategoryGeneral              DocumentCategory = "GENERAL"
	CategoryDiagnosticAttachment DocumentCategory = "DIAGNOSTIC_ATTACHMENT"
	CategoryLab                  DocumentCategory = "LAB"
	CategoryAdmin                DocumentCategory = "ADMIN"
)

// ValidCategory reports whether c is one of the known categories.
func ValidCategory(c DocumentCategory) bool {
	switch c {
	case CategoryGeneral, CategoryDiagnosticAttachment, CategoryLab, CategoryAdmin:
		return true
	}
	return false
}

// Document references a file kept on disk. Soft-deleted rows keep their file.
type Document struct {
	BaseModel
	PatientID       string           `gorm:"size:64;index;not null" json:"patientId"`
	MedicalRecordID string           `gorm:"size:36;index;not null" json:"medicalRecordId"`
	DiagnosticID    *string          `gorm:"size:36;index" json:"diagnosticId,omitempty"`
	Filename        string           `gorm:"size:255;not null" json:"filename"`
	StoreFilename   string           `gorm:"size:255;uniqueIndex;not null" json:"storeFilename"`
	FilePath        string           `gorm:"size:512;not null" json:"-"`
	MimeType        string           `gorm:"size:100;not null" json:"mimeType"`
	FileSize        int64            `json:"fileSize"`
	FileType        string           `gorm:"size:20" json:"fileType"`
	Category        DocumentCategory `gorm:"size:40;index;not null" json:"category"`
	Description     string           `gorm:"type:text" json:"description,omitempty"`
	Tags            []string         `gorm:"type:text;serializer:json" json:"tags"`
	UploadedBy      string           `gorm:"size:64;not null" json:"uploadedBy"`
	DeletedAt       gorm.DeletedAt   `gorm:"index" json:"-"`
}
