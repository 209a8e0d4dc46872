package models

// OrderType distinguishes laboratory from imaging orders
type OrderType string

const (
	OrderLaboratory OrderType = "LABORATORY"
	OrderRadiology  OrderType = "RADIOLOGY"
)

// OrderPriority is ROUTINE unless stated otherwise
type OrderPriority string

const (
	PriorityRoutine OrderPriority = "ROUTINE"
	PriorityUrgent  OrderPriority = "URGENT"
	PriorityStat    OrderPriority = "STAT"
)

// OrderStatus tracks an order through fulfilment
type OrderStatus string

const (
	OrderDraft     OrderStatus = "DRAFT"
	OrderOrdered   OrderStatus = "ORDERED"
	OrderCompleted OrderStatus = "COMPLETED"
	OrderCancelled OrderStatus = "CANCELLED"
)

// Orderable catalogs.
var (
	LabTestsAllowed       = []string{"Hemograma", "Química sanguínea", "Orina"}
	RadiologyExamsAllowed = []string{"Rayos X", "TAC", "Resonancia", "Ecografía"}
	OrderPriorities       = []OrderPriority{PriorityRoutine, PriorityUrgent, PriorityStat}
	OrderStatuses         = []OrderStatus{OrderDraft, OrderOrdered, OrderCompleted, OrderCancelled}
)

// MedicalOrder requests laboratory tests or imaging for a patient.
type MedicalOrder struct {
	BaseModel
	PatientID          string        `gorm:"size:64;index;not null" json:"patientId"`
	DoctorID           string        `gorm:"size:64;index;not null" json:"doctorId"`
	MedicalRecordID    string        `gorm:"size:36;index;not null" json:"medicalRecordId"`
	Type               OrderType     `gorm:"size:20;index;not null" json:"type"`
	LabTests           []string      `gorm:"type:text;serializer:json" json:"labTests,omitempty"`
	RadiologyExams     []string      `gorm:"type:text;serializer:json" json:"radiologyExams,omitempty"`
	Priority           OrderPriority `gorm:"size:10;not null" json:"priority"`
	Status             OrderStatus   `gorm:"size:20;index;not null" json:"status"`
	ClinicalIndication string        `gorm:"type:text" json:"clinicalIndication,omitempty"`
	Notes              string        `gorm:"type:text" json:"notes,omitempty"`
}
