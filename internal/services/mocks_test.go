package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"medical-records-service/internal/integrations"
	"medical-records-service/internal/models"
	"medical-records-service/internal/repositories"
	"medical-records-service/internal/storage"
)

// --- MockMedicalRecordRepository ---
var _ repositories.MedicalRecordRepositoryContract = (*MockMedicalRecordRepository)(nil)

type MockMedicalRecordRepository struct {
	CreateFunc                   func(ctx context.Context, record *models.MedicalRecord) error
	GetByIDFunc                  func(ctx context.Context, id string) (*models.MedicalRecord, error)
	GetDetailedFunc              func(ctx context.Context, id string) (*models.MedicalRecord, error)
	GetWithActiveDiagnosticsFunc func(ctx context.Context, id string) (*models.MedicalRecord, error)
	GetByAppointmentFunc         func(ctx context.Context, appointmentID string) (*models.MedicalRecord, error)
	ListFunc                     func(ctx context.Context, filter repositories.MedicalRecordFilter) ([]models.MedicalRecord, int64, error)
	ListByPatientFunc            func(ctx context.Context, patientID string) ([]models.MedicalRecord, error)
	UpdateFunc                   func(ctx context.Context, record *models.MedicalRecord) error

	CreateFuncCallCount int32
	UpdateFuncCallCount int32
}

func (m *MockMedicalRecordRepository) Create(ctx context.Context, record *models.MedicalRecord) error {
	atomic.AddInt32(&m.CreateFuncCallCount, 1)
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, record)
	}
	record.ID = "record-new"
	return nil
}

func (m *MockMedicalRecordRepository) GetByID(ctx context.Context, id string) (*models.MedicalRecord, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, errors.New("GetByIDFunc not implemented in mock")
}

func (m *MockMedicalRecordRepository) GetDetailed(ctx context.Context, id string) (*models.MedicalRecord, error) {
	if m.GetDetailedFunc != nil {
		return m.GetDetailedFunc(ctx, id)
	}
	return nil, errors.New("GetDetailedFunc not implemented in mock")
}

func (m *MockMedicalRecordRepository) GetWithActiveDiagnostics(ctx context.Context, id string) (*models.MedicalRecord, error) {
	if m.GetWithActiveDiagnosticsFunc != nil {
		return m.GetWithActiveDiagnosticsFunc(ctx, id)
	}
	return nil, errors.New("GetWithActiveDiagnosticsFunc not implemented in mock")
}

func (m *MockMedicalRecordRepository) GetByAppointment(ctx context.Context, appointmentID string) (*models.MedicalRecord, error) {
	if m.GetByAppointmentFunc != nil {
		return m.GetByAppointmentFunc(ctx, appointmentID)
	}
	return nil, errors.New("GetByAppointmentFunc not implemented in mock")
}

func (m *MockMedicalRecordRepository) List(ctx context.Context, filter repositories.MedicalRecordFilter) ([]models.MedicalRecord, int64, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, filter)
	}
	return nil, 0, nil
}

func (m *MockMedicalRecordRepository) ListByPatient(ctx context.Context, patientID string) ([]models.MedicalRecord, error) {
	if m.ListByPatientFunc != nil {
		return m.ListByPatientFunc(ctx, patientID)
	}
	return nil, nil
}

func (m *MockMedicalRecordRepository) Update(ctx context.Context, record *models.MedicalRecord) error {
	atomic.AddInt32(&m.UpdateFuncCallCount, 1)
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, record)
	}
	return nil
}

// --- MockDiseaseRepository ---
var _ repositories.DiseaseRepositoryContract = (*MockDiseaseRepository)(nil)

type MockDiseaseRepository struct {
	CreateFunc    func(ctx context.Context, disease *models.DiseaseCatalog) error
	GetByIDFunc   func(ctx context.Context, id string) (*models.DiseaseCatalog, error)
	GetByCodeFunc func(ctx context.Context, code string) (*models.DiseaseCatalog, error)
	ListFunc      func(ctx context.Context, filter repositories.DiseaseFilter) ([]models.DiseaseCatalog, error)
	UpdateFunc    func(ctx context.Context, disease *models.DiseaseCatalog) error

	CreateFuncCallCount int32
}

func (m *MockDiseaseRepository) Create(ctx context.Context, disease *models.DiseaseCatalog) error {
	atomic.AddInt32(&m.CreateFuncCallCount, 1)
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, disease)
	}
	return nil
}

func (m *MockDiseaseRepository) GetByID(ctx context.Context, id string) (*models.DiseaseCatalog, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, repositories.ErrNotFound
}

func (m *MockDiseaseRepository) GetByCode(ctx context.Context, code string) (*models.DiseaseCatalog, error) {
	if m.GetByCodeFunc != nil {
		return m.GetByCodeFunc(ctx, code)
	}
	return nil, repositories.ErrNotFound
}

func (m *MockDiseaseRepository) List(ctx context.Context, filter repositories.DiseaseFilter) ([]models.DiseaseCatalog, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, filter)
	}
	return nil, nil
}

func (m *MockDiseaseRepository) Update(ctx context.Context, disease *models.DiseaseCatalog) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, disease)
	}
	return nil
}

// --- MockDiagnosticRepository ---
var _ repositories.DiagnosticRepositoryContract = (*MockDiagnosticRepository)(nil)

type MockDiagnosticRepository struct {
	GetByIDFunc             func(ctx context.Context, id string) (*models.Diagnostic, error)
	HasActivePrimaryFunc    func(ctx context.Context, medicalRecordID string) (bool, error)
	CreateWithDocumentsFunc func(ctx context.Context, diagnostic *models.Diagnostic, documents []models.Document) error
	ListByMedicalRecordFunc func(ctx context.Context, medicalRecordID string) ([]models.Diagnostic, error)
	SearchPatientIDsFunc    func(ctx context.Context, filter repositories.PatientSearchFilter) ([]string, int64, error)
	LatestMatchingFunc      func(ctx context.Context, filter repositories.PatientSearchFilter, patientIDs []string) (map[string]models.Diagnostic, error)

	CreateWithDocumentsFuncCallCount int32
}

func (m *MockDiagnosticRepository) GetByID(ctx context.Context, id string) (*models.Diagnostic, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, repositories.ErrNotFound
}

func (m *MockDiagnosticRepository) HasActivePrimary(ctx context.Context, medicalRecordID string) (bool, error) {
	if m.HasActivePrimaryFunc != nil {
		return m.HasActivePrimaryFunc(ctx, medicalRecordID)
	}
	return false, nil
}

func (m *MockDiagnosticRepository) CreateWithDocuments(ctx context.Context, diagnostic *models.Diagnostic, documents []models.Document) error {
	atomic.AddInt32(&m.CreateWithDocumentsFuncCallCount, 1)
	if m.CreateWithDocumentsFunc != nil {
		return m.CreateWithDocumentsFunc(ctx, diagnostic, documents)
	}
	return nil
}

func (m *MockDiagnosticRepository) ListByMedicalRecord(ctx context.Context, medicalRecordID string) ([]models.Diagnostic, error) {
	if m.ListByMedicalRecordFunc != nil {
		return m.ListByMedicalRecordFunc(ctx, medicalRecordID)
	}
	return nil, nil
}

func (m *MockDiagnosticRepository) SearchPatientIDs(ctx context.Context, filter repositories.PatientSearchFilter) ([]string, int64, error) {
	if m.SearchPatientIDsFunc != nil {
		return m.SearchPatientIDsFunc(ctx, filter)
	}
	return nil, 0, nil
}

func (m *MockDiagnosticRepository) LatestMatching(ctx context.Context, filter repositories.PatientSearchFilter, patientIDs []string) (map[string]models.Diagnostic, error) {
	if m.LatestMatchingFunc != nil {
		return m.LatestMatchingFunc(ctx, filter, patientIDs)
	}
	return map[string]models.Diagnostic{}, nil
}

// --- MockDocumentRepository ---
var _ repositories.DocumentRepositoryContract = (*MockDocumentRepository)(nil)

type MockDocumentRepository struct {
	CreateFunc               func(ctx context.Context, document *models.Document) error
	GetByIDFunc              func(ctx context.Context, id string) (*models.Document, error)
	ListFunc                 func(ctx context.Context, filter repositories.DocumentFilter) ([]models.Document, int64, error)
	SoftDeleteFunc           func(ctx context.Context, id string) error
	StoredFilenameExistsFunc func(ctx context.Context, storeFilename string) (bool, error)

	CreateFuncCallCount     int32
	SoftDeleteFuncCallCount int32
}

func (m *MockDocumentRepository) Create(ctx context.Context, document *models.Document) error {
	atomic.AddInt32(&m.CreateFuncCallCount, 1)
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, document)
	}
	document.ID = "document-new"
	return nil
}

func (m *MockDocumentRepository) GetByID(ctx context.Context, id string) (*models.Document, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, repositories.ErrNotFound
}

func (m *MockDocumentRepository) List(ctx context.Context, filter repositories.DocumentFilter) ([]models.Document, int64, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, filter)
	}
	return nil, 0, nil
}

func (m *MockDocumentRepository) SoftDelete(ctx context.Context, id string) error {
	atomic.AddInt32(&m.SoftDeleteFuncCallCount, 1)
	if m.SoftDeleteFunc != nil {
		return m.SoftDeleteFunc(ctx, id)
	}
	return nil
}

func (m *MockDocumentRepository) StoredFilenameExists(ctx context.Context, storeFilename string) (bool, error) {
	if m.StoredFilenameExistsFunc != nil {
		return m.StoredFilenameExistsFunc(ctx, storeFilename)
	}
	return false, nil
}

// --- MockPrescriptionRepository ---
var _ repositories.PrescriptionRepositoryContract = (*MockPrescriptionRepository)(nil)

type MockPrescriptionRepository struct {
	CreateFunc  func(ctx context.Context, prescription *models.Prescription) error
	GetByIDFunc func(ctx context.Context, id string) (*models.Prescription, error)
	ListFunc    func(ctx context.Context, filter repositories.PrescriptionFilter) ([]models.Prescription, int64, error)
	UpdateFunc  func(ctx context.Context, prescription *models.Prescription) error
	DeleteFunc  func(ctx context.Context, id string) error

	CreateFuncCallCount int32
}

func (m *MockPrescriptionRepository) Create(ctx context.Context, prescription *models.Prescription) error {
	atomic.AddInt32(&m.CreateFuncCallCount, 1)
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, prescription)
	}
	prescription.ID = "prescription-new"
	return nil
}

func (m *MockPrescriptionRepository) GetByID(ctx context.Context, id string) (*models.Prescription, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, repositories.ErrNotFound
}

func (m *MockPrescriptionRepository) List(ctx context.Context, filter repositories.PrescriptionFilter) ([]models.Prescription, int64, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, filter)
	}
	return nil, 0, nil
}

func (m *MockPrescriptionRepository) Update(ctx context.Context, prescription *models.Prescription) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, prescription)
	}
	return nil
}

func (m *MockPrescriptionRepository) Delete(ctx context.Context, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil
}

// --- MockMedicalOrderRepository ---
var _ repositories.MedicalOrderRepositoryContract = (*MockMedicalOrderRepository)(nil)

type MockMedicalOrderRepository struct {
	CreateFunc        func(ctx context.Context, order *models.MedicalOrder) error
	GetByIDFunc       func(ctx context.Context, id string) (*models.MedicalOrder, error)
	ListByPatientFunc func(ctx context.Context, patientID string, orderType models.OrderType, status models.OrderStatus) ([]models.MedicalOrder, error)

	CreateFuncCallCount int32
}

func (m *MockMedicalOrderRepository) Create(ctx context.Context, order *models.MedicalOrder) error {
	atomic.AddInt32(&m.CreateFuncCallCount, 1)
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, order)
	}
	order.ID = "order-new"
	return nil
}

func (m *MockMedicalOrderRepository) GetByID(ctx context.Context, id string) (*models.MedicalOrder, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, repositories.ErrNotFound
}

func (m *MockMedicalOrderRepository) ListByPatient(ctx context.Context, patientID string, orderType models.OrderType, status models.OrderStatus) ([]models.MedicalOrder, error) {
	if m.ListByPatientFunc != nil {
		return m.ListByPatientFunc(ctx, patientID, orderType, status)
	}
	return nil, nil
}

// --- collaborators ---

// fakeVerifier reports every id as present unless listed in missing.
type fakeVerifier struct {
	missing map[string]bool
	calls   int32
}

func (f *fakeVerifier) VerifyExists(_ context.Context, _ integrations.Kind, id, _ string) bool {
	atomic.AddInt32(&f.calls, 1)
	return id != "" && !f.missing[id]
}

type fakeAudit struct {
	mu     sync.Mutex
	events []integrations.AuditEvent
}

func (f *fakeAudit) Emit(event integrations.AuditEvent, _ string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
}

func (f *fakeAudit) actions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, e := range f.events {
		out = append(out, e.Action)
	}
	return out
}

type fakeAllergies []string

func (f fakeAllergies) Allergies(context.Context, string, string) []string { return f }

type fakeDirectory struct {
	users    map[string]map[string]any
	patients map[string]map[string]any
}

func (f *fakeDirectory) UserDetails(_ context.Context, id, _ string) map[string]any {
	return f.users[id]
}

func (f *fakeDirectory) PatientInfo(_ context.Context, id, _ string) map[string]any {
	return f.patients[id]
}

type fakeAppointments struct {
	check integrations.AppointmentCheck
}

func (f fakeAppointments) ValidateAppointmentForPatient(context.Context, string, string, string) integrations.AppointmentCheck {
	return f.check
}

// fakeSaver keeps the last file it was given.
type fakeSaver struct {
	area storage.Area
	name string
	data []byte
}

func (f *fakeSaver) Save(area storage.Area, name string, data []byte) (string, error) {
	f.area, f.name, f.data = area, name, data
	return "/uploads/" + string(area) + "/" + name, nil
}
