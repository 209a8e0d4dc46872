package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"medical-records-service/internal/config"
	"medical-records-service/internal/handlers"
	"medical-records-service/internal/middleware"
	"medical-records-service/internal/models"
	"medical-records-service/internal/storage"
)

// Handlers bundles every HTTP handler mounted by SetupRoutes.
type Handlers struct {
	MedicalRecords *handlers.MedicalRecordHandler
	Diagnostics    *handlers.DiagnosticHandler
	Prescriptions  *handlers.PrescriptionHandler
	Diseases       *handlers.DiseaseHandler
	Documents      *handlers.DocumentHandler
	MedicalOrders  *handlers.MedicalOrderHandler
	LabResults     *handlers.LabResultHandler
	PatientSearch  *handlers.PatientSearchHandler
}

// SetupRoutes configures the application routes.
func SetupRoutes(router *gin.Engine, h Handlers, store *storage.Store, cfg *config.Config, logger zerolog.Logger) {
	clinical := middleware.RoleAuthMiddleware(models.ClinicalStaff...)
	prescribers := middleware.RoleAuthMiddleware(models.RoleDoctor, models.RoleAdmin)
	adminOnly := middleware.RoleAuthMiddleware(models.RoleAdmin)

	private := router.Group("/api/v1")
	private.Use(middleware.AuthMiddleware(cfg.JWTSecret))
	{
		medicalRecordRoutes := private.Group("/medical-records")
		{
			medicalRecordRoutes.POST("", h.MedicalRecords.CreateMedicalRecord)
			medicalRecordRoutes.GET("", h.MedicalRecords.ListMedicalRecords)
			medicalRecordRoutes.GET("/patient/:patientId", h.MedicalRecords.GetMedicalRecordsForPatient)
			medicalRecordRoutes.GET("/appointment/:appointmentId", h.MedicalRecords.GetMedicalRecordByAppointment)
			medicalRecordRoutes.GET("/:id", h.MedicalRecords.GetMedicalRecord)
			medicalRecordRoutes.PUT("/:id", h.MedicalRecords.UpdateMedicalRecord)
			medicalRecordRoutes.DELETE("/:id", h.MedicalRecords.ArchiveMedicalRecord)
		}

		// Files are staged before the handler runs and removed again unless
		// the diagnostic commits them.
		diagnosticRoutes := private.Group("/diagnostics")
		{
			diagnosticRoutes.POST("/:patientId", prescribers,
				middleware.StageUploads(store, middleware.UploadSpec{
					Area:  storage.AreaDiagnostics,
					Field: "documents",
					Owner: func(c *gin.Context) string { return c.Param("patientId") },
				}, logger),
				h.Diagnostics.CreateDiagnostic)
			diagnosticRoutes.GET("/medical-record/:medicalRecordId", h.Diagnostics.ListByMedicalRecord)
		}

		prescriptionRoutes := private.Group("/prescriptions")
		{
			prescriptionRoutes.POST("", h.Prescriptions.CreatePrescription)
			prescriptionRoutes.GET("", h.Prescriptions.ListPrescriptions)
			prescriptionRoutes.GET("/patient/:patientId", h.Prescriptions.ListPatientPrescriptions)
			prescriptionRoutes.GET("/:id", h.Prescriptions.GetPrescription)
			prescriptionRoutes.GET("/:id/pdf", h.Prescriptions.GetPrescriptionPDF)
			prescriptionRoutes.PUT("/:id", h.Prescriptions.UpdatePrescription)
			prescriptionRoutes.DELETE("/:id", h.Prescriptions.DeletePrescription)
		}

		labResultRoutes := private.Group("/lab-results")
		{
			labResultRoutes.POST("", h.LabResults.CreateLabResult)
			labResultRoutes.GET("", h.LabResults.ListLabResults)
			labResultRoutes.GET("/:id", h.LabResults.GetLabResult)
			labResultRoutes.PUT("/:id", h.LabResults.UpdateLabResult)
			labResultRoutes.DELETE("/:id", h.LabResults.DeleteLabResult)
		}

		diseaseRoutes := private.Group("/diseases")
		{
			diseaseRoutes.GET("", clinical, h.Diseases.ListDiseases)
			diseaseRoutes.GET("/code/:code", clinical, h.Diseases.GetDiseaseByCode)
			diseaseRoutes.GET("/:id", clinical, h.Diseases.GetDisease)
			diseaseRoutes.POST("", adminOnly, h.Diseases.CreateDisease)
			diseaseRoutes.PUT("/:id", adminOnly, h.Diseases.UpdateDisease)
			diseaseRoutes.DELETE("/:id", adminOnly, h.Diseases.DeleteDisease)
		}

		documentRoutes := private.Group("/documents")
		{
			documentRoutes.POST("/upload", clinical,
				middleware.StageUploads(store, middleware.UploadSpec{
					Area:     storage.AreaDocuments,
					Field:    "document",
					MaxFiles: 1,
					Owner:    func(c *gin.Context) string { return c.PostForm("patientId") },
				}, logger),
				h.Documents.UploadDocument)
			documentRoutes.GET("/patient/:patientId", clinical, h.Documents.ListPatientDocuments)
			documentRoutes.GET("/:id", clinical, h.Documents.DownloadDocument)
			documentRoutes.DELETE("/:id", prescribers, h.Documents.DeleteDocument)
		}

		orderRoutes := private.Group("/medical-orders")
		{
			orderRoutes.GET("/templates", clinical, h.MedicalOrders.GetTemplates)
			orderRoutes.GET("/patient/:patientId", clinical, h.MedicalOrders.ListPatientOrders)
			orderRoutes.GET("/:id", clinical, h.MedicalOrders.GetOrder)
			orderRoutes.POST("/laboratory", prescribers, h.MedicalOrders.CreateLaboratoryOrder)
			orderRoutes.POST("/radiology", prescribers, h.MedicalOrders.CreateRadiologyOrder)
		}

		private.GET("/patients/search/advanced", clinical, h.PatientSearch.SearchPatients)
	}

	router.GET("/health", handlers.Health(cfg.Port))
}
