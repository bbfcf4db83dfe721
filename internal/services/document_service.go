// internal/services/document_service.go
package services

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/municipal/procurement-backend/internal/engine"
	"github.com/municipal/procurement-backend/internal/models"
	"github.com/municipal/procurement-backend/internal/utils"
)

const downloadURLTTL = 15 * time.Minute

// presigner is implemented by blob stores that hand out temporary links.
type presigner interface {
	PresignedURL(key string, expiration time.Duration) (string, error)
}

type DocumentService struct {
	contracts   ContractStore
	documents   DocumentStore
	blobs       BlobStore
	permissions *PermissionService
	maxSize     int64
}

type UploadDocumentRequest struct {
	DocumentCode string `json:"document_code" validate:"required,max=50"`
	FileName     string `json:"file_name" validate:"required,max=255"`
	ContentType  string `json:"content_type" validate:"max=100"`
	// Checksum is an optional hex SHA-256 of Data, verified on upload.
	Checksum string `json:"checksum" validate:"omitempty,len=64,hexadecimal"`
	Data     []byte `json:"-"`
}

func NewDocumentService(contracts ContractStore, documents DocumentStore, blobs BlobStore, permissions *PermissionService, maxSize int64) *DocumentService {
	return &DocumentService{
		contracts:   contracts,
		documents:   documents,
		blobs:       blobs,
		permissions: permissions,
		maxSize:     maxSize,
	}
}

// Upload stores a document for one of the phase's effective document codes
// and records it as active.
func (s *DocumentService) Upload(ctx context.Context, actor Actor, contractID uuid.UUID, phaseCode string, req *UploadDocumentRequest) (*models.ContractDocument, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	contract, err := s.contracts.Get(ctx, contractID)
	if err != nil {
		return nil, err
	}
	if err := s.permissions.Require(ctx, actor, contract.DepartmentID, models.PermissionCategoryDocuments, models.PermissionActionCreate); err != nil {
		return nil, err
	}

	occ, _ := contract.Occurrence(phaseCode)
	if occ == nil {
		return nil, engine.NotFound(engine.ResourcePhase, phaseCode)
	}
	if occ.Status == models.PhaseStatusCompleted || occ.Status == models.PhaseStatusCancelled {
		return nil, &PhaseClosedError{Phase: phaseCode, Status: occ.Status}
	}
	spec, ok := occ.EffectiveDocuments.Find(req.DocumentCode)
	if !ok {
		return nil, engine.Invalid("document_code", fmt.Sprintf("%s is not a document of phase %s", req.DocumentCode, phaseCode))
	}
	if err := s.checkFile(spec, req); err != nil {
		return nil, err
	}

	suffix, err := utils.GenerateRandomString(8)
	if err != nil {
		return nil, fmt.Errorf("failed to generate storage key: %w", err)
	}
	key := documentKey(contractID.String(), phaseCode, req.DocumentCode, req.FileName, suffix)
	url, err := s.blobs.Put(ctx, key, req.ContentType, req.Data)
	if err != nil {
		return nil, err
	}

	doc := &models.ContractDocument{
		ContractID:   contractID,
		OccurrenceID: occ.ID,
		PhaseCode:    phaseCode,
		DocumentCode: req.DocumentCode,
		FileName:     req.FileName,
		StorageKey:   key,
		URL:          url,
		Size:         int64(len(req.Data)),
		MimeType:     req.ContentType,
		Checksum:     utils.HashBytes(req.Data),
		Status:       models.DocumentStatusActive,
		UploadedBy:   actor.UserID,
	}
	if err := s.documents.Create(ctx, doc); err != nil {
		if derr := s.blobs.Delete(ctx, key); derr != nil {
			logrus.WithError(derr).WithField("key", key).Warn("Failed to remove orphaned document blob")
		}
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"contract_id":   contractID,
		"phase":         phaseCode,
		"document_code": req.DocumentCode,
		"size":          doc.Size,
	}).Info("Document uploaded")
	return doc, nil
}

func (s *DocumentService) checkFile(spec models.DocumentSpec, req *UploadDocumentRequest) error {
	if len(req.Data) == 0 {
		return engine.Invalid("file", "is empty")
	}
	if req.Checksum != "" && !utils.ValidateFileHash(req.Data, strings.ToLower(req.Checksum)) {
		return engine.Invalid("checksum", "does not match the uploaded file")
	}

	limit := s.maxSize
	if spec.MaxFileSize > 0 && (limit <= 0 || spec.MaxFileSize < limit) {
		limit = spec.MaxFileSize
	}
	if limit > 0 && int64(len(req.Data)) > limit {
		return engine.Invalid("file", fmt.Sprintf("size %d bytes exceeds the %d byte limit", len(req.Data), limit))
	}

	if len(spec.AllowedFileTypes) > 0 {
		ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(req.FileName)), ".")
		for _, allowed := range spec.AllowedFileTypes {
			if strings.TrimPrefix(strings.ToLower(allowed), ".") == ext {
				return nil
			}
		}
		return engine.Invalid("file", fmt.Sprintf("type %q is not allowed, expected one of %s", ext, strings.Join(spec.AllowedFileTypes, ", ")))
	}
	return nil
}

// Delete marks the document deleted. The blob is kept for the audit trail.
func (s *DocumentService) Delete(ctx context.Context, actor Actor, contractID, documentID uuid.UUID) error {
	doc, err := s.documents.Get(ctx, documentID)
	if err != nil {
		return err
	}
	if doc.ContractID != contractID {
		return engine.NotFound(engine.ResourceDocument, documentID.String())
	}
	contract, err := s.contracts.Get(ctx, contractID)
	if err != nil {
		return err
	}
	if err := s.permissions.Require(ctx, actor, contract.DepartmentID, models.PermissionCategoryDocuments, models.PermissionActionDelete); err != nil {
		return err
	}
	if occ, _ := contract.Occurrence(doc.PhaseCode); occ != nil && occ.Status == models.PhaseStatusCompleted {
		return &PhaseClosedError{Phase: doc.PhaseCode, Status: occ.Status}
	}

	if err := s.documents.MarkDeleted(ctx, documentID, actor.UserID); err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{
		"contract_id":   contractID,
		"document_id":   documentID,
		"document_code": doc.DocumentCode,
	}).Info("Document deleted")
	return nil
}

// ListDocuments returns the active documents recorded for a phase.
func (s *DocumentService) ListDocuments(ctx context.Context, actor Actor, contractID uuid.UUID, phaseCode string) ([]models.ContractDocument, error) {
	contract, err := s.contracts.Get(ctx, contractID)
	if err != nil {
		return nil, err
	}
	if err := s.permissions.Require(ctx, actor, contract.DepartmentID, models.PermissionCategoryDocuments, models.PermissionActionRead); err != nil {
		return nil, err
	}
	if occ, _ := contract.Occurrence(phaseCode); occ == nil {
		return nil, engine.NotFound(engine.ResourcePhase, phaseCode)
	}
	return s.documents.ListByPhase(ctx, contractID, phaseCode)
}

// DownloadURL returns a temporary link when the blob store supports it and
// the stored URL otherwise.
func (s *DocumentService) DownloadURL(ctx context.Context, actor Actor, contractID, documentID uuid.UUID) (string, error) {
	doc, err := s.documents.Get(ctx, documentID)
	if err != nil {
		return "", err
	}
	if doc.ContractID != contractID || doc.Status != models.DocumentStatusActive {
		return "", engine.NotFound(engine.ResourceDocument, documentID.String())
	}
	contract, err := s.contracts.Get(ctx, contractID)
	if err != nil {
		return "", err
	}
	if err := s.permissions.Require(ctx, actor, contract.DepartmentID, models.PermissionCategoryDocuments, models.PermissionActionRead); err != nil {
		return "", err
	}

	if p, ok := s.blobs.(presigner); ok {
		return p.PresignedURL(doc.StorageKey, downloadURLTTL)
	}
	return doc.URL, nil
}
