package service

import (
	"context"
	"errors"
	"strings"

	"apartmentng/internal/apperr"
	"apartmentng/internal/auth"
	"apartmentng/internal/authz"
	"apartmentng/internal/media"
	"apartmentng/internal/models"
	"apartmentng/internal/store"
)

const msgDocumentNotFound = "Document not found"

// UploadAgentDocument stores a verification document for the calling agent.
// The new file is uploaded first; any earlier document of the same type is
// then replaced.
func (s *Service) UploadAgentDocument(ctx context.Context, p auth.Principal, docType models.DocumentType, file *Upload) (models.AgentDocument, error) {
	if err := authz.RequireRole(p, authz.AgentOnly...); err != nil {
		return models.AgentDocument{}, err
	}
	if file == nil || len(file.Data) == 0 {
		return models.AgentDocument{}, apperr.Validation("No file uploaded")
	}
	if !docType.Valid() {
		return models.AgentDocument{}, apperr.Validation("Invalid document type")
	}
	obj, err := media.Prepare(models.MediaDocument, file.Filename, file.Data, s.limits())
	if err != nil {
		return models.AgentDocument{}, err
	}
	stored, err := s.upload(ctx, obj)
	if err != nil {
		return models.AgentDocument{}, err
	}

	prior, err := s.st.GetAgentDocumentByType(ctx, p.ID, docType)
	switch {
	case err == nil:
		s.removeMedia(ctx, models.MediaDocument, prior.MediaID, "document_replace")
		if err := s.st.DeleteAgentDocument(ctx, prior.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
			s.discardUpload(ctx, models.MediaDocument, stored.ID)
			return models.AgentDocument{}, apperr.Internal(err)
		}
	case !errors.Is(err, store.ErrNotFound):
		s.discardUpload(ctx, models.MediaDocument, stored.ID)
		return models.AgentDocument{}, apperr.Internal(err)
	}

	doc, err := s.st.InsertAgentDocument(ctx, p.ID, docType, stored.URL, stored.ID)
	if err != nil {
		s.discardUpload(ctx, models.MediaDocument, stored.ID)
		if errors.Is(err, store.ErrConflict) {
			return models.AgentDocument{}, apperr.Conflict("A document of this type is already being uploaded")
		}
		return models.AgentDocument{}, apperr.Internal(err)
	}
	return doc, nil
}

// discardUpload removes an object whose row was never written.
func (s *Service) discardUpload(ctx context.Context, kind models.MediaKind, id string) {
	s.removeMedia(ctx, kind, id, "upload_rollback")
}

func (s *Service) DeleteAgentDocument(ctx context.Context, p auth.Principal, docID int64) error {
	if err := authz.RequireRole(p, authz.AgentOnly...); err != nil {
		return err
	}
	doc, err := s.st.GetAgentDocument(ctx, docID)
	if err != nil {
		return storeErr(err, msgDocumentNotFound)
	}
	if err := authz.RequireDocumentOwner(p, doc); err != nil {
		return err
	}
	s.removeMedia(ctx, models.MediaDocument, doc.MediaID, "document_delete")
	return storeErr(s.st.DeleteAgentDocument(ctx, doc.ID), msgDocumentNotFound)
}

// ReviewAgentDocument records an admin decision on a document of agentID.
// A rejection must carry a reason.
func (s *Service) ReviewAgentDocument(ctx context.Context, p auth.Principal, agentID, docID int64, status models.DocumentStatus, reason string) (models.AgentDocument, error) {
	if err := authz.RequireRole(p, authz.AdminOnly...); err != nil {
		return models.AgentDocument{}, err
	}
	reason = strings.TrimSpace(reason)
	var reasonPtr *string
	switch status {
	case models.DocApproved:
	case models.DocRejected:
		if reason == "" {
			return models.AgentDocument{}, apperr.Validation("A rejection reason is required")
		}
		reasonPtr = &reason
	default:
		return models.AgentDocument{}, apperr.Validation("Status must be approved or rejected")
	}
	doc, err := s.st.GetAgentDocument(ctx, docID)
	if err != nil {
		return models.AgentDocument{}, storeErr(err, msgDocumentNotFound)
	}
	if doc.AgentID != agentID {
		return models.AgentDocument{}, apperr.NotFound(msgDocumentNotFound)
	}
	if err := s.st.ReviewAgentDocument(ctx, doc.ID, status, reasonPtr, p.ID); err != nil {
		return models.AgentDocument{}, storeErr(err, msgDocumentNotFound)
	}
	out, err := s.st.GetAgentDocument(ctx, doc.ID)
	if err != nil {
		return models.AgentDocument{}, storeErr(err, msgDocumentNotFound)
	}
	return out, nil
}
