package store

import (
	"context"
	"database/sql"

	"apartmentng/internal/models"
)

const documentColumns = `id,agent_id,document_type,file_url,media_id,status,rejection_reason,uploaded_at,verified_at,verified_by`

func scanDocument(row rowScanner) (models.AgentDocument, error) {
	var d models.AgentDocument
	var reason sql.NullString
	var verifiedAt sql.NullTime
	var verifiedBy sql.NullInt64
	err := row.Scan(&d.ID, &d.AgentID, &d.DocumentType, &d.FileURL, &d.MediaID, &d.Status, &reason, &d.UploadedAt, &verifiedAt, &verifiedBy)
	if err == sql.ErrNoRows {
		return models.AgentDocument{}, ErrNotFound
	}
	if err != nil {
		return models.AgentDocument{}, err
	}
	d.RejectionReason = stringPtr(reason)
	d.VerifiedAt = timePtr(verifiedAt)
	d.VerifiedBy = int64Ptr(verifiedBy)
	return d, nil
}

// InsertAgentDocument stores a pending document. The (agent, type) pair is
// unique; a concurrent duplicate yields ErrConflict.
func (s *Store) InsertAgentDocument(ctx context.Context, agentID int64, docType models.DocumentType, fileURL, mediaID string) (models.AgentDocument, error) {
	d := models.AgentDocument{
		AgentID:      agentID,
		DocumentType: docType,
		FileURL:      fileURL,
		MediaID:      mediaID,
		Status:       models.DocPending,
		UploadedAt:   s.now(),
	}
	id, err := s.insert(ctx,
		`INSERT INTO agent_documents(agent_id,document_type,file_url,media_id,status,uploaded_at) VALUES(?,?,?,?,?,?)`,
		d.AgentID, d.DocumentType, d.FileURL, d.MediaID, d.Status, d.UploadedAt,
	)
	if err != nil {
		return models.AgentDocument{}, err
	}
	d.ID = id
	return d, nil
}

func (s *Store) GetAgentDocument(ctx context.Context, id int64) (models.AgentDocument, error) {
	return scanDocument(s.queryRow(ctx, `SELECT `+documentColumns+` FROM agent_documents WHERE id=?`, id))
}

func (s *Store) GetAgentDocumentByType(ctx context.Context, agentID int64, docType models.DocumentType) (models.AgentDocument, error) {
	return scanDocument(s.queryRow(ctx,
		`SELECT `+documentColumns+` FROM agent_documents WHERE agent_id=? AND document_type=?`, agentID, docType))
}

func (s *Store) ListAgentDocuments(ctx context.Context, agentID int64) ([]models.AgentDocument, error) {
	rows, err := s.query(ctx, `SELECT `+documentColumns+` FROM agent_documents WHERE agent_id=? ORDER BY uploaded_at, id`, agentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]models.AgentDocument, 0)
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *Store) DeleteAgentDocument(ctx context.Context, id int64) error {
	return s.execOne(ctx, `DELETE FROM agent_documents WHERE id=?`, id)
}

func (s *Store) ReviewAgentDocument(ctx context.Context, id int64, status models.DocumentStatus, reason *string, adminID int64) error {
	return s.execOne(ctx,
		`UPDATE agent_documents SET status=?, rejection_reason=?, verified_at=?, verified_by=? WHERE id=?`,
		status, nullString(reason), s.now(), adminID, id)
}
