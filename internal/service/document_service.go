package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/desa-layanan-api/internal/models"
	"github.com/noah-isme/desa-layanan-api/internal/repository"
	appErrors "github.com/noah-isme/desa-layanan-api/pkg/errors"
	"github.com/noah-isme/desa-layanan-api/pkg/export"
	"github.com/noah-isme/desa-layanan-api/pkg/storage"
)

const letterTokenPurpose = "letter"

type documentStore interface {
	GetByID(ctx context.Context, id string) (*models.ServiceRequest, error)
	List(ctx context.Context, filter models.ServiceRequestFilter) ([]models.ServiceRequest, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type letterRenderer interface {
	Render(data export.LetterData) ([]byte, error)
}

// DocumentConfig carries the letterhead and link settings.
type DocumentConfig struct {
	APIPrefix       string
	VillageName     string
	DistrictName    string
	RegencyName     string
	VillageHeadName string
}

// LetterFile is a rendered letter ready for download.
type LetterFile struct {
	Filename string
	Content  []byte
}

// DocumentService renders printable letters and CSV exports for service requests.
type DocumentService struct {
	store   documentStore
	csv     csvRenderer
	letters letterRenderer
	signer  *storage.SignedURLSigner
	logger  *zap.Logger
	cfg     DocumentConfig
}

// NewDocumentService constructs a DocumentService. Nil renderers fall back to the defaults.
func NewDocumentService(store documentStore, signer *storage.SignedURLSigner, cfg DocumentConfig, logger *zap.Logger, csv csvRenderer, letters letterRenderer) *DocumentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter(true)
	}
	if letters == nil {
		letters = export.NewLetterRenderer()
	}
	return &DocumentService{store: store, csv: csv, letters: letters, signer: signer, logger: logger, cfg: cfg}
}

var exportHeaders = []string{
	"id", "requestType", "status", "fullName", "nik", "subdistrict", "purpose",
	"referenceNumberFromLocalChief", "approvalProofCode", "createdAt", "updatedAt",
}

// ExportCSV renders the staff listing, optionally filtered by type, newest first.
func (s *DocumentService) ExportCSV(ctx context.Context, actor models.Actor, requestType models.RequestType) ([]byte, error) {
	if err := authorize(OpExport, actor); err != nil {
		return nil, err
	}
	if requestType != "" && !requestType.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown request type")
	}
	items, err := listNewestFirst(ctx, s.logger, "export", func(ctx context.Context, unordered bool) ([]models.ServiceRequest, error) {
		return s.store.List(ctx, models.ServiceRequestFilter{Type: requestType, Unordered: unordered})
	}, serviceRequestKey)
	if err != nil {
		return nil, appErrors.StoreUnavailable(err, "failed to load service requests for export")
	}

	rows := make([]map[string]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, map[string]string{
			"id":                            item.ID,
			"requestType":                   string(item.RequestType),
			"status":                        string(item.Status),
			"fullName":                      item.FullName,
			"nik":                           item.NIK,
			"subdistrict":                   item.Subdistrict,
			"purpose":                       item.Purpose,
			"referenceNumberFromLocalChief": deref(item.ReferenceNumberFromLocalChief),
			"approvalProofCode":             deref(item.ApprovalProofCode),
			"createdAt":                     item.CreatedAt.UTC().Format(time.RFC3339),
			"updatedAt":                     item.UpdatedAt.UTC().Format(time.RFC3339),
		})
	}
	data, err := s.csv.Render(export.Dataset{Headers: exportHeaders, Rows: rows})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
	}
	return data, nil
}

// RenderLetter renders the PDF for an approved request the actor may read.
func (s *DocumentService) RenderLetter(ctx context.Context, actor models.Actor, id string) (*LetterFile, error) {
	if actor.UserID == "" {
		return nil, appErrors.ErrUnauthorized
	}
	req, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !Allowed(OpExport, actor.Role) && req.UserID != actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "service request belongs to another user")
	}
	return s.render(req)
}

// CreateLetterLink issues a signed download link for the letter.
func (s *DocumentService) CreateLetterLink(ctx context.Context, actor models.Actor, id string) (*models.LetterLink, error) {
	if s.signer == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "letter links are not configured")
	}
	if actor.UserID == "" {
		return nil, appErrors.ErrUnauthorized
	}
	req, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !Allowed(OpExport, actor.Role) && req.UserID != actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "service request belongs to another user")
	}
	if err := letterReady(req); err != nil {
		return nil, err
	}
	token, expiresAt, err := s.signer.Generate(req.ID, letterTokenPurpose)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign letter link")
	}
	link := fmt.Sprintf("%s/letters/download?token=%s", strings.TrimRight(s.cfg.APIPrefix, "/"), url.QueryEscape(token))
	return &models.LetterLink{URL: link, Token: token, ExpiresAt: expiresAt}, nil
}

// RenderLetterFromToken renders the letter addressed by a signed link.
func (s *DocumentService) RenderLetterFromToken(ctx context.Context, token string) (*LetterFile, error) {
	if s.signer == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "letter links are not configured")
	}
	id, purpose, _, err := s.signer.Parse(token)
	if err != nil {
		if errors.Is(err, storage.ErrTokenExpired) {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "letter link expired")
		}
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid letter link")
	}
	if purpose != letterTokenPurpose {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid letter link")
	}
	req, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.render(req)
}

func (s *DocumentService) render(req *models.ServiceRequest) (*LetterFile, error) {
	if err := letterReady(req); err != nil {
		return nil, err
	}
	issuedAt := req.UpdatedAt
	if req.AdminApprovedAt != nil {
		issuedAt = *req.AdminApprovedAt
	}
	content, err := s.letters.Render(export.LetterData{
		VillageName:      s.cfg.VillageName,
		DistrictName:     s.cfg.DistrictName,
		RegencyName:      s.cfg.RegencyName,
		LetterTitle:      req.RequestType.Label(),
		DocumentNumber:   documentNumber(req),
		FullName:         req.FullName,
		NIK:              req.NIK,
		FamilyCardNumber: req.FamilyCardNumber,
		BirthPlace:       req.BirthPlace,
		BirthDate:        req.BirthDate,
		Gender:           req.Gender,
		Religion:         req.Religion,
		Occupation:       req.Occupation,
		MaritalStatus:    req.MaritalStatus,
		Address:          req.Address,
		Subdistrict:      req.Subdistrict,
		Purpose:          req.Purpose,
		ProofCode:        deref(req.ApprovalProofCode),
		IssuedAt:         issuedAt,
		SignerName:       s.cfg.VillageHeadName,
		SignerTitle:      "Kepala " + s.cfg.VillageName,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render letter")
	}
	s.logger.Info("letter rendered", zap.String("request_id", req.ID), zap.Int("bytes", len(content)))
	return &LetterFile{Filename: fmt.Sprintf("%s-%s.pdf", req.RequestType, req.ID), Content: content}, nil
}

func (s *DocumentService) load(ctx context.Context, id string) (*models.ServiceRequest, error) {
	req, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "service request not found")
		}
		return nil, appErrors.StoreUnavailable(err, "failed to load service request")
	}
	return req, nil
}

func letterReady(req *models.ServiceRequest) error {
	if req.Status == models.StatusApprovedAdmin || req.Status == models.StatusCompleted {
		return nil
	}
	return appErrors.WithDetails(appErrors.Clone(appErrors.ErrConflict, "letter is not available before admin approval"), map[string]interface{}{
		"currentStatus": string(req.Status),
	})
}

// documentNumber prefers the admin number and falls back to the dusun reference.
func documentNumber(req *models.ServiceRequest) string {
	if v := deref(req.ReferenceNumberFromAdmin); v != "" {
		return v
	}
	return deref(req.ReferenceNumberFromLocalChief)
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
