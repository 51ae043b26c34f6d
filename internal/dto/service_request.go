package dto

import (
	"strings"
	"time"

	"github.com/noah-isme/desa-layanan-api/internal/models"
)

// SubmitServiceRequest is the payload for creating a service request.
type SubmitServiceRequest struct {
	RequestType      models.RequestType `json:"requestType" validate:"required,request_type"`
	FullName         string             `json:"fullName" validate:"required,max=150"`
	NIK              string             `json:"nik" validate:"required,len=16,numeric"`
	FamilyCardNumber string             `json:"familyCardNumber" validate:"required,len=16,numeric"`
	Address          string             `json:"address" validate:"required,max=255"`
	Subdistrict      string             `json:"subdistrict" validate:"required,max=100"`
	BirthPlace       string             `json:"birthPlace" validate:"required,max=100"`
	BirthDate        string             `json:"birthDate" validate:"required,datetime=2006-01-02"`
	Gender           string             `json:"gender" validate:"required,oneof=laki-laki perempuan"`
	Religion         string             `json:"religion" validate:"required,max=50"`
	Occupation       string             `json:"occupation" validate:"required,max=100"`
	MaritalStatus    string             `json:"maritalStatus" validate:"required,max=50"`
	PhoneNumber      string             `json:"phoneNumber" validate:"omitempty,min=8,max=20,numeric"`
	Purpose          string             `json:"purpose" validate:"required,max=500"`
}

// Normalize trims whitespace from free-text fields.
func (r *SubmitServiceRequest) Normalize() {
	r.RequestType = models.RequestType(strings.TrimSpace(string(r.RequestType)))
	for _, field := range []*string{
		&r.FullName, &r.NIK, &r.FamilyCardNumber, &r.Address, &r.Subdistrict, &r.BirthPlace,
		&r.BirthDate, &r.Religion, &r.Occupation, &r.MaritalStatus, &r.PhoneNumber, &r.Purpose,
	} {
		*field = strings.TrimSpace(*field)
	}
	r.Gender = strings.ToLower(strings.TrimSpace(r.Gender))
}

// Applicant maps the payload onto the stored applicant record.
func (r SubmitServiceRequest) Applicant() models.Applicant {
	return models.Applicant{
		FullName:         r.FullName,
		NIK:              r.NIK,
		FamilyCardNumber: r.FamilyCardNumber,
		Address:          r.Address,
		Subdistrict:      r.Subdistrict,
		BirthPlace:       r.BirthPlace,
		BirthDate:        r.BirthDate,
		Gender:           r.Gender,
		Religion:         r.Religion,
		Occupation:       r.Occupation,
		MaritalStatus:    r.MaritalStatus,
		PhoneNumber:      r.PhoneNumber,
	}
}

// ApproveByLocalChiefRequest carries the dusun head's decision.
type ApproveByLocalChiefRequest struct {
	Note            string `json:"note" validate:"max=1000"`
	ReferenceNumber string `json:"referenceNumber" validate:"required,max=100"`
}

// ApproveByAdminRequest carries the admin's decision.
type ApproveByAdminRequest struct {
	Note            string `json:"note" validate:"max=1000"`
	ReferenceNumber string `json:"referenceNumber" validate:"max=100"`
}

// RejectServiceRequest carries the rejection reason.
type RejectServiceRequest struct {
	Reason string `json:"reason" validate:"required,max=1000"`
}

// VillageHeadNoteRequest carries the kepala desa annotation.
type VillageHeadNoteRequest struct {
	Note string `json:"note" validate:"required,max=1000"`
}

// ServiceRequestListQuery filters admin listings.
type ServiceRequestListQuery struct {
	Type models.RequestType `form:"type"`
}

// LetterLinkResponse wraps the signed letter link.
type LetterLinkResponse struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}
