package models

import (
	"time"

	"github.com/lib/pq"
)

// RequestType enumerates the letter kinds a citizen can request.
type RequestType string

const (
	RequestTypeGoodConduct   RequestType = "surat_kelakuan_baik"
	RequestTypeDomicile      RequestType = "surat_domisili"
	RequestTypeLowIncome     RequestType = "surat_tidak_mampu"
	RequestTypeBusiness      RequestType = "surat_usaha"
	RequestTypeIDCardCover   RequestType = "surat_pengantar_ktp"
	RequestTypeBirth         RequestType = "surat_kelahiran"
	RequestTypeDeath         RequestType = "surat_kematian"
	RequestTypeRelocation    RequestType = "surat_pindah"
	RequestTypeMarriageCover RequestType = "surat_pengantar_nikah"
)

var requestTypeLabels = map[RequestType]string{
	RequestTypeGoodConduct:   "Surat Keterangan Kelakuan Baik",
	RequestTypeDomicile:      "Surat Keterangan Domisili",
	RequestTypeLowIncome:     "Surat Keterangan Tidak Mampu",
	RequestTypeBusiness:      "Surat Keterangan Usaha",
	RequestTypeIDCardCover:   "Surat Pengantar KTP",
	RequestTypeBirth:         "Surat Keterangan Kelahiran",
	RequestTypeDeath:         "Surat Keterangan Kematian",
	RequestTypeRelocation:    "Surat Keterangan Pindah",
	RequestTypeMarriageCover: "Surat Pengantar Nikah",
}

// RequestTypes returns every supported request type in display order.
func RequestTypes() []RequestType {
	return []RequestType{
		RequestTypeGoodConduct,
		RequestTypeDomicile,
		RequestTypeLowIncome,
		RequestTypeBusiness,
		RequestTypeIDCardCover,
		RequestTypeBirth,
		RequestTypeDeath,
		RequestTypeRelocation,
		RequestTypeMarriageCover,
	}
}

// Valid reports whether t is a known request type.
func (t RequestType) Valid() bool {
	_, ok := requestTypeLabels[t]
	return ok
}

// Label returns the human readable letter name.
func (t RequestType) Label() string {
	if label, ok := requestTypeLabels[t]; ok {
		return label
	}
	return string(t)
}

// RequestStatus captures workflow states for service requests.
type RequestStatus string

const (
	StatusPendingLocalChief  RequestStatus = "pending_local_chief"
	StatusApprovedLocalChief RequestStatus = "approved_local_chief"
	StatusApprovedAdmin      RequestStatus = "approved_admin"
	StatusCompleted          RequestStatus = "completed"
	StatusRejected           RequestStatus = "rejected"
	StatusAutoApproved       RequestStatus = "auto_approved"

	// StatusSubmitted is never stored. It labels the notification emitted on creation.
	StatusSubmitted RequestStatus = "submitted"
)

// RequestStatuses lists every stored status.
func RequestStatuses() []RequestStatus {
	return []RequestStatus{
		StatusPendingLocalChief,
		StatusApprovedLocalChief,
		StatusApprovedAdmin,
		StatusCompleted,
		StatusRejected,
		StatusAutoApproved,
	}
}

// Valid reports whether s is a stored status.
func (s RequestStatus) Valid() bool {
	for _, candidate := range RequestStatuses() {
		if candidate == s {
			return true
		}
	}
	return false
}

// Terminal reports whether no transition may leave s.
func (s RequestStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusRejected
}

// Applicant holds the civil registry data copied onto a request at submission.
type Applicant struct {
	FullName         string `db:"full_name" json:"fullName" bson:"fullName"`
	NIK              string `db:"nik" json:"nik" bson:"nik"`
	FamilyCardNumber string `db:"family_card_number" json:"familyCardNumber" bson:"familyCardNumber"`
	Address          string `db:"address" json:"address" bson:"address"`
	Subdistrict      string `db:"subdistrict" json:"subdistrict" bson:"subdistrict"`
	BirthPlace       string `db:"birth_place" json:"birthPlace" bson:"birthPlace"`
	BirthDate        string `db:"birth_date" json:"birthDate" bson:"birthDate"`
	Gender           string `db:"gender" json:"gender" bson:"gender"`
	Religion         string `db:"religion" json:"religion" bson:"religion"`
	Occupation       string `db:"occupation" json:"occupation" bson:"occupation"`
	MaritalStatus    string `db:"marital_status" json:"maritalStatus" bson:"maritalStatus"`
	PhoneNumber      string `db:"phone_number" json:"phoneNumber" bson:"phoneNumber"`
}

// ServiceRequest is a citizen's application for a village letter.
type ServiceRequest struct {
	ID          string        `db:"id" json:"id" bson:"_id"`
	RequestType RequestType   `db:"request_type" json:"requestType" bson:"requestType"`
	Applicant   `bson:"applicant"`
	Purpose     string        `db:"purpose" json:"purpose" bson:"purpose"`
	UserID      string        `db:"user_id" json:"userId" bson:"userId"`
	Status      RequestStatus `db:"status" json:"status" bson:"status"`

	NoteByLocalChief              *string    `db:"note_by_local_chief" json:"noteByLocalChief,omitempty" bson:"noteByLocalChief,omitempty"`
	ReferenceNumberFromLocalChief *string    `db:"reference_number_from_local_chief" json:"referenceNumberFromLocalChief,omitempty" bson:"referenceNumberFromLocalChief,omitempty"`
	ApprovedByLocalChief          bool       `db:"approved_by_local_chief" json:"approvedByLocalChief" bson:"approvedByLocalChief"`
	LocalChiefApprovedBy          *string    `db:"local_chief_approved_by" json:"localChiefApprovedBy,omitempty" bson:"localChiefApprovedBy,omitempty"`
	LocalChiefApprovedAt          *time.Time `db:"local_chief_approved_at" json:"localChiefApprovedAt,omitempty" bson:"localChiefApprovedAt,omitempty"`

	NoteByAdmin              *string    `db:"note_by_admin" json:"noteByAdmin,omitempty" bson:"noteByAdmin,omitempty"`
	ReferenceNumberFromAdmin *string    `db:"reference_number_from_admin" json:"referenceNumberFromAdmin,omitempty" bson:"referenceNumberFromAdmin,omitempty"`
	ApprovedByAdmin          bool       `db:"approved_by_admin" json:"approvedByAdmin" bson:"approvedByAdmin"`
	AdminApprovedBy          *string    `db:"admin_approved_by" json:"adminApprovedBy,omitempty" bson:"adminApprovedBy,omitempty"`
	AdminApprovedAt          *time.Time `db:"admin_approved_at" json:"adminApprovedAt,omitempty" bson:"adminApprovedAt,omitempty"`
	ApprovalProofCode        *string    `db:"approval_proof_code" json:"approvalProofCode,omitempty" bson:"approvalProofCode,omitempty"`
	EstimatedCompletionAt    *time.Time `db:"estimated_completion_at" json:"estimatedCompletionAt,omitempty" bson:"estimatedCompletionAt,omitempty"`

	AutoApproved   bool       `db:"auto_approved" json:"autoApproved" bson:"autoApproved"`
	AutoApprovedAt *time.Time `db:"auto_approved_at" json:"autoApprovedAt,omitempty" bson:"autoApprovedAt,omitempty"`

	NoteByVillageHead *string `db:"note_by_village_head" json:"noteByVillageHead,omitempty" bson:"noteByVillageHead,omitempty"`

	RejectionReason *string    `db:"rejection_reason" json:"rejectionReason,omitempty" bson:"rejectionReason,omitempty"`
	RejectedBy      *string    `db:"rejected_by" json:"rejectedBy,omitempty" bson:"rejectedBy,omitempty"`
	RejectedAt      *time.Time `db:"rejected_at" json:"rejectedAt,omitempty" bson:"rejectedAt,omitempty"`

	CompletedAt *time.Time `db:"completed_at" json:"completedAt,omitempty" bson:"completedAt,omitempty"`

	SavedByUserIDs pq.StringArray `db:"saved_by_user_ids" json:"savedByUserIds" bson:"savedByUserIds"`
	CreatedAt      time.Time      `db:"created_at" json:"createdAt" bson:"createdAt"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updatedAt" bson:"updatedAt"`
}

// SavedBy reports whether userID bookmarked the request.
func (r *ServiceRequest) SavedBy(userID string) bool {
	for _, id := range r.SavedByUserIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// ServiceRequestFilter constrains listing queries. All fields are equality filters combined with AND.
type ServiceRequestFilter struct {
	Type          RequestType
	UserID        string
	SavedBy       string
	Status        RequestStatus
	CreatedBefore *time.Time
	// Unordered skips the createdAt ordering so stores without a matching index can still answer.
	Unordered bool
}

// UpdateServiceRequestStatusParams describes a compare-and-set status transition.
// Nil pointers leave the stored column untouched.
type UpdateServiceRequestStatusParams struct {
	ID           string
	FromStatuses []RequestStatus
	ToStatus     RequestStatus
	UpdatedAt    time.Time

	NoteByLocalChief              *string
	ReferenceNumberFromLocalChief *string
	LocalChiefApprovedBy          *string
	LocalChiefApprovedAt          *time.Time

	NoteByAdmin              *string
	ReferenceNumberFromAdmin *string
	AdminApprovedBy          *string
	AdminApprovedAt          *time.Time
	ApprovalProofCode        *string
	EstimatedCompletionAt    *time.Time

	AutoApprovedAt *time.Time

	RejectionReason *string
	RejectedBy      *string
	RejectedAt      *time.Time

	CompletedAt *time.Time
}

// ServiceRequestStats aggregates request counts.
type ServiceRequestStats struct {
	Total       int                   `json:"total"`
	ByStatus    map[RequestStatus]int `json:"byStatus"`
	ByType      map[RequestType]int   `json:"byType"`
	GeneratedAt time.Time             `json:"generatedAt"`
}

// NewServiceRequestStats returns stats with every known status and type zeroed.
func NewServiceRequestStats() ServiceRequestStats {
	stats := ServiceRequestStats{
		ByStatus: make(map[RequestStatus]int, len(RequestStatuses())),
		ByType:   make(map[RequestType]int, len(RequestTypes())),
	}
	for _, status := range RequestStatuses() {
		stats.ByStatus[status] = 0
	}
	for _, t := range RequestTypes() {
		stats.ByType[t] = 0
	}
	return stats
}
