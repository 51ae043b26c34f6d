package service

import (
	"fmt"

	"github.com/noah-isme/desa-layanan-api/internal/models"
	appErrors "github.com/noah-isme/desa-layanan-api/pkg/errors"
)

// GenerateNotificationContent maps a workflow status to the message shown to the requester.
func GenerateNotificationContent(status models.RequestStatus, requestType models.RequestType, proofCode string) (models.NotificationContent, error) {
	label := requestType.Label()
	switch status {
	case models.StatusSubmitted:
		return models.NotificationContent{
			Title:    "Permohonan Diterima",
			Message:  fmt.Sprintf("Permohonan %s Anda telah diterima dan akan diverifikasi oleh Kepala Dusun.", label),
			Priority: models.PriorityLow,
		}, nil
	case models.StatusPendingLocalChief:
		return models.NotificationContent{
			Title:    "Menunggu Verifikasi Kepala Dusun",
			Message:  fmt.Sprintf("Permohonan %s Anda sedang menunggu verifikasi Kepala Dusun.", label),
			Priority: models.PriorityLow,
		}, nil
	case models.StatusApprovedLocalChief:
		return models.NotificationContent{
			Title:    "Disetujui Kepala Dusun",
			Message:  fmt.Sprintf("Permohonan %s Anda telah disetujui Kepala Dusun dan menunggu persetujuan Admin Desa.", label),
			Priority: models.PriorityMedium,
		}, nil
	case models.StatusAutoApproved:
		return models.NotificationContent{
			Title:    "Diteruskan Otomatis ke Admin Desa",
			Message:  fmt.Sprintf("Permohonan %s Anda belum diverifikasi Kepala Dusun dalam batas waktu dan telah diteruskan otomatis ke Admin Desa.", label),
			Priority: models.PriorityMedium,
		}, nil
	case models.StatusApprovedAdmin:
		message := fmt.Sprintf("Permohonan %s Anda telah disetujui dan surat siap diambil di kantor desa.", label)
		if proofCode != "" {
			message = fmt.Sprintf("Permohonan %s Anda telah disetujui dan surat siap diambil di kantor desa. Tunjukkan kode bukti %s saat pengambilan.", label, proofCode)
		}
		return models.NotificationContent{
			Title:    "Surat Siap Diambil",
			Message:  message,
			Priority: models.PriorityHigh,
		}, nil
	case models.StatusRejected:
		return models.NotificationContent{
			Title:    "Permohonan Ditolak",
			Message:  fmt.Sprintf("Mohon maaf, permohonan %s Anda ditolak.", label),
			Priority: models.PriorityMedium,
		}, nil
	case models.StatusCompleted:
		return models.NotificationContent{
			Title:    "Permohonan Selesai",
			Message:  fmt.Sprintf("Permohonan %s Anda telah selesai diproses.", label),
			Priority: models.PriorityLow,
		}, nil
	default:
		return models.NotificationContent{}, appErrors.WithDetails(appErrors.ErrUnknownStatus, map[string]interface{}{"status": string(status)})
	}
}
