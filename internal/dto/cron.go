package dto

import "time"

// CronAutoApproveResponse is returned by the scheduled trigger on success.
type CronAutoApproveResponse struct {
	Success           bool      `json:"success"`
	AutoApprovedCount int       `json:"autoApprovedCount"`
	FailedCount       int       `json:"failedCount"`
	Message           string    `json:"message"`
	Timestamp         time.Time `json:"timestamp"`
}

// CronErrorResponse is returned by the scheduled trigger when the sweep cannot run.
type CronErrorResponse struct {
	Success   bool      `json:"success"`
	Error     string    `json:"error"`
	Timestamp time.Time `json:"timestamp"`
}
