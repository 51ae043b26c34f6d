package repository

import (
	"errors"

	"github.com/lib/pq"
	"go.mongodb.org/mongo-driver/mongo"
)

var (
	// ErrNotFound is returned when no record matches the identifier.
	ErrNotFound = errors.New("record not found")
	// ErrStatusConflict is returned when a compare-and-set update matched no row in an allowed status.
	ErrStatusConflict = errors.New("record status changed concurrently")
	// ErrOrderedQueryUnavailable is returned when the store cannot serve a sorted listing.
	// Callers retry with an unordered filter and sort in memory.
	ErrOrderedQueryUnavailable = errors.New("ordered query unavailable")
)

// Postgres SQLSTATE values that indicate the sort could not be executed.
const (
	pqClassInsufficientResources = "53"
	pqQueryCanceled              = "57014"
)

// Mongo server codes raised when a sort has no supporting index and exceeds memory limits.
var mongoSortFailureCodes = []int{96, 292}

func isOrderedQueryFailure(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code.Class() == pqClassInsufficientResources || pqErr.Code == pqQueryCanceled
	}
	var serverErr mongo.ServerError
	if errors.As(err, &serverErr) {
		for _, code := range mongoSortFailureCodes {
			if serverErr.HasErrorCode(code) {
				return true
			}
		}
	}
	return false
}
