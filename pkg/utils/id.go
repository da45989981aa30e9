package utils

import (
	"strconv"
	"time"

	"github.com/google/uuid"
)

// GenerateMessageID generates a unique chat message ID
func GenerateMessageID() string {
	return uuid.NewString()
}

// GenerateItemID generates a unique meta content item ID
func GenerateItemID() string {
	return GenerateID("item")
}

// GenerateRequestID generates a unique request ID
func GenerateRequestID() string {
	return "req_" + uuid.NewString()
}

// GenerateReportID returns a report ID derived from t in unix milliseconds
func GenerateReportID(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}
