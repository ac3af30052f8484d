package models

import (
	"crypto/sha1"
	"encoding/hex"
	"strings"
)

// ComputeAttemptKey derives the lineage key for a learner, course and module.
func ComputeAttemptKey(learnerID, courseID string, ref ModuleRef) string {
	return strings.Join([]string{learnerID, courseID, ref.String()}, ":")
}

// ComputeAttemptID derives the public attempt handle from a lineage key.
func ComputeAttemptID(attemptKey string) string {
	sum := sha1.Sum([]byte(attemptKey))
	return hex.EncodeToString(sum[:])
}
