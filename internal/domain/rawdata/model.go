package rawdata

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

const EntityResultsPage = "results_page"

// Payload is a fetched source document kept for auditing parse failures.
type Payload struct {
	Source      string
	EntityType  string
	EntityKey   string
	ContentType string
	Body        []byte
	PayloadHash string
	FetchedAt   time.Time
}

// Hash is the content reference used in audit records and error reports.
func Hash(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

// Ref renders the short reference form source:hash[:12].
func Ref(source string, body []byte) string {
	if len(body) == 0 {
		return ""
	}
	return source + ":" + Hash(body)[:12]
}
