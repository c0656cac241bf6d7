package ingest

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/trandat/shipper/internal/core/domain"
)

// Enricher stamps records with correlation and provenance fields so the
// telemetry backend can join cost and CRM data on a common key.
type Enricher struct {
	Environment     string
	PipelineVersion string
	DataOwner       string
}

// Enrichment field names.
const (
	fieldCorrelationID   = "obs_correlation_id"
	fieldIngestTimestamp = "obs_ingest_timestamp"
	fieldDataVersion     = "obs_data_version"
	fieldPipelineContext = "obs_pipeline_context"
)

// Enrich adds correlation tags to records in place and returns the same
// slice. The correlation id is a stable hash of the account id, the
// data version hashes timestamp+source for freshness comparison.
func (e *Enricher) Enrich(records []domain.Record) []domain.Record {
	now := time.Now().Format(time.RFC3339Nano)
	for _, record := range records {
		if accountID, ok := record["account_id"].(string); ok && accountID != "" {
			sum := sha256.Sum256([]byte(accountID))
			record[fieldCorrelationID] = hex.EncodeToString(sum[:])
		}

		record[fieldIngestTimestamp] = now

		ts, _ := record[domain.FieldTimestamp].(string)
		versionSum := md5.Sum([]byte(fmt.Sprintf("%s-%s", ts, record.Source())))
		record[fieldDataVersion] = hex.EncodeToString(versionSum[:])

		record[fieldPipelineContext] = map[string]string{
			"environment":             e.Environment,
			"ingest_pipeline_version": e.PipelineVersion,
			"data_owner":              e.DataOwner,
		}
	}
	return records
}
