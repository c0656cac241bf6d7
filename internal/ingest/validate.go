package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sort"

	"github.com/trandat/shipper/internal/core/domain"
)

// ErrValidation wraps every record validation failure.
var ErrValidation = errors.New("validation error")

// schemaVersions declares the required fields per data type and schema
// version. Validation is pure per record, so reprocessing a duplicate
// work item only yields duplicate (never inconsistent) output.
var schemaVersions = map[domain.DataType]map[string][]string{
	domain.DataTypeAccountARR: {
		"v1": {"account_id", "account_name", "arr", "timestamp", "data_type", "source"},
		"v2": {"account_id", "account_name", "arr", "timestamp", "data_type", "source"},
	},
	domain.DataTypeOpportunity: {
		"v1": {"opportunity_id", "account_id", "amount", "timestamp", "data_type", "source"},
	},
	domain.DataTypeCostUsage: {
		"v1": {"account_id", "cost", "timestamp", "data_type", "source"},
	},
}

var (
	crmIDPattern       = regexp.MustCompile(`^[a-zA-Z0-9]{15,18}$`)
	costAccountPattern = regexp.MustCompile(`^\d{12}$`)
)

// latestSchemaVersion returns the highest declared version for a data
// type, or "" when the type is unknown.
func latestSchemaVersion(dt domain.DataType) string {
	versions := schemaVersions[dt]
	if len(versions) == 0 {
		return ""
	}
	keys := make([]string, 0, len(versions))
	for v := range versions {
		keys = append(keys, v)
	}
	sort.Strings(keys)
	return keys[len(keys)-1]
}

// Validate checks a record against its schema and stamps schema_version
// if absent. Type-specific value checks run after the field presence
// checks.
func Validate(record domain.Record) error {
	if _, ok := record[domain.FieldDataType]; !ok {
		return fmt.Errorf("%w: missing required field: data_type", ErrValidation)
	}
	dt := record.DataType()

	version, _ := record[domain.FieldSchemaVersion].(string)
	if version == "" {
		version = latestSchemaVersion(dt)
		if version == "" {
			slog.Warn("No schema definition for data type", "data_type", dt)
			version = "v1"
		}
	}

	if required, ok := schemaVersions[dt][version]; ok {
		for _, field := range required {
			if _, present := record[field]; !present {
				return fmt.Errorf("%w: missing required field: %s", ErrValidation, field)
			}
		}
		if _, present := record[domain.FieldSchemaVersion]; !present {
			record[domain.FieldSchemaVersion] = version
		}
	} else {
		// Unknown schema, fall back to basic presence checks.
		if _, present := record[domain.FieldTimestamp]; !present {
			return fmt.Errorf("%w: missing required field: timestamp", ErrValidation)
		}
		if _, present := record[domain.FieldSource]; !present {
			return fmt.Errorf("%w: missing required field: source", ErrValidation)
		}
	}

	switch dt {
	case domain.DataTypeAccountARR:
		return validateARR(record)
	case domain.DataTypeOpportunity:
		return validateOpportunity(record)
	case domain.DataTypeCostUsage:
		return validateCostUsage(record)
	default:
		slog.Warn("Unknown data_type", "data_type", dt)
	}
	return nil
}

func validateARR(record domain.Record) error {
	arr, ok := toFloat(record["arr"])
	if !ok {
		return fmt.Errorf("%w: arr must be a number: %v", ErrValidation, record["arr"])
	}
	if arr < 0 {
		return fmt.Errorf("%w: arr cannot be negative: %v", ErrValidation, arr)
	}
	if id, _ := record["account_id"].(string); !crmIDPattern.MatchString(id) {
		slog.Warn("Account ID may not be a valid CRM ID", "account_id", id)
	}
	return nil
}

func validateOpportunity(record domain.Record) error {
	// A missing or null amount defaults to zero.
	if v, present := record["amount"]; !present || v == nil {
		record["amount"] = 0.0
	} else {
		amount, ok := toFloat(v)
		if !ok {
			return fmt.Errorf("%w: amount must be a number: %v", ErrValidation, v)
		}
		if amount < 0 {
			return fmt.Errorf("%w: amount cannot be negative: %v", ErrValidation, amount)
		}
		record["amount"] = amount
	}
	if id, _ := record["opportunity_id"].(string); !crmIDPattern.MatchString(id) {
		slog.Warn("Opportunity ID may not be a valid CRM ID", "opportunity_id", id)
	}
	return nil
}

func validateCostUsage(record domain.Record) error {
	cost, ok := toFloat(record["cost"])
	if !ok {
		return fmt.Errorf("%w: cost must be a number: %v", ErrValidation, record["cost"])
	}
	if cost < 0 {
		// Negative costs can be valid (credits, refunds), warn only.
		slog.Warn("Negative cost value in cost-usage record", "cost", cost)
	}
	if id, _ := record["account_id"].(string); !costAccountPattern.MatchString(id) {
		slog.Warn("Account ID may not be a valid 12-digit account ID", "account_id", id)
	}
	return nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}
