package ingest

import (
	"errors"
	"testing"

	"github.com/trandat/shipper/internal/core/domain"
)

func validARR() domain.Record {
	return domain.Record{
		"account_id":   "0011234567890ABCDE",
		"account_name": "Acme Corp",
		"arr":          120000.0,
		"timestamp":    "2026-03-14T09:26:53Z",
		"data_type":    "salesforce_arr",
		"source":       "salesforce",
	}
}

func validOpportunity() domain.Record {
	return domain.Record{
		"opportunity_id": "0061234567890ABCDE",
		"account_id":     "0011234567890ABCDE",
		"amount":         50000.0,
		"timestamp":      "2026-03-14T09:26:53Z",
		"data_type":      "salesforce_opportunity",
		"source":         "salesforce",
	}
}

func validCostUsage() domain.Record {
	return domain.Record{
		"account_id": "123456789012",
		"cost":       42.5,
		"timestamp":  "2026-03-14T09:26:53Z",
		"data_type":  "aws_cur",
		"source":     "aws",
	}
}

func TestValidate_ValidRecords(t *testing.T) {
	for _, rec := range []domain.Record{validARR(), validOpportunity(), validCostUsage()} {
		if err := Validate(rec); err != nil {
			t.Errorf("%s: %v", rec.DataType(), err)
		}
	}
}

func TestValidate_StampsSchemaVersion(t *testing.T) {
	rec := validARR()
	if err := Validate(rec); err != nil {
		t.Fatal(err)
	}
	// Latest declared version for ARR is v2.
	if rec[domain.FieldSchemaVersion] != "v2" {
		t.Errorf("schema_version = %v, want v2", rec[domain.FieldSchemaVersion])
	}

	rec = validCostUsage()
	if err := Validate(rec); err != nil {
		t.Fatal(err)
	}
	if rec[domain.FieldSchemaVersion] != "v1" {
		t.Errorf("schema_version = %v, want v1", rec[domain.FieldSchemaVersion])
	}
}

func TestValidate_KeepsExplicitSchemaVersion(t *testing.T) {
	rec := validARR()
	rec[domain.FieldSchemaVersion] = "v1"
	if err := Validate(rec); err != nil {
		t.Fatal(err)
	}
	if rec[domain.FieldSchemaVersion] != "v1" {
		t.Errorf("schema_version = %v, want v1 preserved", rec[domain.FieldSchemaVersion])
	}
}

func TestValidate_MissingFields(t *testing.T) {
	tests := []struct {
		name  string
		build func() domain.Record
	}{
		{"no data_type", func() domain.Record {
			rec := validARR()
			delete(rec, "data_type")
			return rec
		}},
		{"arr without account_id", func() domain.Record {
			rec := validARR()
			delete(rec, "account_id")
			return rec
		}},
		{"arr without arr value", func() domain.Record {
			rec := validARR()
			delete(rec, "arr")
			return rec
		}},
		{"opportunity without timestamp", func() domain.Record {
			rec := validOpportunity()
			delete(rec, "timestamp")
			return rec
		}},
		{"cost usage without cost", func() domain.Record {
			rec := validCostUsage()
			delete(rec, "cost")
			return rec
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.build())
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !errors.Is(err, ErrValidation) {
				t.Errorf("error %v is not ErrValidation", err)
			}
		})
	}
}

func TestValidate_NegativeARRRejected(t *testing.T) {
	rec := validARR()
	rec["arr"] = -5.0
	if err := Validate(rec); !errors.Is(err, ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestValidate_NonNumericValues(t *testing.T) {
	rec := validARR()
	rec["arr"] = "a lot"
	if err := Validate(rec); !errors.Is(err, ErrValidation) {
		t.Errorf("arr: expected validation error, got %v", err)
	}

	rec = validCostUsage()
	rec["cost"] = "expensive"
	if err := Validate(rec); !errors.Is(err, ErrValidation) {
		t.Errorf("cost: expected validation error, got %v", err)
	}
}

func TestValidate_OpportunityAmountDefaultsToZero(t *testing.T) {
	rec := validOpportunity()
	rec["amount"] = nil
	if err := Validate(rec); err != nil {
		t.Fatal(err)
	}
	if rec["amount"] != 0.0 {
		t.Errorf("amount = %v, want 0.0", rec["amount"])
	}
}

func TestValidate_NegativeOpportunityAmountRejected(t *testing.T) {
	rec := validOpportunity()
	rec["amount"] = -100.0
	if err := Validate(rec); !errors.Is(err, ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

// Credits and refunds show up as negative cost lines; they pass.
func TestValidate_NegativeCostAllowed(t *testing.T) {
	rec := validCostUsage()
	rec["cost"] = -12.0
	if err := Validate(rec); err != nil {
		t.Errorf("negative cost must validate, got %v", err)
	}
}

func TestValidate_IntegerAmountsAccepted(t *testing.T) {
	rec := validARR()
	rec["arr"] = 120000
	if err := Validate(rec); err != nil {
		t.Errorf("integer arr must validate, got %v", err)
	}
}

func TestValidate_UnknownDataTypeBasicChecks(t *testing.T) {
	rec := domain.Record{
		"data_type": "gcp_billing",
		"timestamp": "2026-03-14T09:26:53Z",
		"source":    "gcp",
	}
	if err := Validate(rec); err != nil {
		t.Errorf("unknown type with timestamp and source must pass, got %v", err)
	}

	delete(rec, "source")
	if err := Validate(rec); !errors.Is(err, ErrValidation) {
		t.Errorf("expected validation error for missing source, got %v", err)
	}
}
