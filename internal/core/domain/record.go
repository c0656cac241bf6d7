package domain

// Record is one business fact (a cost line item, a CRM account or
// opportunity row) as an opaque field map. Upstream readers create
// records; the pipeline enriches them with correlation and provenance
// fields before delivery.
type Record map[string]any

// Well-known record fields.
const (
	FieldDataType      = "data_type"
	FieldSource        = "source"
	FieldTimestamp     = "timestamp"
	FieldSchemaVersion = "schema_version"
)

// DataType identifies the business schema a record belongs to.
type DataType string

const (
	DataTypeCostUsage   DataType = "aws_cur"
	DataTypeAccountARR  DataType = "salesforce_arr"
	DataTypeOpportunity DataType = "salesforce_opportunity"
)

// DataType returns the record's data_type field, or "" if absent.
func (r Record) DataType() DataType {
	s, _ := r[FieldDataType].(string)
	return DataType(s)
}

// Source returns the record's source field, or "" if absent.
func (r Record) Source() string {
	s, _ := r[FieldSource].(string)
	return s
}
