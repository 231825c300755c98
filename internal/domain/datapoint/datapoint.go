// Package datapoint contains the schema-tagged unit of output: a header
// carrying identity and acquisition provenance, paired with a measure body.
package datapoint

import (
	"encoding/json"
	"time"
)

// SchemaID identifies the schema a measure conforms to.
type SchemaID struct {
	Namespace string `json:"namespace"`
	Name      string `json:"name"`
	Version   string `json:"version"`
}

// String renders the identifier as namespace:name:version.
func (s SchemaID) String() string {
	return s.Namespace + ":" + s.Name + ":" + s.Version
}

// Modality tags how a data point was acquired.
type Modality string

// Known modalities.
const (
	ModalitySensed       Modality = "sensed"
	ModalitySelfReported Modality = "self-reported"
)

// Measure is the domain payload of a data point.
type Measure interface {
	SchemaID() SchemaID
}

// AcquisitionProvenance describes how and when a data point was notionally acquired.
type AcquisitionProvenance struct {
	SourceName             string    `json:"source_name"`
	Modality               Modality  `json:"modality,omitempty"`
	SourceCreationDateTime time.Time `json:"source_creation_date_time"`
}

// NewAcquisitionProvenance builds a provenance record.
func NewAcquisitionProvenance(sourceName string, modality Modality, sourceCreationDateTime time.Time) AcquisitionProvenance {
	return AcquisitionProvenance{
		SourceName:             sourceName,
		Modality:               modality,
		SourceCreationDateTime: sourceCreationDateTime,
	}
}

// Header carries the identity and metadata of a data point.
type Header struct {
	ID                    string                `json:"id"`
	CreationDateTime      time.Time             `json:"creation_date_time"`
	SchemaID              SchemaID              `json:"schema_id"`
	AcquisitionProvenance AcquisitionProvenance `json:"acquisition_provenance"`
	UserID                string                `json:"user_id"`
}

// NewHeader builds a header.
func NewHeader(id string, schemaID SchemaID, creationDateTime time.Time, provenance AcquisitionProvenance, userID string) Header {
	return Header{
		ID:                    id,
		CreationDateTime:      creationDateTime,
		SchemaID:              schemaID,
		AcquisitionProvenance: provenance,
		UserID:                userID,
	}
}

// DataPoint pairs a header with a measure. It is immutable once built.
type DataPoint struct {
	header Header
	body   Measure
}

// New pairs header and body.
func New(header Header, body Measure) DataPoint {
	return DataPoint{header: header, body: body}
}

// Header returns a copy of the header.
func (d DataPoint) Header() Header { return d.header }

// Body returns the measure.
func (d DataPoint) Body() Measure { return d.body }

// MarshalJSON encodes the data point as {"header": ..., "body": ...}.
func (d DataPoint) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Header Header  `json:"header"`
		Body   Measure `json:"body"`
	}{d.header, d.body})
}
