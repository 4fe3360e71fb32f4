package ingest

import (
	"encoding/json"
	"time"
)

// Batch is the event delivered by the stream trigger: one or more records in
// stream order.
type Batch struct {
	Records []Record `json:"Records"`
}

// Record is a single stream record and its delivery metadata.
type Record struct {
	AWSRegion      string      `json:"awsRegion"`
	EventID        string      `json:"eventID"`
	EventName      string      `json:"eventName"`
	EventSource    string      `json:"eventSource"`
	EventSourceARN string      `json:"eventSourceARN"`
	EventVersion   string      `json:"eventVersion"`
	Kinesis        KinesisData `json:"kinesis"`
}

// KinesisData holds the payload of a record. Data is kept base64 encoded as
// it arrives; Handle does the decoding so that a bad payload fails the record
// that carries it rather than the whole event.
type KinesisData struct {
	Data                        string    `json:"data"`
	PartitionKey                string    `json:"partitionKey"`
	SequenceNumber              string    `json:"sequenceNumber"`
	ApproximateArrivalTimestamp EpochTime `json:"approximateArrivalTimestamp"`
	KinesisSchemaVersion        string    `json:"kinesisSchemaVersion"`
	EncryptionType              string    `json:"encryptionType,omitempty"`
}

// Response is returned to the trigger after every record of a batch has been
// stored.
type Response struct {
	StatusCode int    `json:"statusCode"`
	Body       string `json:"body"`
}

// successBody is the JSON string literal returned in Response.Body.
const successBody = `"Successfully processed records"`

// EpochTime is a time which is encoded in JSON as fractional seconds since
// the Unix epoch.
type EpochTime struct {
	time.Time
}

// UnmarshalJSON implements json.Unmarshaler.
func (e *EpochTime) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	var secs float64
	if err := json.Unmarshal(b, &secs); err != nil {
		return err
	}
	sec := int64(secs)
	nsec := int64((secs - float64(sec)) * 1e9)
	e.Time = time.Unix(sec, nsec).UTC()
	return nil
}

// MarshalJSON implements json.Marshaler.
func (e EpochTime) MarshalJSON() ([]byte, error) {
	if e.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(float64(e.UnixNano()) / 1e9)
}
