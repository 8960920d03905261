package pushworker

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hray3182/taskreminder/internal/models"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

// PayloadType is the only push payload type the worker renders.
const PayloadType = "task-reminder"

var ErrMalformedPushPayload = errors.New("malformed push payload")

const payloadSchemaURL = "https://taskreminder.local/schemas/push-payload.json"

const payloadSchema = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "object",
	"required": ["type", "deliveryId", "taskId"],
	"properties": {
		"type":       {"const": "task-reminder"},
		"deliveryId": {"type": "string", "minLength": 1},
		"taskId":     {"type": "string", "minLength": 1}
	}
}`

var compiledPayloadSchema = mustCompilePayloadSchema()

func mustCompilePayloadSchema() *jsonschema.Schema {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(payloadSchema))
	if err != nil {
		panic(fmt.Sprintf("push payload schema: %v", err))
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(payloadSchemaURL, doc); err != nil {
		panic(fmt.Sprintf("push payload schema: %v", err))
	}
	return c.MustCompile(payloadSchemaURL)
}

// Payload is the JSON body of a reminder push.
type Payload struct {
	Type        string `json:"type"`
	DeliveryID  string `json:"deliveryId"`
	TaskID      string `json:"taskId"`
	TaskTitle   string `json:"taskTitle,omitempty"`
	TaskDueDate string `json:"taskDueDate,omitempty"`
}

// NewPayload builds the push payload for a delivery.
func NewPayload(d *models.Delivery) Payload {
	p := Payload{
		Type:       PayloadType,
		DeliveryID: d.ID,
		TaskID:     d.TaskID,
		TaskTitle:  d.TaskTitle,
	}
	if !d.TaskDueAt.IsZero() {
		p.TaskDueDate = d.TaskDueAt.UTC().Format(time.RFC3339Nano)
	}
	return p
}

func (p Payload) Encode() ([]byte, error) {
	return json.Marshal(p)
}

// DueAt parses TaskDueDate. A missing or unparsable date reports false.
func (p Payload) DueAt() (time.Time, bool) {
	if p.TaskDueDate == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, p.TaskDueDate)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// ParsePayload validates untrusted push bytes. Every failure wraps
// ErrMalformedPushPayload.
func ParsePayload(data []byte) (*Payload, error) {
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPushPayload, err)
	}
	if err := compiledPayloadSchema.Validate(inst); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPushPayload, err)
	}

	// The schema guarantees an object with string ids. Title and due date
	// are optional: anything but a string counts as absent.
	obj := inst.(map[string]any)
	p := &Payload{
		Type:       obj["type"].(string),
		DeliveryID: obj["deliveryId"].(string),
		TaskID:     obj["taskId"].(string),
	}
	p.TaskTitle, _ = obj["taskTitle"].(string)
	p.TaskDueDate, _ = obj["taskDueDate"].(string)
	return p, nil
}
