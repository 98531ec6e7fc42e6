package http

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Response schemas of the purchase service. Responses are validated before
// they are decoded so a malformed quote never reaches the amount selection.
var (
	quoteSchema = gojsonschema.NewStringLoader(`{
		"type": "object",
		"required": ["satoshisPerUSD", "minimumSatoshis", "maximumSatoshis", "quoteId"],
		"properties": {
			"satoshisPerUSD":  {"type": "number", "minimum": 0},
			"minimumSatoshis": {"type": "integer", "minimum": 0},
			"maximumSatoshis": {"type": "integer", "minimum": 0},
			"quoteId":         {"type": "string", "minLength": 1},
			"quoteValidUntil": {"type": "string"},
			"pendingTxs":      {"type": ["array", "null"], "items": {"type": "string"}}
		}
	}`)

	purchaseSchema = gojsonschema.NewStringLoader(`{
		"type": "object",
		"required": ["reference", "clientSecret"],
		"properties": {
			"reference":    {"type": "string", "minLength": 1},
			"clientSecret": {"type": "string", "minLength": 1}
		}
	}`)

	completionSchema = gojsonschema.NewStringLoader(`{
		"type": "object",
		"required": ["status"],
		"properties": {
			"status":   {"type": "string"},
			"satoshis": {"type": "integer", "minimum": 0}
		}
	}`)

	// walletErrorSchema matches the error body a wallet substrate returns
	walletErrorSchema = gojsonschema.NewStringLoader(`{
		"type": "object",
		"required": ["code"],
		"properties": {
			"code":    {"type": "string", "minLength": 1},
			"message": {"type": "string"},
			"moreSatoshisNeeded":  {"type": "integer", "minimum": 0},
			"totalSatoshisNeeded": {"type": "integer", "minimum": 0}
		}
	}`)
)

// ValidationError lists the schema violations of a response
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return "invalid response: " + strings.Join(e.Errors, "; ")
}

// validateResponse checks body against schema
func validateResponse(schema gojsonschema.JSONLoader, body []byte) error {
	result, err := gojsonschema.Validate(schema, gojsonschema.NewBytesLoader(body))
	if err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	if result.Valid() {
		return nil
	}

	var errs []string
	for _, desc := range result.Errors() {
		errs = append(errs, fmt.Sprintf("%s: %s", desc.Context().String(), desc.Description()))
	}
	return &ValidationError{Errors: errs}
}
