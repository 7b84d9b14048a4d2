package server

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/p-n-ai/ssc-tutor/internal/tutor"
)

const maxBodyBytes = 64 << 10

//go:embed ask_request.schema.json
var askSchemaJSON []byte

var askSchema = mustSchema(askSchemaJSON)

func mustSchema(b []byte) *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(b))
	if err != nil {
		panic(fmt.Sprintf("ask request schema: %v", err))
	}
	return s
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}
	return body, nil
}

// decodeQuestion validates body against the ask schema and decodes it.
func decodeQuestion(body []byte) (tutor.Question, error) {
	if len(strings.TrimSpace(string(body))) == 0 {
		return tutor.Question{}, errors.New("request body is empty")
	}

	result, err := askSchema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return tutor.Question{}, fmt.Errorf("invalid JSON body: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return tutor.Question{}, errors.New(strings.Join(msgs, "; "))
	}

	var q tutor.Question
	if err := json.Unmarshal(body, &q); err != nil {
		return tutor.Question{}, fmt.Errorf("invalid JSON body: %w", err)
	}
	return q, nil
}
