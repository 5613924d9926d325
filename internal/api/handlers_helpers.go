// synapsesuggestor - Synapse detection bookkeeping for CATMAID
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/clbarnes/CATMAID-synapsesuggestor

package api

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/clbarnes/CATMAID-synapsesuggestor/internal/validation"
)

// decodeAndValidate reads a JSON body into dst and checks its validate tags.
// A body over the router's size cap surfaces as *http.MaxBytesError.
func decodeAndValidate(r *http.Request, dst interface{}) error {
	if r.Body == nil || r.Body == http.NoBody {
		return ErrEmptyBody
	}
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return ErrEmptyBody
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return invalidParam("body", "json", "request body is not valid JSON: "+err.Error())
	}
	return validated(dst)
}

func validated(v interface{}) error {
	if verr := validation.ValidateStruct(v); verr != nil {
		return verr
	}
	return nil
}

func invalidParam(field, tag, msg string) *validation.RequestValidationError {
	return &validation.RequestValidationError{Fields: []validation.FieldError{{
		Field: field, Tag: tag, Message: msg,
	}}}
}

// projectID reads the {project_id} path parameter.
func projectID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "project_id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, invalidParam("project_id", "gt", fmt.Sprintf("project_id must be a positive integer, got %q", raw))
	}
	return id, nil
}

// queryInt64 parses an optional integer query parameter.
func queryInt64(r *http.Request, name string) (*int64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, invalidParam(name, "int", fmt.Sprintf("%s must be an integer, got %q", name, raw))
	}
	return &v, nil
}

// queryInt parses an optional int parameter, returning def when absent.
func queryInt(r *http.Request, name string, def int) (int, error) {
	v, err := queryInt64(r, name)
	if err != nil || v == nil {
		return def, err
	}
	return int(*v), nil
}

// queryInt64List accepts both repeated parameters (?id=1&id=2) and comma
// separated values (?id=1,2), as CATMAID clients send either.
func queryInt64List(r *http.Request, name string) ([]int64, error) {
	var out []int64
	for _, raw := range queryStrings(r, name) {
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			v, err := strconv.ParseInt(part, 10, 64)
			if err != nil {
				return nil, invalidParam(name, "int", fmt.Sprintf("%s must hold integers, got %q", name, part))
			}
			out = append(out, v)
		}
	}
	return out, nil
}

// queryStrings returns every value of name, also accepting the name[]
// spelling used by jQuery-style clients.
func queryStrings(r *http.Request, name string) []string {
	q := r.URL.Query()
	return append(q[name], q[name+"[]"]...)
}
