package report

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/roach88/gridval/internal/validation"
)

// DomainResult separates result digests from any other SHA-256 use.
// The version suffix leaves room for a future encoding.
const DomainResult = "gridval/result/v1"

// Summary is the headline of a result.
type Summary struct {
	Scenarios  int    `json:"scenarios"`
	Failed     []int  `json:"failed"`
	Violations int    `json:"violations"`
	Digest     string `json:"digest"`
}

// Encode returns the canonical JSON of a result. The shape matches the
// result's JSON tags, so Decode (or encoding/json) reads it back.
func Encode(res *validation.Result) ([]byte, error) {
	scenarios := make([]any, len(res.Scenarios))
	for i, vs := range res.Scenarios {
		scenarios[i] = violationList(vs)
	}
	return Marshal(map[string]any{"scenarios": scenarios})
}

// EncodeSparse returns the canonical JSON of the failing scenarios only,
// keyed by decimal scenario index.
func EncodeSparse(res *validation.Result) ([]byte, error) {
	obj := make(map[string]any)
	for i, vs := range res.Sparse() {
		obj[strconv.Itoa(i)] = violationList(vs)
	}
	return Marshal(obj)
}

// Decode reads a result written by Encode.
func Decode(data []byte) (*validation.Result, error) {
	var res validation.Result
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("decode result: %w", err)
	}
	for i, vs := range res.Scenarios {
		if vs == nil {
			res.Scenarios[i] = []validation.Violation{}
		}
	}
	return &res, nil
}

// Digest returns the domain-separated SHA-256 of the canonical encoding:
// SHA256(domain + 0x00 + canonical).
func Digest(res *validation.Result) (string, error) {
	canonical, err := Encode(res)
	if err != nil {
		return "", err
	}
	return hashWithDomain(DomainResult, canonical), nil
}

// Summarize counts a result and computes its digest.
func Summarize(res *validation.Result) (Summary, error) {
	digest, err := Digest(res)
	if err != nil {
		return Summary{}, err
	}
	failed := res.Failed()
	if failed == nil {
		failed = []int{}
	}
	return Summary{
		Scenarios:  res.Len(),
		Failed:     failed,
		Violations: res.Count(),
		Digest:     digest,
	}, nil
}

func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

func violationList(vs []validation.Violation) []any {
	out := make([]any, len(vs))
	for i, v := range vs {
		out[i] = violationTree(v)
	}
	return out
}

func violationTree(v validation.Violation) map[string]any {
	fields := make([]any, len(v.Fields))
	for i, f := range v.Fields {
		fields[i] = map[string]any{"component": f.Component, "field": f.Field}
	}
	ids := make([]any, len(v.IDs))
	for i, id := range v.IDs {
		ids[i] = map[string]any{"component": id.Component, "id": id.ID}
	}
	obj := map[string]any{
		"kind":   string(v.Kind),
		"fields": fields,
		"ids":    ids,
	}
	if v.Detail != "" {
		obj["detail"] = v.Detail
	}
	return obj
}
