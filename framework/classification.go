package framework

import (
	"errors"
	"fmt"
)

// Confidence grades how safe a cleanup recommendation is.
type Confidence string

const (
	ConfidenceSafe       Confidence = "safe"
	ConfidenceLikelySafe Confidence = "likely_safe"
	ConfidenceUncertain  Confidence = "uncertain"
	ConfidenceUnsafe     Confidence = "unsafe"
)

// Recommendation is the suggested disposition for a path.
type Recommendation string

const (
	RecommendKeep   Recommendation = "keep"
	RecommendDelete Recommendation = "delete"
	RecommendReview Recommendation = "review"
)

// Classification is one judged filesystem artifact.
type Classification struct {
	Path                  string         `json:"path"`
	FileType              string         `json:"file_type,omitempty"`
	DirectoryType         string         `json:"directory_type,omitempty"`
	Recommendation        Recommendation `json:"recommendation"`
	Confidence            Confidence     `json:"confidence"`
	Reasoning             string         `json:"reasoning"`
	EstimatedSavingsBytes int64          `json:"estimated_savings_bytes"`
	IsRegenerable         bool           `json:"is_regenerable"`
	Dependencies          []string       `json:"dependencies,omitempty"`
	Risks                 []string       `json:"risks,omitempty"`
}

// SavingsMB converts the estimate to megabytes.
func (c Classification) SavingsMB() float64 {
	return float64(c.EstimatedSavingsBytes) / (1024 * 1024)
}

// SavingsGB converts the estimate to gigabytes.
func (c Classification) SavingsGB() float64 {
	return float64(c.EstimatedSavingsBytes) / (1024 * 1024 * 1024)
}

// Critique is a reflection pass's judgement of one classification.
type Critique struct {
	ClassificationPath  string     `json:"classification_path"`
	IssuesFound         []string   `json:"issues_found,omitempty"`
	SuggestedConfidence Confidence `json:"suggested_confidence,omitempty"`
	AdditionalRisks     []string   `json:"additional_risks,omitempty"`
	ShouldReview        bool       `json:"should_review"`
	Reasoning           string     `json:"critique_reasoning"`
}

// ApprovalStatus is the human verdict on one classification.
type ApprovalStatus string

const (
	Approved ApprovalStatus = "approved"
	Rejected ApprovalStatus = "rejected"
)

// UserDecision pairs a classification with the human verdict.
type UserDecision struct {
	Path           string
	Classification Classification
	Status         ApprovalStatus
}

// ClassificationFromMap converts a loosely-typed tool payload into a
// Classification. The supervisor uses this when merging step results; a
// malformed entry fails here and is skipped rather than aborting the step.
func ClassificationFromMap(m map[string]any) (Classification, error) {
	path, _ := m["path"].(string)
	if path == "" {
		return Classification{}, errors.New("classification missing path")
	}
	c := Classification{
		Path:           path,
		Recommendation: RecommendKeep,
		Confidence:     ConfidenceUncertain,
	}
	if v, ok := m["file_type"].(string); ok {
		c.FileType = v
	}
	if v, ok := m["directory_type"].(string); ok {
		c.DirectoryType = v
	}
	if v, ok := m["recommendation"].(string); ok && v != "" {
		c.Recommendation = Recommendation(v)
	}
	if v, ok := m["confidence"].(string); ok && v != "" {
		c.Confidence = Confidence(v)
	}
	if v, ok := m["reasoning"].(string); ok {
		c.Reasoning = v
	}
	if v, ok := m["is_regenerable"].(bool); ok {
		c.IsRegenerable = v
	}
	switch v := m["estimated_savings_bytes"].(type) {
	case float64:
		c.EstimatedSavingsBytes = int64(v)
	case int:
		c.EstimatedSavingsBytes = int64(v)
	case int64:
		c.EstimatedSavingsBytes = v
	}
	c.Dependencies = stringSlice(m["dependencies"])
	c.Risks = stringSlice(m["risks"])
	return c, nil
}

// CritiqueFromMap converts a loosely-typed critique payload.
func CritiqueFromMap(m map[string]any) (Critique, error) {
	path, _ := m["classification_path"].(string)
	if path == "" {
		return Critique{}, errors.New("critique missing classification_path")
	}
	cr := Critique{ClassificationPath: path}
	cr.IssuesFound = stringSlice(m["issues_found"])
	cr.AdditionalRisks = stringSlice(m["additional_risks"])
	if v, ok := m["suggested_confidence"].(string); ok {
		cr.SuggestedConfidence = Confidence(v)
	}
	if v, ok := m["should_review"].(bool); ok {
		cr.ShouldReview = v
	}
	if v, ok := m["critique_reasoning"].(string); ok {
		cr.Reasoning = v
	}
	return cr, nil
}

func stringSlice(v any) []string {
	switch vals := v.(type) {
	case []string:
		return append([]string(nil), vals...)
	case []any:
		out := make([]string, 0, len(vals))
		for _, item := range vals {
			out = append(out, fmt.Sprint(item))
		}
		return out
	default:
		return nil
	}
}
