package models

import (
	"strings"
	"testing"
)

func TestRetrieveRequest_Validate(t *testing.T) {
	neg := -0.1
	high := 1.5
	ok := 0.7
	tests := []struct {
		name    string
		req     RetrieveRequest
		wantErr bool
	}{
		{"valid defaults", RetrieveRequest{Query: "adkar"}, false},
		{"valid overrides", RetrieveRequest{Query: "adkar", TopK: 3, Threshold: &ok}, false},
		{"empty query", RetrieveRequest{Query: "   "}, true},
		{"negative top_k", RetrieveRequest{Query: "q", TopK: -1}, true},
		{"threshold below zero", RetrieveRequest{Query: "q", Threshold: &neg}, true},
		{"threshold above one", RetrieveRequest{Query: "q", Threshold: &high}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestMergeMetadata_doesNotMutateInputs(t *testing.T) {
	base := map[string]string{"source": "a.md", "category": "general"}
	extra := map[string]string{"category": "frameworks"}
	got := MergeMetadata(base, extra)

	if got["category"] != "frameworks" || got["source"] != "a.md" {
		t.Errorf("merged = %v", got)
	}
	if base["category"] != "general" {
		t.Errorf("base was mutated: %v", base)
	}
	if CopyMetadata(nil) == nil {
		t.Error("CopyMetadata(nil) returned nil")
	}
}

func TestIngestReport_Add(t *testing.T) {
	var rep IngestReport
	rep.Add(IngestResult{Path: "a", Chunks: 3})
	rep.Add(IngestResult{Path: "b", Skipped: true})
	rep.Add(IngestResult{Path: "c", Err: ErrNotFound})

	if rep.Chunks != 3 || rep.Skipped != 1 || rep.Failed != 1 {
		t.Errorf("chunks %d, skipped %d, failed %d", rep.Chunks, rep.Skipped, rep.Failed)
	}
	if len(rep.Files) != 3 {
		t.Fatalf("files = %d, want 3", len(rep.Files))
	}
	if rep.Files[2].Error == "" {
		t.Error("failed file carries no error message")
	}
}

func TestRetrieveRequest_ValidateMessagesUseJSONNames(t *testing.T) {
	high := 1.5
	err := (&RetrieveRequest{Query: "q", TopK: -2, Threshold: &high}).Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{
		"top_k must be greater than or equal to 0",
		"threshold must be less than or equal to 1",
	} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not contain %q", err, want)
		}
	}
}
