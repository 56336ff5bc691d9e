package gemini

import (
	"errors"
	"fmt"
	"testing"

	genai "github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"

	"github.com/Yashshah0502/Expense-AI/internal/infrastructure/resilience"
)

func TestCandidateTextJoinsParts(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{
				Content: &genai.Content{
					Parts: []genai.Part{
						genai.Text("Meals are reimbursed at the federal per diem rate"),
						genai.Text(" [asu_travel.pdf p.4].\n"),
					},
				},
			},
		},
	}

	out, err := candidateText(resp)
	if err != nil {
		t.Fatalf("candidateText() error = %v", err)
	}
	want := "Meals are reimbursed at the federal per diem rate [asu_travel.pdf p.4]."
	if out != want {
		t.Fatalf("candidateText() = %q, want %q", out, want)
	}
}

func TestCandidateTextRejectsEmptyResponses(t *testing.T) {
	cases := []struct {
		name string
		resp *genai.GenerateContentResponse
	}{
		{name: "nil response", resp: nil},
		{name: "no candidates", resp: &genai.GenerateContentResponse{}},
		{name: "nil content", resp: &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{}}}},
		{
			name: "blank text",
			resp: &genai.GenerateContentResponse{
				Candidates: []*genai.Candidate{
					{Content: &genai.Content{Parts: []genai.Part{genai.Text("   \n")}}},
				},
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := candidateText(tc.resp); err == nil {
				t.Fatal("expected error for empty completion")
			}
		})
	}
}

func TestSDKErrorMapsGoogleAPIStatus(t *testing.T) {
	wrapped := fmt.Errorf("generate: %w", &googleapi.Error{Code: 429, Message: "quota exhausted"})

	err := sdkError("gemini generate", wrapped)
	var statusErr *resilience.HTTPStatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected HTTPStatusError, got %T", err)
	}
	if statusErr.StatusCode != 429 {
		t.Fatalf("unexpected status code: %d", statusErr.StatusCode)
	}
	class := resilience.ClassifyHTTPError(err)
	if !class.Retryable || !class.RecordFailure {
		t.Fatalf("429 should retry and trip the breaker, got %+v", class)
	}
}

func TestSDKErrorPassesThroughOtherErrors(t *testing.T) {
	orig := errors.New("no api key")
	if got := sdkError("gemini embed", orig); got != orig {
		t.Fatalf("expected original error back, got %v", got)
	}
}
