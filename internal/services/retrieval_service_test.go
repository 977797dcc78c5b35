package services

import (
	"context"
	"errors"
	"testing"

	"vaultrag/internal/clearance"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime"
	bartypes "github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime/types"
)

// fakeRetriever records the last request and returns canned results.
type fakeRetriever struct {
	lastInput *bedrockagentruntime.RetrieveInput
	results   []bartypes.KnowledgeBaseRetrievalResult
	err       error
	calls     int
}

func (f *fakeRetriever) Retrieve(_ context.Context, params *bedrockagentruntime.RetrieveInput, _ ...func(*bedrockagentruntime.Options)) (*bedrockagentruntime.RetrieveOutput, error) {
	f.calls++
	f.lastInput = params
	if f.err != nil {
		return nil, f.err
	}
	return &bedrockagentruntime.RetrieveOutput{RetrievalResults: f.results}, nil
}

func kbResult(text, uri string) bartypes.KnowledgeBaseRetrievalResult {
	return bartypes.KnowledgeBaseRetrievalResult{
		Content:  &bartypes.RetrievalResultContent{Text: aws.String(text)},
		Location: &bartypes.RetrievalResultLocation{S3Location: &bartypes.RetrievalResultS3Location{Uri: aws.String(uri)}},
	}
}

func TestRetrieveInternUsesEqualityFilter(t *testing.T) {
	fake := &fakeRetriever{}
	svc := NewRetrievalService(fake, "KB123", 3, clearance.DefaultTable())

	_, err := svc.Retrieve(context.Background(), "vacation policy", clearance.RoleIntern)
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}

	cfg := fake.lastInput.RetrievalConfiguration.VectorSearchConfiguration
	if got := aws.ToInt32(cfg.NumberOfResults); got != 3 {
		t.Errorf("NumberOfResults = %d, want 3", got)
	}

	eq, ok := cfg.Filter.(*bartypes.RetrievalFilterMemberEquals)
	if !ok {
		t.Fatalf("intern filter type = %T, want RetrievalFilterMemberEquals", cfg.Filter)
	}
	if aws.ToString(eq.Value.Key) != accessLevelKey {
		t.Errorf("filter key = %q, want %q", aws.ToString(eq.Value.Key), accessLevelKey)
	}
	var tier string
	if err := eq.Value.Value.UnmarshalSmithyDocument(&tier); err != nil {
		t.Fatalf("failed to decode filter value: %v", err)
	}
	if tier != "public" {
		t.Errorf("intern filter tier = %q, want public", tier)
	}
}

func TestRetrieveBroaderRolesUseMembershipFilter(t *testing.T) {
	testCases := []struct {
		role  clearance.Role
		tiers []string
	}{
		{clearance.RoleHRManager, []string{"public", "hr"}},
		{clearance.RoleCFO, []string{"public", "hr", "finance"}},
	}

	for _, tc := range testCases {
		t.Run(string(tc.role), func(t *testing.T) {
			fake := &fakeRetriever{}
			svc := NewRetrievalService(fake, "KB123", 3, clearance.DefaultTable())

			if _, err := svc.Retrieve(context.Background(), "budget", tc.role); err != nil {
				t.Fatalf("Retrieve failed: %v", err)
			}

			in, ok := fake.lastInput.RetrievalConfiguration.VectorSearchConfiguration.Filter.(*bartypes.RetrievalFilterMemberIn)
			if !ok {
				t.Fatalf("filter type = %T, want RetrievalFilterMemberIn", fake.lastInput.RetrievalConfiguration.VectorSearchConfiguration.Filter)
			}

			var tiers []string
			if err := in.Value.Value.UnmarshalSmithyDocument(&tiers); err != nil {
				t.Fatalf("failed to decode filter values: %v", err)
			}
			if len(tiers) != len(tc.tiers) {
				t.Fatalf("filter tiers = %v, want %v", tiers, tc.tiers)
			}
			for i, tier := range tc.tiers {
				if tiers[i] != tier {
					t.Errorf("filter tiers = %v, want %v", tiers, tc.tiers)
					break
				}
			}
		})
	}
}

func TestRetrieveMapsResults(t *testing.T) {
	fake := &fakeRetriever{
		results: []bartypes.KnowledgeBaseRetrievalResult{
			kbResult("Salary bands are confidential.", "s3://docs/hr/salaries.pdf"),
			kbResult("Benefits enrollment opens in May.", "s3://docs/hr/benefits.pdf"),
		},
	}
	svc := NewRetrievalService(fake, "KB123", 3, clearance.DefaultTable())

	results, err := svc.Retrieve(context.Background(), "salaries", clearance.RoleHRManager)
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].Text != "Salary bands are confidential." || results[0].Source != "s3://docs/hr/salaries.pdf" {
		t.Errorf("unexpected first result: %+v", results[0])
	}
}

func TestRetrieveEmptyIsNotAnError(t *testing.T) {
	fake := &fakeRetriever{}
	svc := NewRetrievalService(fake, "KB123", 3, clearance.DefaultTable())

	results, err := svc.Retrieve(context.Background(), "merger terms", clearance.RoleIntern)
	if err != nil {
		t.Fatalf("empty retrieval should not error: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("got %d results, want 0", len(results))
	}
}

func TestRetrieveTransportErrorIsRetrievalUnavailable(t *testing.T) {
	fake := &fakeRetriever{err: errors.New("connection reset")}
	svc := NewRetrievalService(fake, "KB123", 3, clearance.DefaultTable())

	_, err := svc.Retrieve(context.Background(), "anything", clearance.RoleCFO)
	if !errors.Is(err, ErrRetrievalUnavailable) {
		t.Fatalf("error = %v, want ErrRetrievalUnavailable", err)
	}
}

func TestRetrieveUnknownRoleFails(t *testing.T) {
	fake := &fakeRetriever{}
	svc := NewRetrievalService(fake, "KB123", 3, clearance.DefaultTable())

	if _, err := svc.Retrieve(context.Background(), "anything", clearance.Role("Contractor")); err == nil {
		t.Fatal("expected error for role absent from clearance table")
	}
	if fake.calls != 0 {
		t.Error("no remote call should be made when the filter cannot be built")
	}
}
