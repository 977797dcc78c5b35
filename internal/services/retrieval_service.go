package services

import (
	"context"
	"fmt"
	"log"

	"vaultrag/internal/clearance"
	"vaultrag/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime/document"
	bartypes "github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime/types"
)

// accessLevelKey is the metadata field every indexed document is tagged
// with at ingestion time. The ingestion job guarantees exactly one tier per
// document; this filter is the system's actual security boundary.
const accessLevelKey = "access_level"

// retrieveAPI is the slice of the Bedrock agent runtime client the gateway
// uses. Tests substitute a fake.
type retrieveAPI interface {
	Retrieve(ctx context.Context, params *bedrockagentruntime.RetrieveInput, optFns ...func(*bedrockagentruntime.Options)) (*bedrockagentruntime.RetrieveOutput, error)
}

// RetrievalService issues clearance-filtered searches against a Bedrock
// knowledge base.
type RetrievalService struct {
	client          retrieveAPI
	knowledgeBaseID string
	topK            int32
	table           *clearance.Table
}

// NewRetrievalService creates a new retrieval gateway.
func NewRetrievalService(client retrieveAPI, knowledgeBaseID string, topK int, table *clearance.Table) *RetrievalService {
	if topK <= 0 {
		topK = 3
	}
	return &RetrievalService{
		client:          client,
		knowledgeBaseID: knowledgeBaseID,
		topK:            int32(topK),
		table:           table,
	}
}

// Retrieve runs a vector search bounded to topK results, filtered to the
// role's clearance set. The filter is built from the resolved role only,
// never from the query text, so a crafted query cannot widen it. An empty
// result slice is a valid outcome, not an error.
func (s *RetrievalService) Retrieve(ctx context.Context, query string, role clearance.Role) ([]models.RetrievalResult, error) {
	filter, err := s.clearanceFilter(role)
	if err != nil {
		return nil, err
	}

	out, err := s.client.Retrieve(ctx, &bedrockagentruntime.RetrieveInput{
		KnowledgeBaseId: aws.String(s.knowledgeBaseID),
		RetrievalQuery: &bartypes.KnowledgeBaseQuery{
			Text: aws.String(query),
		},
		RetrievalConfiguration: &bartypes.KnowledgeBaseRetrievalConfiguration{
			VectorSearchConfiguration: &bartypes.KnowledgeBaseVectorSearchConfiguration{
				NumberOfResults: aws.Int32(s.topK),
				Filter:          filter,
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRetrievalUnavailable, err)
	}

	results := make([]models.RetrievalResult, 0, len(out.RetrievalResults))
	for _, res := range out.RetrievalResults {
		r := models.RetrievalResult{}
		if res.Content != nil && res.Content.Text != nil {
			r.Text = *res.Content.Text
		}
		if res.Location != nil && res.Location.S3Location != nil && res.Location.S3Location.Uri != nil {
			r.Source = *res.Location.S3Location.Uri
		}
		if tag, ok := res.Metadata[accessLevelKey]; ok {
			var tier string
			if err := tag.UnmarshalSmithyDocument(&tier); err == nil {
				r.TierTag = tier
			}
		}
		results = append(results, r)
	}

	log.Printf("🔍 [RETRIEVAL] %d result(s) for role %s", len(results), role)
	return results, nil
}

// clearanceFilter builds the metadata filter for a role: exact match for a
// single-tier clearance set, set membership otherwise.
func (s *RetrievalService) clearanceFilter(role clearance.Role) (bartypes.RetrievalFilter, error) {
	tiers, err := s.table.SetFor(role)
	if err != nil {
		return nil, err
	}

	if len(tiers) == 1 {
		return &bartypes.RetrievalFilterMemberEquals{
			Value: bartypes.FilterAttribute{
				Key:   aws.String(accessLevelKey),
				Value: document.NewLazyDocument(string(tiers[0])),
			},
		}, nil
	}

	values := make([]string, len(tiers))
	for i, tier := range tiers {
		values[i] = string(tier)
	}
	return &bartypes.RetrievalFilterMemberIn{
		Value: bartypes.FilterAttribute{
			Key:   aws.String(accessLevelKey),
			Value: document.NewLazyDocument(values),
		},
	}, nil
}
