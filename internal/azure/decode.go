package azure

import (
	"fmt"

	"github.com/Veraticus/azure-flow/internal/model"
)

// Wire types for the three management-plane responses.

type subscriptionListResponse struct {
	Value []struct {
		SubscriptionID string `json:"subscriptionId"`
		DisplayName    string `json:"displayName"`
	} `json:"value"`
	NextLink string `json:"nextLink"`
}

// rawRecommendation covers both Advisor response schemas: older responses
// carry the resource group under resourceMetadata, newer ones identify the
// impacted resource via impactedValue.
type rawRecommendation struct {
	Properties struct {
		Category         string `json:"category"`
		Impact           string `json:"impact"`
		ShortDescription struct {
			Problem  string `json:"problem"`
			Solution string `json:"solution"`
		} `json:"shortDescription"`
		ResourceMetadata *struct {
			ResourceGroup string `json:"resourceGroup"`
			ResourceID    string `json:"resourceId"`
		} `json:"resourceMetadata"`
		ImpactedValue string `json:"impactedValue"`
	} `json:"properties"`
}

type recommendationListResponse struct {
	Value    []rawRecommendation `json:"value"`
	NextLink string              `json:"nextLink"`
}

type costQueryRequest struct {
	Type       string          `json:"type"`
	Timeframe  string          `json:"timeframe"`
	TimePeriod *costTimePeriod `json:"timePeriod,omitempty"`
	Dataset    costDataset     `json:"dataset"`
}

type costTimePeriod struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type costDataset struct {
	Granularity string                     `json:"granularity"`
	Aggregation map[string]costAggregation `json:"aggregation"`
	Grouping    []costGrouping             `json:"grouping"`
}

type costAggregation struct {
	Name     string `json:"name"`
	Function string `json:"function"`
}

type costGrouping struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

type costQueryResponse struct {
	Properties struct {
		Columns []struct {
			Name string `json:"name"`
			Type string `json:"type"`
		} `json:"columns"`
		Rows [][]any `json:"rows"`
	} `json:"properties"`
}

// decodeRecommendation converts one raw Advisor entry into the canonical
// record. This is the single place that knows about the two response
// schemas; optional fields normalize to model.PlaceholderNA rather than
// defaulting silently at call sites.
func decodeRecommendation(subscriptionID string, raw rawRecommendation) (model.Recommendation, error) {
	p := raw.Properties
	if p.Category == "" {
		return model.Recommendation{}, fmt.Errorf("recommendation has no category")
	}

	rec := model.Recommendation{
		SubscriptionID: subscriptionID,
		Category:       p.Category,
		Problem:        orNA(p.ShortDescription.Problem),
		Solution:       orNA(p.ShortDescription.Solution),
		Impact:         orNA(p.Impact),
		ResourceGroup:  model.PlaceholderNA,
		ResourceID:     model.PlaceholderNA,
	}

	if p.ResourceMetadata != nil {
		rec.ResourceGroup = orNA(p.ResourceMetadata.ResourceGroup)
		rec.ResourceID = orNA(p.ResourceMetadata.ResourceID)
	}
	if rec.ResourceID == model.PlaceholderNA && p.ImpactedValue != "" {
		rec.ResourceID = p.ImpactedValue
	}

	return rec, nil
}

func orNA(s string) string {
	if s == "" {
		return model.PlaceholderNA
	}
	return s
}
