package elastic

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"user-service/internal/client"
	"user-service/internal/models"
	"user-service/internal/util"
)

// ProfileIndex maintains the search projection of user profiles.
type ProfileIndex struct {
	client *client.ESClient
	index  string
}

func NewProfileIndex(esClient *client.ESClient, index string, logger *zap.Logger) *ProfileIndex {
	return &ProfileIndex{client: esClient, index: index}
}

// IndexProfile upserts the profile document for a user. Indexing is best
// effort; search lags briefly behind the primary store.
func (p *ProfileIndex) IndexProfile(ctx context.Context, user *models.User) error {
	doc := models.ProfileDocument{
		UserID:            user.UserID,
		Username:          user.Username,
		FirstName:         user.FirstName,
		LastName:          user.LastName,
		Bio:               user.Bio,
		ProfilePictureURL: user.ProfilePictureURL,
		FollowerCount:     user.FollowerCount,
	}

	res, err := p.client.IndexDocument(ctx, p.index, user.UserID, doc)
	if err != nil {
		return fmt.Errorf("failed to index profile: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("failed to index profile: %s", res.Status())
	}

	util.Debug("Profile indexed",
		zap.String("user_id", user.UserID),
		zap.String("index", p.index))
	return nil
}

type searchResult struct {
	Hits struct {
		Hits []struct {
			Source models.ProfileDocument `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// Search matches profiles by username, name, and bio.
func (p *ProfileIndex) Search(ctx context.Context, term string, size int) ([]models.ProfileDocument, error) {
	if size <= 0 {
		size = 10
	}

	query := map[string]interface{}{
		"size": size,
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  term,
				"fields": []string{"username^3", "first_name^2", "last_name^2", "bio"},
				"type":   "best_fields",
			},
		},
	}

	res, err := p.client.Search(ctx, p.index, query)
	if err != nil {
		return nil, fmt.Errorf("profile search failed: %w", err)
	}

	var result searchResult
	if err := p.client.ParseResponse(res, &result); err != nil {
		return nil, fmt.Errorf("profile search failed: %w", err)
	}

	docs := make([]models.ProfileDocument, 0, len(result.Hits.Hits))
	for _, hit := range result.Hits.Hits {
		docs = append(docs, hit.Source)
	}

	util.Debug("Profile search executed",
		zap.String("term", term),
		zap.Int("hits", len(docs)))
	return docs, nil
}
