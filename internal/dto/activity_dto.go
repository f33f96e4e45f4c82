package dto

import (
	"time"

	"github.com/classhive/classhive-api/internal/models"
)

// ActivityResponse is the API shape of an audit entry.
type ActivityResponse struct {
	ID         uint                   `json:"id"`
	ActorID    uint                   `json:"actor_id"`
	ActorRole  string                 `json:"actor_role"`
	Action     string                 `json:"action"`
	EntityType string                 `json:"entity_type"`
	EntityID   *uint                  `json:"entity_id"`
	Metadata   map[string]interface{} `json:"metadata"`
	CreatedAt  time.Time              `json:"created_at"`
}

// ToActivityResponses converts stored audit entries.
func ToActivityResponses(entries []models.ActivityLog) []ActivityResponse {
	responses := make([]ActivityResponse, 0, len(entries))
	for _, entry := range entries {
		responses = append(responses, ActivityResponse{
			ID:         entry.ID,
			ActorID:    entry.ActorID,
			ActorRole:  entry.ActorRole,
			Action:     entry.Action,
			EntityType: entry.EntityType,
			EntityID:   entry.EntityID,
			Metadata:   entry.Metadata,
			CreatedAt:  entry.CreatedAt,
		})
	}
	return responses
}
