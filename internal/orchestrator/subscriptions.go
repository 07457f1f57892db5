package orchestrator

import (
	"context"

	"github.com/cuongbtq/mediajobs/internal/domain"
)

// RequesterAndCollaborators notifies the requester and every listed collaborator
type RequesterAndCollaborators struct{}

// Subscribers implements domain.SubscriptionSource
func (RequesterAndCollaborators) Subscribers(_ context.Context, sub domain.Submission) ([]string, error) {
	seen := make(map[string]struct{}, len(sub.Collaborators)+1)
	consumers := make([]string, 0, len(sub.Collaborators)+1)

	for _, id := range append([]string{sub.RequesterID}, sub.Collaborators...) {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		consumers = append(consumers, id)
	}
	return consumers, nil
}
