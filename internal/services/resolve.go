package services

import (
	"context"

	"connect-service/internal/models"
	"connect-service/internal/repositories"
)

// resolveConversations turns stored conversations into views with participants
// and last messages resolved in two batched lookups.
func resolveConversations(ctx context.Context, users repositories.UserRepository, messages repositories.MessageRepository, convs []models.Conversation) ([]models.ConversationView, error) {
	userIDs := make([]int, 0)
	seen := map[int]struct{}{}
	lastIDs := make([]int, 0, len(convs))
	for _, conv := range convs {
		for _, id := range conv.Participants {
			if _, ok := seen[id]; !ok {
				seen[id] = struct{}{}
				userIDs = append(userIDs, id)
			}
		}
		if conv.LastMessageID != nil {
			lastIDs = append(lastIDs, *conv.LastMessageID)
		}
	}

	summaries, err := users.Summaries(ctx, userIDs)
	if err != nil {
		return nil, err
	}
	lastMessages, err := messages.ViewsByIDs(ctx, lastIDs)
	if err != nil {
		return nil, err
	}

	views := make([]models.ConversationView, 0, len(convs))
	for _, conv := range convs {
		view := models.ConversationView{
			ID:           conv.ID,
			Participants: make([]models.UserSummary, 0, len(conv.Participants)),
			IsGroup:      conv.IsGroup,
			GroupName:    conv.GroupName,
			CreatedAt:    conv.CreatedAt,
			UpdatedAt:    conv.UpdatedAt,
		}
		for _, id := range conv.Participants {
			summary, ok := summaries[id]
			if !ok {
				// deleted account
				summary = models.UserSummary{ID: id}
			}
			view.Participants = append(view.Participants, summary)
		}
		if conv.LastMessageID != nil {
			if last, ok := lastMessages[*conv.LastMessageID]; ok {
				view.LastMessage = &last
			}
		}
		views = append(views, view)
	}
	return views, nil
}
