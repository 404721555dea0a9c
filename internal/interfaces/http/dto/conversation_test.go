package dto

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-chat-api/internal/domain/entity"
)

func TestMessageResponse_RoundTrip(t *testing.T) {
	at := time.Date(2024, 5, 1, 8, 30, 0, 123456000, time.UTC)
	for _, role := range []entity.Role{entity.RoleUser, entity.RoleAssistant} {
		m := &entity.Message{
			ID:             "m-1",
			ConversationID: "c-1",
			Role:           role,
			Content:        "内容 {x}",
			CreatedAt:      at,
		}

		raw, err := json.Marshal(ToMessageResponse(m))
		require.NoError(t, err)

		var decoded MessageResponse
		require.NoError(t, json.Unmarshal(raw, &decoded))
		assert.Equal(t, role.Wire(), decoded.Role)

		back, err := decoded.ToMessage("c-1")
		require.NoError(t, err)
		assert.Equal(t, m.ID, back.ID)
		assert.Equal(t, m.Role, back.Role)
		assert.Equal(t, m.Content, back.Content)
		assert.True(t, m.CreatedAt.Equal(back.CreatedAt))
	}
}

func TestMessageResponse_ToMessageRejectsUnknownRole(t *testing.T) {
	_, err := (&MessageResponse{ID: "m", Role: "system"}).ToMessage("c")
	assert.Error(t, err)
}

func TestToConversationResponse_Messages(t *testing.T) {
	now := time.Now().UTC()
	c := &entity.Conversation{ID: "c-1", CreatedAt: now, UpdatedAt: now}

	listed, err := json.Marshal(ToConversationResponse(c, false))
	require.NoError(t, err)
	assert.Contains(t, string(listed), `"messages":null`)
	assert.Contains(t, string(listed), `"title":null`)

	detail, err := json.Marshal(ToConversationResponse(c, true))
	require.NoError(t, err)
	assert.Contains(t, string(detail), `"messages":[]`)
}

func TestToConversationListResponse_Empty(t *testing.T) {
	raw, err := json.Marshal(ToConversationListResponse(nil))
	require.NoError(t, err)
	assert.Equal(t, "[]", string(raw))
}

func TestToBookListResponse_NoNulls(t *testing.T) {
	raw, err := json.Marshal(ToBookListResponse(&entity.BookList{Books: []entity.Book{{Title: "三体", Author: "刘慈欣"}}}))
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"topics":[]`)

	raw, err = json.Marshal(ToBookListResponse(nil))
	require.NoError(t, err)
	assert.JSONEq(t, `{"books":[]}`, string(raw))
}
