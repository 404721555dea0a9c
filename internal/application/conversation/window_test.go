package conversation

import (
	"fmt"
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-chat-api/internal/domain/entity"
)

func makeMessages(n int) []*entity.Message {
	now := time.Now()
	out := make([]*entity.Message, 0, n)
	for i := 0; i < n; i++ {
		role := entity.RoleUser
		if i%2 == 1 {
			role = entity.RoleAssistant
		}
		out = append(out, entity.NewMessage("c", role, fmt.Sprintf("m%d", i), now, time.Time{}))
	}
	return out
}

func TestBuildHistory(t *testing.T) {
	tests := []struct {
		name  string
		n     int
		limit int
		want  int
		first string
	}{
		{"empty", 0, 20, 0, ""},
		{"under limit", 3, 20, 3, "m0"},
		{"exact limit", 20, 20, 20, "m0"},
		{"over limit", 45, 20, 20, "m25"},
		{"zero limit uses default", 30, 0, DefaultHistoryWindow, "m10"},
		{"custom limit", 10, 4, 4, "m6"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BuildHistory(makeMessages(tt.n), tt.limit)
			require.NotNil(t, got)
			require.Len(t, got, tt.want)
			if tt.want > 0 {
				assert.Equal(t, tt.first, got[0].Content)
				assert.Equal(t, fmt.Sprintf("m%d", tt.n-1), got[len(got)-1].Content)
			}
		})
	}
}

func TestBuildHistory_ProjectsRoles(t *testing.T) {
	got := BuildHistory(makeMessages(4), 20)
	require.Len(t, got, 4)
	assert.Equal(t, []schema.RoleType{schema.User, schema.Assistant, schema.User, schema.Assistant},
		[]schema.RoleType{got[0].Role, got[1].Role, got[2].Role, got[3].Role})
}
