package conversation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateTitle(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"short", "你好", "你好"},
		{"empty", "", ""},
		{"exactly twenty", strings.Repeat("a", 20), strings.Repeat("a", 20)},
		{"ascii over", strings.Repeat("a", 21), strings.Repeat("a", 20) + "..."},
		{"cjk counts code points", strings.Repeat("书", 25), strings.Repeat("书", 20) + "..."},
		{"emoji not split", strings.Repeat("😀", 21), strings.Repeat("😀", 20) + "..."},
		{"whitespace kept", " 推荐几本好书 ", " 推荐几本好书 "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GenerateTitle(tt.in))
		})
	}
}
