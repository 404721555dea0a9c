// Package entity 定义领域实体
package entity

import (
	"fmt"
	"strings"
)

// Role 消息角色，持久化为大写
type Role string

const (
	RoleUser      Role = "USER"
	RoleAssistant Role = "ASSISTANT"
)

// Valid 是否为可持久化的角色
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// Wire 对外展示形式（小写）
func (r Role) Wire() string {
	return strings.ToLower(string(r))
}

// ParseRole 解析角色，大小写不敏感
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("invalid role %q", s)
	}
	return r, nil
}
