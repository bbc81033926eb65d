// Package redact 提供可插拔的敏感值遮蔽钩子。
//
// 核心流程只依赖 Hook；具体怎么遮蔽（GitHub Actions 的 ::add-mask::、日志替换等）
// 由外层工具注入。
package redact

import (
	"sort"
	"strings"
	"sync"
)

// Placeholder 是日志里替换敏感值使用的占位符。
const Placeholder = "***"

// Hook 在敏感值第一次出现时被调用。实现必须并发安全。
type Hook interface {
	Mask(secret string)
}

// HookFunc 让普通函数满足 Hook。
type HookFunc func(secret string)

func (f HookFunc) Mask(secret string) { f(secret) }

// Set 记录已注册的敏感值，并把注册事件转发给下游 Hook。
// 同时提供 Scrub 用于在日志输出前做字符串替换。
type Set struct {
	mu      sync.RWMutex
	secrets []string // 按长度降序，保证长串优先替换
	next    []Hook
}

// NewSet 构造一个 Set，注册的敏感值会依次转发给 next。
func NewSet(next ...Hook) *Set {
	return &Set{next: next}
}

// Mask 注册敏感值。空串与纯空白直接忽略（否则 Scrub 会把所有内容都替换掉）。
func (s *Set) Mask(secret string) {
	if strings.TrimSpace(secret) == "" {
		return
	}

	s.mu.Lock()
	for _, x := range s.secrets {
		if x == secret {
			s.mu.Unlock()
			return
		}
	}
	s.secrets = append(s.secrets, secret)
	sort.SliceStable(s.secrets, func(i, j int) bool { return len(s.secrets[i]) > len(s.secrets[j]) })
	next := s.next
	s.mu.Unlock()

	for _, h := range next {
		if h != nil {
			h.Mask(secret)
		}
	}
}

// Scrub 把 in 中出现的全部已注册敏感值替换为 Placeholder。
func (s *Set) Scrub(in string) string {
	if s == nil || in == "" {
		return in
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, x := range s.secrets {
		if strings.Contains(in, x) {
			in = strings.ReplaceAll(in, x, Placeholder)
		}
	}
	return in
}

// Len 返回已注册的敏感值个数。
func (s *Set) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.secrets)
}
