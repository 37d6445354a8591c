// Package intent classifies free user text against the chip routing rules.
// Rules are ordered and the first matching pattern wins.
package intent

import (
	"fmt"
	"regexp"
	"strings"

	"support-chat-be/internal/entity"
	"support-chat-be/internal/pkg/logger"
	"support-chat-be/pkg/chat/chaterr"
)

const module = "IntentRouter"

// FallbackReply is returned when no rule matches.
const FallbackReply = "지원 범위를 벗어난 질문이에요. 아래 빠른메뉴에서 항목을 선택해 주세요."

var whitespace = regexp.MustCompile(`\s+`)

// Normalize collapses whitespace runs into single spaces and trims.
func Normalize(text string) string {
	return strings.TrimSpace(whitespace.ReplaceAllString(text, " "))
}

type Rule struct {
	Intent  string
	Reply   string
	Pattern *regexp.Regexp
}

type Result struct {
	Intent  string
	Reply   string
	Matched bool
}

// Router is immutable once compiled and safe for concurrent use.
type Router struct {
	rules []Rule
}

// NewRouter builds a router from already compiled rules.
func NewRouter(rules ...Rule) *Router {
	return &Router{rules: rules}
}

// Compile pairs each active pattern with its active intent, keeping the
// pattern order. Patterns that reference an inactive or missing intent are
// dropped; patterns that fail to compile are logged and skipped so one bad
// row never blocks the rest.
func Compile(intents []*entity.ChipIntent, patterns []*entity.ChipPattern, log logger.ILogger) *Router {
	byID := make(map[uint]*entity.ChipIntent, len(intents))
	for _, in := range intents {
		if in.IsActive {
			byID[in.Id] = in
		}
	}

	rules := make([]Rule, 0, len(patterns))
	for _, p := range patterns {
		if !p.IsActive {
			continue
		}
		owner, ok := byID[p.IntentId]
		if !ok {
			continue
		}
		re, err := regexp.Compile(p.PatternRegex)
		if err != nil {
			log.Warn(module, "Skipping invalid chip pattern", map[string]interface{}{
				"pattern_id": p.Id,
				"intent":     owner.Intent,
				"pattern":    p.PatternRegex,
				"error":      fmt.Errorf("%v: %w", err, chaterr.ErrRoutingConfigInvalid).Error(),
			})
			continue
		}
		rules = append(rules, Rule{Intent: owner.Intent, Reply: owner.ResponseText, Pattern: re})
	}
	return &Router{rules: rules}
}

// Route returns the first rule matching the normalized text. Later rules
// are not evaluated once one matches.
func (r *Router) Route(text string) Result {
	normalized := Normalize(text)
	if r != nil {
		for _, rule := range r.rules {
			if rule.Pattern.MatchString(normalized) {
				return Result{Intent: rule.Intent, Reply: rule.Reply, Matched: true}
			}
		}
	}
	return Result{Reply: FallbackReply}
}

// Reply returns the canned response configured for intent.
func (r *Router) Reply(intent string) (string, bool) {
	if r == nil {
		return "", false
	}
	for _, rule := range r.rules {
		if rule.Intent == intent {
			return rule.Reply, true
		}
	}
	return "", false
}

// Len is the number of usable rules.
func (r *Router) Len() int {
	if r == nil {
		return 0
	}
	return len(r.rules)
}
