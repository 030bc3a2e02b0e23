package service

import (
	"strings"

	"github.com/samber/lo"

	messageDomain "tgrelay/internal/modules/message/domain"
	ruleService "tgrelay/internal/modules/rule/service"
)

// Matches decides whether a rule applies to a message. A rule without
// keywords and without a regex pattern has no content filter and matches
// any message; otherwise the message must carry text and either a keyword
// substring (case-insensitive) or a regex match. The time window, when
// set, gates the rule regardless of content.
func Matches(msg messageDomain.IncomingMessage, rule ruleService.ActiveRule) bool {
	if rule.TimeRange != nil && !rule.TimeRange.Contains(msg.Timestamp) {
		return false
	}

	if !rule.HasContentFilter() {
		return true
	}

	if !msg.HasText() {
		return false
	}

	text := strings.ToLower(msg.Text)
	keywordHit := lo.SomeBy(rule.Keywords, func(kw string) bool {
		return kw != "" && strings.Contains(text, strings.ToLower(kw))
	})
	if keywordHit {
		return true
	}

	return rule.Regex != nil && rule.Regex.MatchString(msg.Text)
}
