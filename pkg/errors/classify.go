package errors

import (
	"context"
	"errors"
	"net"
	"strings"
)

// Rule maps errors matching a predicate to a category.
type Rule struct {
	Name     string
	Match    func(err error) bool
	Category Category
}

// Classifier assigns a Category to an error by walking an ordered rule list.
// The first matching rule wins. An *AIError that already carries a category is
// returned as is without consulting the rules.
type Classifier struct {
	rules []Rule
}

// NewClassifier creates a classifier over rules. With no rules, DefaultRules is used.
func NewClassifier(rules ...Rule) *Classifier {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	return &Classifier{rules: rules}
}

// Rules returns a copy of the rule list in evaluation order.
func (c *Classifier) Rules() []Rule {
	out := make([]Rule, len(c.rules))
	copy(out, c.rules)
	return out
}

// Classify returns the category for err. Unmatched errors are CategoryUnknown.
func (c *Classifier) Classify(err error) Category {
	if err == nil {
		return ""
	}

	var ae *AIError
	if errors.As(err, &ae) && ae.Category != "" {
		return ae.Category
	}

	for _, r := range c.rules {
		if r.Match(err) {
			return r.Category
		}
	}
	return CategoryUnknown
}

var defaultClassifier = NewClassifier()

// Classify classifies err with the default rule set.
func Classify(err error) Category {
	return defaultClassifier.Classify(err)
}

// DefaultRules returns the built-in rule list. Structured signals come first:
// context deadlines, upstream HTTP status codes and status strings, network
// timeouts. Message substrings are consulted only when none of those match.
func DefaultRules() []Rule {
	return []Rule{
		{Name: "context_deadline", Match: isDeadline, Category: CategoryTimeout},
		{Name: "upstream_rate_limit", Match: upstreamMatch([]int{429}, "RESOURCE_EXHAUSTED"), Category: CategoryRateLimit},
		{Name: "upstream_auth", Match: upstreamMatch([]int{401, 403}, "UNAUTHENTICATED", "PERMISSION_DENIED"), Category: CategoryAuth},
		{Name: "upstream_invalid_key", Match: upstreamInvalidKey, Category: CategoryAuth},
		{Name: "upstream_timeout", Match: upstreamMatch([]int{408, 504}, "DEADLINE_EXCEEDED"), Category: CategoryTimeout},
		{Name: "upstream_invalid_request", Match: upstreamMatch([]int{400, 404, 413, 422}, "INVALID_ARGUMENT", "NOT_FOUND", "FAILED_PRECONDITION"), Category: CategoryInvalidRequest},
		{Name: "upstream_server", Match: upstreamServerError, Category: CategoryUnknown},
		{Name: "net_timeout", Match: isNetTimeout, Category: CategoryTimeout},
		{Name: "text_rate_limit", Match: messageContains("429", "rate limit", "quota", "resource_exhausted", "too many requests"), Category: CategoryRateLimit},
		{Name: "text_auth", Match: messageContains("401", "403", "api key", "unauthorized", "unauthenticated", "permission denied", "forbidden"), Category: CategoryAuth},
		{Name: "text_timeout", Match: messageContains("timeout", "timed out", "deadline exceeded"), Category: CategoryTimeout},
		{Name: "text_invalid_request", Match: messageContains("400", "invalid argument", "invalid request", "bad request"), Category: CategoryInvalidRequest},
	}
}

func isDeadline(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}

func isNetTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func upstreamMatch(codes []int, statuses ...string) func(error) bool {
	return func(err error) bool {
		var ue *UpstreamError
		if !errors.As(err, &ue) {
			return false
		}
		for _, c := range codes {
			if ue.StatusCode == c {
				return true
			}
		}
		for _, s := range statuses {
			if strings.EqualFold(ue.Status, s) {
				return true
			}
		}
		return false
	}
}

// upstreamInvalidKey catches a bad credential reported as a generic 400.
func upstreamInvalidKey(err error) bool {
	var ue *UpstreamError
	if !errors.As(err, &ue) || ue.StatusCode != 400 {
		return false
	}
	msg := strings.ToLower(ue.Message)
	return strings.Contains(msg, "api key") || strings.Contains(msg, "api_key_invalid")
}

func upstreamServerError(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue) && ue.StatusCode >= 500
}

func messageContains(needles ...string) func(error) bool {
	return func(err error) bool {
		msg := strings.ToLower(err.Error())
		for _, n := range needles {
			if strings.Contains(msg, n) {
				return true
			}
		}
		return false
	}
}
