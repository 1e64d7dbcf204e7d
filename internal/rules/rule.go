// Package rules decides which content servers deep links may target.
package rules

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/iTrooz/ardemo/internal/config"
)

var ErrServerNotAllowed = errors.New("content server is not allowed")

const (
	ModeWhitelist = "whitelist"
	ModeBlacklist = "blacklist"
)

// Rule matches content server URLs
type Rule interface {
	Match(serverURL string) bool
}

// ConfigRule implements Rule for config-based rules
type ConfigRule struct {
	config.ServerRule
	base *url.URL
}

// NewConfigRule parses the rule's base URI once
func NewConfigRule(rule config.ServerRule) *ConfigRule {
	return &ConfigRule{ServerRule: rule, base: parseBase(rule.BaseURI)}
}

func parseBase(raw string) *url.URL {
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil
	}
	return u
}

// Match checks that the server URL has the rule's scheme and host and lives
// under its path. Paths match on whole segments.
func (r *ConfigRule) Match(serverURL string) bool {
	base := r.base
	if base == nil {
		base = parseBase(r.BaseURI)
	}
	if base == nil {
		return false
	}

	target, err := url.Parse(serverURL)
	if err != nil {
		return false
	}
	if !strings.EqualFold(target.Scheme, base.Scheme) || !strings.EqualFold(target.Host, base.Host) {
		return false
	}

	prefix := strings.TrimSuffix(base.EscapedPath(), "/")
	if prefix == "" {
		return true
	}
	path := target.EscapedPath()
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

// Policy applies rules in whitelist or blacklist mode
type Policy struct {
	mode  string
	rules []Rule
}

// NewPolicy builds a policy from configuration
func NewPolicy(cfg config.RulesConfig) *Policy {
	rules := make([]Rule, 0, len(cfg.Rules))
	for _, rule := range cfg.Rules {
		rules = append(rules, NewConfigRule(rule))
	}
	return &Policy{mode: cfg.Mode, rules: rules}
}

// Allows reports whether u may be contacted
func (p *Policy) Allows(u *url.URL) bool {
	if p == nil {
		return true
	}

	target := u.String()
	matched := false
	for _, rule := range p.rules {
		if rule.Match(target) {
			matched = true
			break
		}
	}

	if p.mode == ModeWhitelist {
		return matched
	}
	return !matched
}

// Check returns ErrServerNotAllowed when u may not be contacted
func (p *Policy) Check(u *url.URL) error {
	if !p.Allows(u) {
		return fmt.Errorf("%w: %s", ErrServerNotAllowed, u.Redacted())
	}
	return nil
}
