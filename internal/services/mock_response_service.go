package services

import (
	"fmt"
	"math/rand/v2"
	"regexp"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"chatbox/internal/data/embedded"
	"chatbox/internal/logger"
	"chatbox/internal/stringprocessing"
	"chatbox/pkg/chattypes"
)

// Rule kinds in the mock response table.
const (
	RuleKindFixed      = "fixed"
	RuleKindClock      = "clock"
	RuleKindArithmetic = "arithmetic"
)

// Layouts for the clock rule.
const (
	clockTimeLayout = "3:04:05 PM"
	clockDateLayout = "1/2/2006"
)

// Picker chooses an index in [0, n). *rand.Rand satisfies it.
type Picker interface {
	IntN(n int) int
}

// MockRule is one entry of the ordered rule table.
type MockRule struct {
	Name     string   `yaml:"name"`
	Kind     string   `yaml:"kind"`
	Keywords []string `yaml:"keywords"`
	Pattern  string   `yaml:"pattern"`
	Response string   `yaml:"response"`
	Failure  string   `yaml:"failure"`
}

// MockTable is the offline reply table loaded from YAML.
type MockTable struct {
	ReplyPrefix   string     `yaml:"reply_prefix"`
	ReplySelf     string     `yaml:"reply_self"`
	ReplyOther    string     `yaml:"reply_other"`
	ExcerptLength int        `yaml:"excerpt_length"`
	Rules         []MockRule `yaml:"rules"`
	Fillers       []string   `yaml:"fillers"`
	Contextual    []string   `yaml:"contextual"`
}

type compiledRule struct {
	MockRule
	pattern *regexp.Regexp
}

// matches reports whether normalized input triggers the rule.
func (r compiledRule) matches(input string) bool {
	if r.pattern != nil && r.pattern.MatchString(input) {
		return true
	}
	for _, keyword := range r.Keywords {
		if strings.Contains(input, keyword) {
			return true
		}
	}
	return false
}

// MockOption configures a MockResponseService.
type MockOption func(*MockResponseService)

// WithPicker sets the random source used for filler and contextual picks.
func WithPicker(picker Picker) MockOption {
	return func(m *MockResponseService) { m.picker = picker }
}

// WithSeed seeds the default picker. Zero keeps a randomly seeded picker.
func WithSeed(seed uint64) MockOption {
	return func(m *MockResponseService) {
		if seed != 0 {
			m.picker = rand.New(rand.NewPCG(seed, seed))
		}
	}
}

// WithMockClock sets the time source for the clock rule.
func WithMockClock(now func() time.Time) MockOption {
	return func(m *MockResponseService) { m.now = now }
}

// WithTableData replaces the embedded rule table with data.
func WithTableData(data []byte) MockOption {
	return func(m *MockResponseService) { m.tableData = data }
}

// MockResponseService produces canned replies by matching the input against an
// ordered keyword table. It is the offline fallback of the response resolver.
type MockResponseService struct {
	initialized bool
	tableData   []byte
	table       MockTable
	rules       []compiledRule

	mu     sync.Mutex // guards picker
	picker Picker
	now    func() time.Time
}

// NewMockResponseService creates a responder backed by the embedded table.
func NewMockResponseService(opts ...MockOption) *MockResponseService {
	m := &MockResponseService{
		tableData: embedded.MockResponsesData,
		picker:    rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Name returns the service name "mock_response" for registration.
func (m *MockResponseService) Name() string {
	return "mock_response"
}

// Initialize parses and validates the rule table.
func (m *MockResponseService) Initialize() error {
	var table MockTable
	if err := yaml.Unmarshal(m.tableData, &table); err != nil {
		return fmt.Errorf("failed to parse mock response table: %w", err)
	}

	rules, err := compileRules(table.Rules)
	if err != nil {
		return err
	}
	if len(table.Fillers) == 0 {
		return fmt.Errorf("mock response table has no fillers")
	}
	if len(table.Contextual) == 0 {
		return fmt.Errorf("mock response table has no contextual replies")
	}
	if table.ExcerptLength <= 0 {
		table.ExcerptLength = 30
	}

	m.table = table
	m.rules = rules
	m.initialized = true
	logger.Debug("MockResponseService initialized", "rules", len(rules), "fillers", len(table.Fillers))
	return nil
}

func compileRules(rules []MockRule) ([]compiledRule, error) {
	compiled := make([]compiledRule, 0, len(rules))
	for i, rule := range rules {
		if rule.Name == "" {
			return nil, fmt.Errorf("mock rule %d has no name", i)
		}
		if rule.Kind == "" {
			rule.Kind = RuleKindFixed
		}
		switch rule.Kind {
		case RuleKindFixed, RuleKindClock, RuleKindArithmetic:
		default:
			return nil, fmt.Errorf("mock rule %s has unknown kind %q", rule.Name, rule.Kind)
		}
		if rule.Response == "" {
			return nil, fmt.Errorf("mock rule %s has no response", rule.Name)
		}

		c := compiledRule{MockRule: rule}
		if rule.Pattern != "" {
			pattern, err := regexp.Compile(rule.Pattern)
			if err != nil {
				return nil, fmt.Errorf("mock rule %s has invalid pattern: %w", rule.Name, err)
			}
			c.pattern = pattern
		}
		if c.pattern == nil && len(rule.Keywords) == 0 {
			return nil, fmt.Errorf("mock rule %s has neither keywords nor pattern", rule.Name)
		}
		compiled = append(compiled, c)
	}
	return compiled, nil
}

// Rules returns the names of the loaded rules in match order.
func (m *MockResponseService) Rules() []string {
	names := make([]string, len(m.rules))
	for i, rule := range m.rules {
		names[i] = rule.Name
	}
	return names
}

// Respond returns the mock reply for text. With a reply snapshot the answer
// acknowledges the replied-to message instead of consulting the rule table.
func (m *MockResponseService) Respond(text string, reply *chattypes.ReplySnapshot) (string, error) {
	if !m.initialized {
		return "", fmt.Errorf("mock response service not initialized")
	}

	input := stringprocessing.NormalizeInput(text)

	if reply != nil {
		return m.replyPrefix(reply) + m.pick(m.table.Contextual), nil
	}

	for _, rule := range m.rules {
		if !rule.matches(input) {
			continue
		}
		logger.Debug("Mock rule matched", "rule", rule.Name)
		return m.render(rule, input), nil
	}

	return m.pick(m.table.Fillers), nil
}

func (m *MockResponseService) render(rule compiledRule, input string) string {
	switch rule.Kind {
	case RuleKindClock:
		now := m.now()
		return strings.NewReplacer(
			"{time}", now.Format(clockTimeLayout),
			"{date}", now.Format(clockDateLayout),
		).Replace(rule.Response)
	case RuleKindArithmetic:
		result, err := EvaluateArithmetic(input)
		if err != nil {
			logger.Debug("Arithmetic fallback", "error", err)
			return rule.Failure
		}
		return strings.ReplaceAll(rule.Response, "{result}", result)
	default:
		return rule.Response
	}
}

func (m *MockResponseService) replyPrefix(reply *chattypes.ReplySnapshot) string {
	who := m.table.ReplyOther
	if reply.Sender == chattypes.SenderAssistant {
		who = m.table.ReplySelf
	}
	return strings.NewReplacer(
		"{who}", who,
		"{excerpt}", stringprocessing.Excerpt(reply.Text, m.table.ExcerptLength),
	).Replace(m.table.ReplyPrefix)
}

func (m *MockResponseService) pick(pool []string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return pool[m.picker.IntN(len(pool))]
}

// Fillers returns the replies used when no rule matches.
func (m *MockResponseService) Fillers() []string {
	return append([]string(nil), m.table.Fillers...)
}

// ContextualReplies returns the replies appended to reply acknowledgements.
func (m *MockResponseService) ContextualReplies() []string {
	return append([]string(nil), m.table.Contextual...)
}
