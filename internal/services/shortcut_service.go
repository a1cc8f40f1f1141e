package services

import (
	"context"
	"math"
	"strings"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/aihub/school-assistant/internal/catalog"
)

// 回答路径，用于日志与指标
const (
	RouteWelcome     = "welcome"
	RouteStatic      = "static"
	RouteFuzzy       = "fuzzy"
	RouteGuard       = "guard"
	RouteRAG         = "rag"
	RouteEmptyCorpus = "empty_corpus"
)

// NormalizeKey 小写并去掉末尾问号
func NormalizeKey(question string) string {
	key := cases.Lower(language.Und).String(strings.TrimSpace(question))
	return strings.TrimSpace(strings.TrimRight(key, "?"))
}

// PartialRatio 较短串与较长串中等长子串的最佳相似度，0-100
func PartialRatio(a, b string) int {
	short, long := []rune(a), []rune(b)
	if len(short) > len(long) {
		short, long = long, short
	}
	if len(short) == 0 {
		return 0
	}

	target := string(short)
	best := 0.0
	for i := 0; i+len(short) <= len(long); i++ {
		d := levenshtein.ComputeDistance(target, string(long[i:i+len(short)]))
		score := 1 - float64(d)/float64(len(short))
		if score > best {
			best = score
			if best == 1 {
				break
			}
		}
	}
	return int(math.Round(best * 100))
}

// ShortcutService 检索前的确定性查找：欢迎语、精确问答、模糊问答、"how many"拦截
type ShortcutService struct {
	catalog        *catalog.Catalog
	formatter      *AnswerFormatter
	fuzzyThreshold int
	welcomeTrigger string
	guardPrefixes  []string
	unknownAnswer  string
}

// ShortcutOptions 快捷查找参数
type ShortcutOptions struct {
	FuzzyThreshold int
	WelcomeTrigger string
	GuardPrefixes  []string
	UnknownAnswer  string
}

// NewShortcutService 创建快捷查找服务
func NewShortcutService(c *catalog.Catalog, formatter *AnswerFormatter, opts ShortcutOptions) *ShortcutService {
	prefixes := make([]string, 0, len(opts.GuardPrefixes))
	for _, p := range opts.GuardPrefixes {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			prefixes = append(prefixes, p)
		}
	}
	return &ShortcutService{
		catalog:        c,
		formatter:      formatter,
		fuzzyThreshold: opts.FuzzyThreshold,
		welcomeTrigger: opts.WelcomeTrigger,
		guardPrefixes:  prefixes,
		unknownAnswer:  opts.UnknownAnswer,
	}
}

// Lookup 命中时返回完整回答与路径，未命中返回false；ctx结束后不再继续模糊匹配
func (s *ShortcutService) Lookup(ctx context.Context, question, key string) (*Answer, string, bool) {
	if s.welcomeTrigger != "" && question == s.welcomeTrigger {
		if w := s.catalog.Welcome(); w.Text != "" {
			return newAnswer(StripBullets(w.Text), w.URL, w.Label), RouteWelcome, true
		}
	}

	if a, ok := s.catalog.Exact(key); ok {
		return s.staticAnswer(a), RouteStatic, true
	}

	if s.fuzzyThreshold > 0 {
		for _, a := range s.catalog.Answers() {
			if ctx.Err() != nil {
				return nil, "", false
			}
			if PartialRatio(a.Phrase, key) > s.fuzzyThreshold {
				return s.staticAnswer(a), RouteFuzzy, true
			}
		}
	}

	for _, prefix := range s.guardPrefixes {
		if strings.HasPrefix(key, prefix) {
			return newAnswer(s.formatter.Format(s.unknownAnswer), "", ""), RouteGuard, true
		}
	}
	return nil, "", false
}

func (s *ShortcutService) staticAnswer(a catalog.StaticAnswer) *Answer {
	return newAnswer(s.formatter.Format(a.Text), a.URL, a.Label)
}
