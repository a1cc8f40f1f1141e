package services

import (
	"strings"
	"unicode/utf8"

	"github.com/aihub/school-assistant/internal/catalog"
)

// LinkResolver 关键词到页面链接、URL到标签
type LinkResolver struct {
	catalog          *catalog.Catalog
	minKeywordLength int
}

// NewLinkResolver 只有长度大于minKeywordLength的关键词参与匹配
func NewLinkResolver(c *catalog.Catalog, minKeywordLength int) *LinkResolver {
	return &LinkResolver{catalog: c, minKeywordLength: minKeywordLength}
}

// KeywordLink 按目录顺序返回第一个被查询键包含的页面
func (r *LinkResolver) KeywordLink(key string) (string, bool) {
	for _, p := range r.catalog.Pages() {
		if utf8.RuneCountInString(p.Key) > r.minKeywordLength && strings.Contains(key, p.Key) {
			return p.URL, true
		}
	}
	return "", false
}

// Label URL的可读标签，未登记时为空
func (r *LinkResolver) Label(url string) string {
	label, _ := r.catalog.Label(url)
	return label
}
