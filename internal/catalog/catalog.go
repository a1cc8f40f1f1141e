// Package catalog 站点页面链接表、URL标签与固定问答
//
// Catalog在启动时构建一次，之后只读，可被并发请求共享。
package catalog

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// headmasterPlaceholder 固定回答中的校长姓名占位符
const headmasterPlaceholder = "{headmaster}"

// PageLink 描述性关键词到页面URL
type PageLink struct {
	Key   string `yaml:"key"`
	URL   string `yaml:"url"`
	Label string `yaml:"label"`
}

// StaticAnswer 固定问答，URL与Label可为空
type StaticAnswer struct {
	Phrase string
	Text   string
	URL    string
	Label  string
}

type answerGroup struct {
	Phrases []string `yaml:"phrases"`
	Answer  string   `yaml:"answer"`
	Page    string   `yaml:"page"`
}

type welcomeBlock struct {
	Text string `yaml:"text"`
	Page string `yaml:"page"`
}

type fileFormat struct {
	HeadmasterPage string        `yaml:"headmaster_page"`
	Welcome        welcomeBlock  `yaml:"welcome"`
	Pages          []PageLink    `yaml:"pages"`
	Answers        []answerGroup `yaml:"answers"`
}

// Catalog 只读查找表
type Catalog struct {
	pages   []PageLink
	byKey   map[string]PageLink
	labels  map[string]string
	answers []StaticAnswer
	exact   map[string]int
	welcome StaticAnswer
}

// Load 读取YAML目录文件
func Load(path, headmasterName string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read catalog %s: %w", path, err)
	}
	return Parse(data, headmasterName)
}

// Parse 解析YAML目录，固定回答引用的页面必须存在
func Parse(data []byte, headmasterName string) (*Catalog, error) {
	var f fileFormat
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("invalid catalog: %w", err)
	}

	c, err := New(f.Pages)
	if err != nil {
		return nil, err
	}

	if f.HeadmasterPage != "" {
		if _, ok := c.byKey[f.HeadmasterPage]; !ok {
			return nil, fmt.Errorf("no page link for headmaster page %q", f.HeadmasterPage)
		}
	}

	for _, g := range f.Answers {
		text := strings.ReplaceAll(g.Answer, headmasterPlaceholder, headmasterName)
		url, label, err := c.resolvePage(g.Page)
		if err != nil {
			return nil, err
		}
		for _, phrase := range g.Phrases {
			if err := c.AddAnswer(StaticAnswer{Phrase: phrase, Text: text, URL: url, Label: label}); err != nil {
				return nil, err
			}
		}
	}

	if f.Welcome.Text != "" {
		url, label, err := c.resolvePage(f.Welcome.Page)
		if err != nil {
			return nil, err
		}
		c.welcome = StaticAnswer{Text: f.Welcome.Text, URL: url, Label: label}
	}
	return c, nil
}

// New 以有序页面链接构建目录
func New(pages []PageLink) (*Catalog, error) {
	c := &Catalog{
		byKey:  make(map[string]PageLink, len(pages)),
		labels: make(map[string]string, len(pages)),
		exact:  make(map[string]int),
	}
	for _, p := range pages {
		p.Key = strings.ToLower(strings.TrimSpace(p.Key))
		if p.Key == "" || p.URL == "" {
			return nil, fmt.Errorf("page link requires key and url: %+v", p)
		}
		if _, dup := c.byKey[p.Key]; dup {
			return nil, fmt.Errorf("duplicate page key %q", p.Key)
		}
		c.pages = append(c.pages, p)
		c.byKey[p.Key] = p
		if p.Label != "" {
			c.labels[p.URL] = p.Label
		}
	}
	return c, nil
}

// AddAnswer 追加固定问答，短语按小写存储
func (c *Catalog) AddAnswer(a StaticAnswer) error {
	a.Phrase = strings.ToLower(strings.TrimSpace(a.Phrase))
	if a.Phrase == "" {
		return fmt.Errorf("static answer has empty phrase")
	}
	if _, dup := c.exact[a.Phrase]; dup {
		return fmt.Errorf("duplicate static phrase %q", a.Phrase)
	}
	c.exact[a.Phrase] = len(c.answers)
	c.answers = append(c.answers, a)
	return nil
}

// SetWelcome 设置欢迎语
func (c *Catalog) SetWelcome(a StaticAnswer) {
	c.welcome = a
}

func (c *Catalog) resolvePage(key string) (string, string, error) {
	if key == "" {
		return "", "", nil
	}
	p, ok := c.byKey[strings.ToLower(key)]
	if !ok {
		return "", "", fmt.Errorf("unknown page key %q", key)
	}
	return p.URL, c.labels[p.URL], nil
}

// Pages 有序页面链接
func (c *Catalog) Pages() []PageLink {
	return c.pages
}

// URL 按关键词查页面
func (c *Catalog) URL(key string) (string, bool) {
	p, ok := c.byKey[key]
	return p.URL, ok
}

// Label 按URL查可读标签
func (c *Catalog) Label(url string) (string, bool) {
	l, ok := c.labels[url]
	return l, ok
}

// Answers 有序固定问答
func (c *Catalog) Answers() []StaticAnswer {
	return c.answers
}

// Exact 精确短语查找
func (c *Catalog) Exact(key string) (StaticAnswer, bool) {
	i, ok := c.exact[key]
	if !ok {
		return StaticAnswer{}, false
	}
	return c.answers[i], true
}

// Welcome 欢迎语，未配置时Text为空
func (c *Catalog) Welcome() StaticAnswer {
	return c.welcome
}
