package extractor

import (
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// MaxContentLength 送進提示詞的頁面文字上限（字元）
const MaxContentLength = 20000

const maxSectionHints = 20

// forThePattern 匹配「For the sauce:」這類段落標示
var forThePattern = regexp.MustCompile(`(?i)\bfor the ([^:.!?;]{2,40}?)\s*:`)

// page 一次掃描頁面得到的內容
type page struct {
	text     string
	ogImage  string
	firstImg string
	headings []string
}

// scanPage 走訪標記，略過 script 與 style 區塊
func scanPage(markup string) page {
	var (
		p        page
		text     strings.Builder
		heading  strings.Builder
		skip     int
		inHeader atom.Atom
	)

	z := html.NewTokenizer(strings.NewReader(markup))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}

		tok := z.Token()
		switch tt {
		case html.StartTagToken, html.SelfClosingTagToken:
			text.WriteByte(' ')
			switch tok.DataAtom {
			case atom.Script, atom.Style:
				if tt == html.StartTagToken {
					skip++
				}
			case atom.Meta:
				if p.ogImage == "" && isOGImage(tok) {
					p.ogImage = strings.TrimSpace(attr(tok, "content"))
				}
			case atom.Img:
				if p.firstImg == "" {
					p.firstImg = strings.TrimSpace(attr(tok, "src"))
				}
			case atom.H1, atom.H2, atom.H3, atom.H4:
				if tt == html.StartTagToken {
					inHeader = tok.DataAtom
					heading.Reset()
				}
			}
		case html.EndTagToken:
			text.WriteByte(' ')
			switch tok.DataAtom {
			case atom.Script, atom.Style:
				if skip > 0 {
					skip--
				}
			case inHeader:
				if h := collapseSpaces(heading.String()); h != "" {
					p.headings = append(p.headings, h)
				}
				inHeader = 0
			}
		case html.TextToken:
			if skip > 0 {
				continue
			}
			text.WriteString(tok.Data)
			if inHeader != 0 {
				heading.WriteString(tok.Data)
				heading.WriteByte(' ')
			}
		}
	}

	p.text = collapseSpaces(text.String())
	return p
}

func isOGImage(tok html.Token) bool {
	for _, a := range tok.Attr {
		if (a.Key == "property" || a.Key == "name") && strings.EqualFold(strings.TrimSpace(a.Val), "og:image") {
			return true
		}
	}
	return false
}

func attr(tok html.Token, key string) string {
	for _, a := range tok.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// CleanText 移除 script/style 區塊與所有標籤，合併空白並截斷長度
func CleanText(markup string) string {
	return truncateRunes(scanPage(markup).text, MaxContentLength)
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// FindImageURL 回傳頁面代表圖片的絕對網址，優先使用 og:image，找不到時回傳空字串
func FindImageURL(markup, pageURL string) string {
	p := scanPage(markup)
	candidate := p.ogImage
	if candidate == "" {
		candidate = p.firstImg
	}
	if candidate == "" || strings.HasPrefix(strings.ToLower(candidate), "data:") {
		return ""
	}
	return ResolveURL(candidate, pageURL)
}

// ResolveURL 以頁面網址解析圖片的相對路徑
//
// 絕對網址原樣回傳；//host/path 補上 https:；/path 接在來源網域後；
// 其他相對路徑接在頁面所在目錄後。頁面網址無法解析時原樣回傳。
func ResolveURL(imageURL, pageURL string) string {
	if strings.HasPrefix(imageURL, "http") {
		return imageURL
	}
	if strings.HasPrefix(imageURL, "//") {
		return "https:" + imageURL
	}

	base, err := url.Parse(pageURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return imageURL
	}
	origin := base.Scheme + "://" + base.Host
	if strings.HasPrefix(imageURL, "/") {
		return origin + imageURL
	}
	dir := base.Path[:strings.LastIndex(base.Path, "/")+1]
	if dir == "" {
		dir = "/"
	}
	return origin + dir + imageURL
}

// SectionHints 收集標題與「For the X:」片語，提示模型辨識具名分組
func SectionHints(markup string) []string {
	p := scanPage(markup)

	hints := []string{}
	seen := map[string]bool{}
	add := func(h string) {
		h = collapseSpaces(h)
		key := strings.ToLower(h)
		if h == "" || seen[key] || len(hints) >= maxSectionHints {
			return
		}
		seen[key] = true
		hints = append(hints, truncateRunes(h, 80))
	}

	for _, h := range p.headings {
		add(h)
	}
	for _, m := range forThePattern.FindAllStringSubmatch(p.text, -1) {
		add("For the " + m[1])
	}
	return hints
}
